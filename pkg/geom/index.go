package geom

import (
	"math"
	"sort"
)

// Index is a uniform-grid spatial index over polylines, used for
// nearest-edge queries when projecting point features onto a network.
//
// Each polyline's bounding box is registered in every grid cell it touches;
// Nearest scans outward in expanding rings of cells until the best candidate
// is provably closer than anything an unscanned ring could hold.
type Index struct {
	cell  float64
	items map[[2]int][]int
	lines map[int]Polyline
}

// NewIndex creates an index with the given cell size. A non-positive cell
// size falls back to 1.
func NewIndex(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Index{
		cell:  cellSize,
		items: make(map[[2]int][]int),
		lines: make(map[int]Polyline),
	}
}

// Insert registers a polyline under the given ID, replacing any previous
// entry with that ID.
func (ix *Index) Insert(id int, line Polyline) {
	if _, ok := ix.lines[id]; ok {
		ix.remove(id)
	}
	ix.lines[id] = line
	minX, minY, maxX, maxY := bounds(line)
	for cx := ix.col(minX); cx <= ix.col(maxX); cx++ {
		for cy := ix.col(minY); cy <= ix.col(maxY); cy++ {
			key := [2]int{cx, cy}
			ix.items[key] = append(ix.items[key], id)
		}
	}
}

// Remove drops a polyline from the index. Removing an unknown ID is a no-op.
func (ix *Index) Remove(id int) {
	if _, ok := ix.lines[id]; !ok {
		return
	}
	ix.remove(id)
	delete(ix.lines, id)
}

func (ix *Index) remove(id int) {
	line := ix.lines[id]
	minX, minY, maxX, maxY := bounds(line)
	for cx := ix.col(minX); cx <= ix.col(maxX); cx++ {
		for cy := ix.col(minY); cy <= ix.col(maxY); cy++ {
			key := [2]int{cx, cy}
			ids := ix.items[key]
			for i, v := range ids {
				if v == id {
					ix.items[key] = append(ids[:i], ids[i+1:]...)
					break
				}
			}
			if len(ix.items[key]) == 0 {
				delete(ix.items, key)
			}
		}
	}
}

// Len returns the number of indexed polylines.
func (ix *Index) Len() int { return len(ix.lines) }

// Nearest returns the ID of the polyline closest to p and the distance to
// it. Ties resolve to the lowest ID. The second return is false when the
// index is empty.
func (ix *Index) Nearest(p Point) (int, float64, bool) {
	if len(ix.lines) == 0 {
		return 0, 0, false
	}

	best := -1
	bestDist := math.Inf(1)
	cx, cy := ix.col(p.X), ix.col(p.Y)
	seen := make(map[int]bool)

	maxRing := ix.maxRing(p)
	for ring := 0; ring <= maxRing; ring++ {
		// Once the best hit is closer than the nearest possible point in
		// this ring, no further ring can improve it.
		if best >= 0 && bestDist <= float64(ring-1)*ix.cell {
			break
		}
		for _, key := range ringCells(cx, cy, ring) {
			ids := ix.items[key]
			sort.Ints(ids)
			for _, id := range ids {
				if seen[id] {
					continue
				}
				seen[id] = true
				_, _, d := ix.lines[id].Project(p)
				if d < bestDist || (d == bestDist && id < best) {
					best = id
					bestDist = d
				}
			}
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestDist, true
}

// maxRing returns the ring count guaranteed to cover every indexed cell
// from the query point's cell.
func (ix *Index) maxRing(p Point) int {
	cx, cy := ix.col(p.X), ix.col(p.Y)
	max := 0
	for key := range ix.items {
		dx := abs(key[0] - cx)
		dy := abs(key[1] - cy)
		if dx > max {
			max = dx
		}
		if dy > max {
			max = dy
		}
	}
	return max
}

func (ix *Index) col(v float64) int {
	return int(math.Floor(v / ix.cell))
}

// ringCells lists the cells on the square ring at the given Chebyshev
// radius around (cx, cy). Ring 0 is the center cell itself.
func ringCells(cx, cy, ring int) [][2]int {
	if ring == 0 {
		return [][2]int{{cx, cy}}
	}
	var cells [][2]int
	for dx := -ring; dx <= ring; dx++ {
		cells = append(cells, [2]int{cx + dx, cy - ring}, [2]int{cx + dx, cy + ring})
	}
	for dy := -ring + 1; dy <= ring-1; dy++ {
		cells = append(cells, [2]int{cx - ring, cy + dy}, [2]int{cx + ring, cy + dy})
	}
	return cells
}

func bounds(line Polyline) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range line.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
