package search

import (
	"container/heap"
	"sort"
	"time"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/observability"
)

// Path is one admissible route to a destination: the traversed segment
// edge IDs in travel order and the total cost, turn penalties included.
type Path struct {
	Edges  []int
	Length float64
}

const distEpsilon = 1e-9

// EnumeratePaths finds every distinct edge sequence from the origin to each
// destination whose cost stays within the destination's detour budget
// (shortest distance × DetourRatio). A path never traverses the same
// segment twice; node revisits are allowed.
//
// dests maps destination node IDs to their shortest distance from the
// origin, as returned by [Scope]. A destination whose budget is below its
// shortest distance yields zero paths, not an error.
func EnumeratePaths(view *network.View, originID int, dests map[int]float64, opts Options) (map[int][]Path, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if !view.HasNode(originID) {
		return nil, errors.New(errors.ErrCodeUnknownNode,
			"origin %s does not participate in view %q", errors.FormatID(originID), view.Name())
	}

	started := time.Now()
	out := make(map[int][]Path, len(dests))
	total := 0

	destIDs := make([]int, 0, len(dests))
	for d := range dests {
		destIDs = append(destIDs, d)
	}
	sort.Ints(destIDs)

	for _, dest := range destIDs {
		allowed := dests[dest] * opts.DetourRatio
		// Reverse distances ignore the turn penalty, so they never
		// overestimate the true remaining cost and pruning stays safe.
		remaining := reverseDistances(view, dest, allowed)
		if _, ok := remaining[originID]; !ok {
			out[dest] = nil
			continue
		}

		walker := &pathWalker{
			view:    view,
			dest:    dest,
			allowed: allowed,
			opts:    opts,
			rest:    remaining,
			used:    make(map[int]bool),
		}
		walker.walk(originID, 0, -1, geom.Vec{})
		out[dest] = walker.found
		total += len(walker.found)
	}

	observability.Search().OnPathsComplete(originID, total, time.Since(started))
	return out, nil
}

// pathWalker carries the DFS state for one destination.
type pathWalker struct {
	view    *network.View
	dest    int
	allowed float64
	opts    Options
	rest    map[int]float64
	used    map[int]bool
	edges   []int
	found   []Path
}

func (w *pathWalker) walk(node int, cost float64, inEdge int, arrive geom.Vec) {
	if node == w.dest && len(w.edges) > 0 {
		path := make([]int, len(w.edges))
		copy(path, w.edges)
		w.found = append(w.found, Path{Edges: path, Length: cost})
	}

	for _, arc := range w.view.Arcs(node) {
		if w.used[arc.Edge] {
			continue
		}
		step := arc.Weight
		if w.opts.TurnPenalty && inEdge >= 0 &&
			geom.Deviation(arrive, arc.Depart) > w.opts.TurnThresholdDegree {
			step += w.opts.TurnPenaltyAmount
		}
		next := cost + step
		rest, reachable := w.rest[arc.To]
		if !reachable || next+rest > w.allowed+distEpsilon {
			continue
		}

		w.used[arc.Edge] = true
		w.edges = append(w.edges, arc.Edge)
		w.walk(arc.To, next, arc.Edge, arc.Arrive)
		w.edges = w.edges[:len(w.edges)-1]
		delete(w.used, arc.Edge)
	}
}

// reverseDistances runs a plain bounded Dijkstra from the destination,
// returning the shortest turn-free distance to every node within the
// budget.
func reverseDistances(view *network.View, from int, bound float64) map[int]float64 {
	dist := make(map[int]float64)
	visited := make(map[int]bool)

	pq := &nodePQ{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{state: state{node: from, inEdge: -1}, dist: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		if item.dist > bound+distEpsilon {
			break
		}
		node := item.state.node
		if visited[node] {
			continue
		}
		visited[node] = true
		dist[node] = item.dist

		for _, arc := range view.Arcs(node) {
			if visited[arc.To] {
				continue
			}
			nd := item.dist + arc.Weight
			if nd > bound+distEpsilon {
				continue
			}
			heap.Push(pq, &pqItem{state: state{node: arc.To, inEdge: -1}, dist: nd})
		}
	}
	return dist
}
