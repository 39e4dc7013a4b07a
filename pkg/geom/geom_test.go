package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewPolyline(t *testing.T) {
	tests := []struct {
		name       string
		points     []Point
		wantErr    bool
		wantLength float64
		wantStart  Vec
		wantEnd    Vec
	}{
		{
			name:    "too few points",
			points:  []Point{{0, 0}},
			wantErr: true,
		},
		{
			name:       "horizontal segment",
			points:     []Point{{0, 0}, {10, 0}},
			wantLength: 10,
			wantStart:  Vec{1, 0},
			wantEnd:    Vec{-1, 0},
		},
		{
			name:       "L-shaped line",
			points:     []Point{{0, 0}, {3, 0}, {3, 4}},
			wantLength: 7,
			wantStart:  Vec{1, 0},
			wantEnd:    Vec{0, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := NewPolyline(tt.points)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPolyline() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !almostEqual(line.Length, tt.wantLength) {
				t.Errorf("Length = %g, want %g", line.Length, tt.wantLength)
			}
			if !almostEqual(line.StartDir.X, tt.wantStart.X) || !almostEqual(line.StartDir.Y, tt.wantStart.Y) {
				t.Errorf("StartDir = %+v, want %+v", line.StartDir, tt.wantStart)
			}
			if !almostEqual(line.EndDir.X, tt.wantEnd.X) || !almostEqual(line.EndDir.Y, tt.wantEnd.Y) {
				t.Errorf("EndDir = %+v, want %+v", line.EndDir, tt.wantEnd)
			}
		})
	}
}

func TestDeviation(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec
		want float64
	}{
		{name: "straight through", a: Vec{1, 0}, b: Vec{1, 0}, want: 0},
		{name: "right angle", a: Vec{1, 0}, b: Vec{0, 1}, want: 90},
		{name: "full reversal", a: Vec{1, 0}, b: Vec{-1, 0}, want: 180},
		{name: "45 degrees", a: Vec{1, 0}, b: Vec{1, 1}, want: 45},
		{name: "zero vector", a: Vec{}, b: Vec{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Deviation(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Deviation(%+v, %+v) = %g, want %g", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestProject(t *testing.T) {
	line, err := NewPolyline([]Point{{0, 0}, {10, 0}, {10, 10}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		point       Point
		wantAlong   float64
		wantNearest Point
		wantDist    float64
	}{
		{name: "above first segment", point: Point{4, 3}, wantAlong: 4, wantNearest: Point{4, 0}, wantDist: 3},
		{name: "right of second segment", point: Point{13, 5}, wantAlong: 15, wantNearest: Point{10, 5}, wantDist: 3},
		{name: "beyond the end", point: Point{10, 12}, wantAlong: 20, wantNearest: Point{10, 10}, wantDist: 2},
		{name: "before the start", point: Point{-3, 0}, wantAlong: 0, wantNearest: Point{0, 0}, wantDist: 3},
		{name: "on the line", point: Point{7, 0}, wantAlong: 7, wantNearest: Point{7, 0}, wantDist: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			along, nearest, dist := line.Project(tt.point)
			if !almostEqual(along, tt.wantAlong) {
				t.Errorf("along = %g, want %g", along, tt.wantAlong)
			}
			if !almostEqual(nearest.X, tt.wantNearest.X) || !almostEqual(nearest.Y, tt.wantNearest.Y) {
				t.Errorf("nearest = %+v, want %+v", nearest, tt.wantNearest)
			}
			if !almostEqual(dist, tt.wantDist) {
				t.Errorf("dist = %g, want %g", dist, tt.wantDist)
			}
		})
	}
}

func TestCut(t *testing.T) {
	line, err := NewPolyline([]Point{{0, 0}, {10, 0}, {10, 10}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		along      float64
		wantFirst  float64
		wantSecond float64
	}{
		{name: "mid first segment", along: 5, wantFirst: 5, wantSecond: 15},
		{name: "at interior vertex", along: 10, wantFirst: 10, wantSecond: 10},
		{name: "mid second segment", along: 14, wantFirst: 14, wantSecond: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second, err := line.Cut(tt.along)
			if err != nil {
				t.Fatalf("Cut(%g) error = %v", tt.along, err)
			}
			if !almostEqual(first.Length, tt.wantFirst) {
				t.Errorf("first.Length = %g, want %g", first.Length, tt.wantFirst)
			}
			if !almostEqual(second.Length, tt.wantSecond) {
				t.Errorf("second.Length = %g, want %g", second.Length, tt.wantSecond)
			}
			if !almostEqual(first.Length+second.Length, line.Length) {
				t.Errorf("halves sum to %g, want %g", first.Length+second.Length, line.Length)
			}
			if first.End() != second.Start() {
				t.Errorf("halves do not share the cut point: %+v vs %+v", first.End(), second.Start())
			}
			if first.Start() != line.Start() || second.End() != line.End() {
				t.Error("cut does not preserve the endpoints")
			}
		})
	}
}

func TestMidpoint(t *testing.T) {
	line, err := NewPolyline([]Point{{0, 0}, {10, 0}, {10, 10}})
	if err != nil {
		t.Fatal(err)
	}
	mid := line.Midpoint()
	want := Point{10, 0}
	if !almostEqual(mid.X, want.X) || !almostEqual(mid.Y, want.Y) {
		t.Errorf("Midpoint() = %+v, want %+v", mid, want)
	}
}

func TestIndexNearest(t *testing.T) {
	mustLine := func(pts ...Point) Polyline {
		l, err := NewPolyline(pts)
		if err != nil {
			t.Fatal(err)
		}
		return l
	}

	ix := NewIndex(10)
	ix.Insert(1, mustLine(Point{0, 0}, Point{100, 0}))
	ix.Insert(2, mustLine(Point{0, 50}, Point{100, 50}))
	ix.Insert(3, mustLine(Point{200, 200}, Point{210, 200}))

	tests := []struct {
		name     string
		point    Point
		wantID   int
		wantDist float64
	}{
		{name: "near bottom line", point: Point{50, 5}, wantID: 1, wantDist: 5},
		{name: "near middle line", point: Point{50, 47}, wantID: 2, wantDist: 3},
		{name: "far corner", point: Point{205, 190}, wantID: 3, wantDist: 10},
		{name: "tie resolves to lowest ID", point: Point{50, 25}, wantID: 1, wantDist: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, dist, ok := ix.Nearest(tt.point)
			if !ok {
				t.Fatal("Nearest() reported empty index")
			}
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
			if !almostEqual(dist, tt.wantDist) {
				t.Errorf("dist = %g, want %g", dist, tt.wantDist)
			}
		})
	}
}

func TestIndexRemove(t *testing.T) {
	line, err := NewPolyline([]Point{{0, 0}, {10, 0}})
	if err != nil {
		t.Fatal(err)
	}

	ix := NewIndex(5)
	ix.Insert(7, line)
	if ix.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ix.Len())
	}

	ix.Remove(7)
	if ix.Len() != 0 {
		t.Errorf("Len() after remove = %d, want 0", ix.Len())
	}
	if _, _, ok := ix.Nearest(Point{1, 1}); ok {
		t.Error("Nearest() found a removed line")
	}

	// Removing again must be a no-op.
	ix.Remove(7)
}

func TestIndexEmpty(t *testing.T) {
	ix := NewIndex(10)
	if _, _, ok := ix.Nearest(Point{0, 0}); ok {
		t.Error("Nearest() on empty index reported a hit")
	}
}
