// Package geom provides the minimal planar geometry the street-network core
// needs: 2D points, polylines with precomputed length and endpoint direction
// vectors, point-to-polyline projection, and turn-angle computation.
//
// Richer geometry (coordinate reference systems, polygon hulls/unions) is
// deliberately out of scope and left to external GIS tooling; the analytical
// core only ever works with projected planar coordinates.
package geom

import (
	"fmt"
	"math"
)

// Point is a location in projected planar coordinates.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Vec is a 2D direction vector.
type Vec struct {
	X float64
	Y float64
}

// Neg returns the opposite direction.
func (v Vec) Neg() Vec { return Vec{-v.X, -v.Y} }

// Dot returns the dot product of two vectors.
func (v Vec) Dot(w Vec) float64 { return v.X*w.X + v.Y*w.Y }

// Len returns the vector magnitude.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Unit returns the normalized vector, or the zero vector for zero input.
func (v Vec) Unit() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{v.X / l, v.Y / l}
}

// Deviation returns the angular deviation in degrees between two directions
// of motion: 0 means continuing straight, 180 means a full reversal.
// Zero-length inputs yield 0 (no measurable turn).
func Deviation(a, b Vec) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	cos := a.Dot(b) / (la * lb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Polyline is an open polyline with precomputed traversal metadata.
//
// StartDir is the unit vector leaving the first point into the line and
// EndDir the unit vector leaving the last point back into the line; the two
// feed turn-angle computation at edge endpoints without touching the full
// coordinate sequence.
type Polyline struct {
	Points   []Point
	Length   float64
	StartDir Vec
	EndDir   Vec
}

// NewPolyline builds a polyline from at least two points, precomputing
// length and endpoint directions.
func NewPolyline(pts []Point) (Polyline, error) {
	if len(pts) < 2 {
		return Polyline{}, fmt.Errorf("polyline needs at least 2 points, got %d", len(pts))
	}
	l := Polyline{Points: pts}
	for i := 1; i < len(pts); i++ {
		l.Length += pts[i-1].DistanceTo(pts[i])
	}
	n := len(pts)
	l.StartDir = Vec{pts[1].X - pts[0].X, pts[1].Y - pts[0].Y}.Unit()
	l.EndDir = Vec{pts[n-2].X - pts[n-1].X, pts[n-2].Y - pts[n-1].Y}.Unit()
	return l, nil
}

// Start returns the first point.
func (l Polyline) Start() Point { return l.Points[0] }

// End returns the last point.
func (l Polyline) End() Point { return l.Points[len(l.Points)-1] }

// Project returns the along-line distance of the closest point on l to p,
// the closest point itself, and the distance from p to it.
func (l Polyline) Project(p Point) (along float64, nearest Point, dist float64) {
	dist = math.Inf(1)
	walked := 0.0
	for i := 1; i < len(l.Points); i++ {
		a, b := l.Points[i-1], l.Points[i]
		t, q := projectOnSegment(p, a, b)
		if d := p.DistanceTo(q); d < dist {
			dist = d
			nearest = q
			along = walked + t*a.DistanceTo(b)
		}
		walked += a.DistanceTo(b)
	}
	return along, nearest, dist
}

// At returns the point at the given along-line distance, clamped to [0, Length].
func (l Polyline) At(along float64) Point {
	if along <= 0 {
		return l.Start()
	}
	walked := 0.0
	for i := 1; i < len(l.Points); i++ {
		a, b := l.Points[i-1], l.Points[i]
		seg := a.DistanceTo(b)
		if walked+seg >= along && seg > 0 {
			t := (along - walked) / seg
			return Point{a.X + t*(b.X-a.X), a.Y + t*(b.Y-a.Y)}
		}
		walked += seg
	}
	return l.End()
}

// Cut splits the polyline at the given along-line distance into two
// polylines sharing the cut point. The cut distance is clamped so both
// halves keep at least two points.
func (l Polyline) Cut(along float64) (Polyline, Polyline, error) {
	cut := l.At(along)
	var first, second []Point
	first = append(first, l.Start())
	walked := 0.0
	split := false
	for i := 1; i < len(l.Points); i++ {
		a, b := l.Points[i-1], l.Points[i]
		seg := a.DistanceTo(b)
		if !split && walked+seg >= along {
			if cut != a {
				first = append(first, cut)
			}
			second = append(second, cut)
			if cut != b {
				second = append(second, b)
			}
			split = true
		} else if split {
			second = append(second, b)
		} else {
			first = append(first, b)
		}
		walked += seg
	}
	if !split {
		second = append(second, cut, l.End())
	}
	if len(first) < 2 {
		first = append(first, cut)
	}
	if len(second) < 2 {
		second = append([]Point{cut}, l.End())
	}
	a, err := NewPolyline(first)
	if err != nil {
		return Polyline{}, Polyline{}, err
	}
	b, err := NewPolyline(second)
	if err != nil {
		return Polyline{}, Polyline{}, err
	}
	return a, b, nil
}

// Midpoint returns the point at half the arc length.
func (l Polyline) Midpoint() Point { return l.At(l.Length / 2) }

// projectOnSegment returns the clamped parameter t in [0,1] and the closest
// point on segment ab to p.
func projectOnSegment(p, a, b Point) (float64, Point) {
	ab := Vec{b.X - a.X, b.Y - a.Y}
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return 0, a
	}
	t := (Vec{p.X - a.X, p.Y - a.Y}).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return t, Point{a.X + t*ab.X, a.Y + t*ab.Y}
}
