package una

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/network"
)

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

// corridor builds a single straight 300-unit street with two origins and
// three weighted destinations projected onto it:
//
//	origin A (along 50)          origin B (along 250)
//	destinations at 100 (w=2), 150 (w=7), 200 (w=3)
//
// Distances from A: 50, 100, 150. From B: 150, 100, 50.
func corridor(t *testing.T) *network.Network {
	t.Helper()
	net, err := network.Build([]netio.LineFeature{
		{ID: 1, Coords: []geom.Point{pt(0, 0), pt(300, 0)}},
	}, network.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	dests := []netio.PointFeature{
		{ID: 1, Point: pt(100, 5), Attributes: map[string]float64{"jobs": 2}},
		{ID: 2, Point: pt(150, 5), Attributes: map[string]float64{"jobs": 7}},
		{ID: 3, Point: pt(200, 5), Attributes: map[string]float64{"jobs": 3}},
	}
	if err := net.InsertNodes(dests, "jobs", network.NodeKindDestination, "jobs"); err != nil {
		t.Fatalf("insert destinations failed: %v", err)
	}
	origins := []netio.PointFeature{
		{ID: 1, Point: pt(50, 5)},
		{ID: 2, Point: pt(250, 5)},
	}
	if err := net.InsertNodes(origins, "homes", network.NodeKindOrigin, ""); err != nil {
		t.Fatalf("insert origins failed: %v", err)
	}
	if err := net.CreateGraph(false, true, false); err != nil {
		t.Fatalf("CreateGraph() failed: %v", err)
	}
	return net
}

func corridorOrigins(t *testing.T, net *network.Network) (a, b int) {
	t.Helper()
	ids := net.NodesOfKind(network.NodeKindOrigin)
	if len(ids) != 2 {
		t.Fatalf("origin count = %d, want 2", len(ids))
	}
	return ids[0], ids[1]
}

func TestAccessibilityReach(t *testing.T) {
	net := corridor(t)
	a, b := corridorOrigins(t, net)

	// Radius 120 covers the two nearest destinations per origin.
	res, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 120, Reach: true, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Accessibility() failed: %v", err)
	}
	if got := res.Rows[a].Reach; !approx(got, 9) {
		t.Errorf("origin A reach = %v, want 9", got)
	}
	if got := res.Rows[b].Reach; !approx(got, 10) {
		t.Errorf("origin B reach = %v, want 10", got)
	}

	// A wider radius catches the whole corridor for both origins.
	wide, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 200, Reach: true, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Accessibility() failed: %v", err)
	}
	for _, origin := range []int{a, b} {
		if got := wide.Rows[origin].Reach; !approx(got, 12) {
			t.Errorf("origin %d reach = %v, want 12", origin, got)
		}
	}
}

func TestAccessibilityGravity(t *testing.T) {
	net := corridor(t)
	a, _ := corridorOrigins(t, net)

	beta := 0.01
	res, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 200, Gravity: true, Beta: beta, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Accessibility() failed: %v", err)
	}

	want := 2*math.Exp(-beta*50) + 7*math.Exp(-beta*100) + 3*math.Exp(-beta*150)
	if got := res.Rows[a].Gravity; !approx(got, want) {
		t.Errorf("origin A gravity = %v, want %v", got, want)
	}
}

func TestAccessibilityGravityAlpha(t *testing.T) {
	net := corridor(t)
	a, _ := corridorOrigins(t, net)

	beta := 0.01
	res, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 200, Gravity: true, Alpha: 2, Beta: beta, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Accessibility() failed: %v", err)
	}

	want := 4*math.Exp(-beta*50) + 49*math.Exp(-beta*100) + 9*math.Exp(-beta*150)
	if got := res.Rows[a].Gravity; !approx(got, want) {
		t.Errorf("origin A gravity with alpha 2 = %v, want %v", got, want)
	}
}

func TestAccessibilityClosestFacility(t *testing.T) {
	net := corridor(t)
	a, b := corridorOrigins(t, net)

	res, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 200, Reach: true, ClosestFacility: true, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Accessibility() failed: %v", err)
	}

	// The near destination goes to each origin; the midpoint one sits at
	// distance 100 from both and the lower origin ID keeps it.
	if len(res.Assignment) != 3 {
		t.Fatalf("assignment size = %d, want 3", len(res.Assignment))
	}
	for dest, asg := range res.Assignment {
		w := net.Node(dest).Weight
		switch w {
		case 2:
			if asg.Origin != a || !approx(asg.Distance, 50) {
				t.Errorf("w=2 destination assigned to %d at %v, want %d at 50", asg.Origin, asg.Distance, a)
			}
		case 7:
			if asg.Origin != a || !approx(asg.Distance, 100) {
				t.Errorf("tied destination assigned to %d, want lower origin %d", asg.Origin, a)
			}
		case 3:
			if asg.Origin != b || !approx(asg.Distance, 50) {
				t.Errorf("w=3 destination assigned to %d at %v, want %d at 50", asg.Origin, asg.Distance, b)
			}
		default:
			t.Errorf("unexpected destination weight %v", w)
		}
	}

	if got := res.Rows[a].ClosestReach; !approx(got, 9) {
		t.Errorf("origin A closest reach = %v, want 9", got)
	}
	if got := res.Rows[b].ClosestReach; !approx(got, 3) {
		t.Errorf("origin B closest reach = %v, want 3", got)
	}
}

func TestAccessibilityParallelMatchesSequential(t *testing.T) {
	net := corridor(t)

	seq, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 200, Reach: true, Gravity: true, Beta: 0.01, Workers: 1,
	})
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	par, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 200, Reach: true, Gravity: true, Beta: 0.01, Workers: 4,
	})
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	for origin, want := range seq.Rows {
		got := par.Rows[origin]
		if got == nil || !approx(got.Reach, want.Reach) || !approx(got.Gravity, want.Gravity) {
			t.Errorf("origin %d: parallel row %+v, sequential %+v", origin, got, want)
		}
	}
}

func TestAccessibilityNoOrigins(t *testing.T) {
	net, err := network.Build([]netio.LineFeature{
		{ID: 1, Coords: []geom.Point{pt(0, 0), pt(100, 0)}},
	}, network.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if err := net.InsertNodes([]netio.PointFeature{{ID: 1, Point: pt(50, 5)}}, "shops", network.NodeKindDestination, ""); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := net.CreateGraph(false, true, false); err != nil {
		t.Fatalf("CreateGraph() failed: %v", err)
	}

	_, err = Accessibility(context.Background(), net, AccessibilityOptions{Radius: 100, Reach: true})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestAccessibilityProgress(t *testing.T) {
	net := corridor(t)

	var mu sync.Mutex
	var calls int
	var lastDone, lastTotal int
	_, err := Accessibility(context.Background(), net, AccessibilityOptions{
		Radius: 100, Reach: true, Workers: 2,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			lastDone, lastTotal = done, total
		},
	})
	if err != nil {
		t.Fatalf("Accessibility() failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("progress calls = %d, want 2", calls)
	}
	if lastDone != 2 || lastTotal != 2 {
		t.Errorf("final progress = %d/%d, want 2/2", lastDone, lastTotal)
	}
}

func TestAccessibilityCancelled(t *testing.T) {
	net := corridor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Accessibility(ctx, net, AccessibilityOptions{Radius: 100, Reach: true, Workers: 1}); err == nil {
		t.Error("cancelled context should abort the run")
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
