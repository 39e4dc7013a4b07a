package una

import (
	"context"
	"reflect"
	"testing"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/network"
)

func TestServiceArea(t *testing.T) {
	net := loop(t)
	origin := net.NodesOfKind(network.NodeKindOrigin)[0]
	dest := net.NodesOfKind(network.NodeKindDestination)[0]

	res, err := ServiceArea(context.Background(), net, ServiceAreaOptions{Radius: 160, Workers: 1})
	if err != nil {
		t.Fatalf("ServiceArea() failed: %v", err)
	}
	area := res[origin]
	if area == nil {
		t.Fatal("no area for origin")
	}

	// All four corners plus the destination lie within 160; the origin
	// itself is not listed.
	if len(area.Nodes) != 5 {
		t.Errorf("reached nodes = %v, want 5 entries", area.Nodes)
	}
	for _, n := range area.Nodes {
		if n == origin {
			t.Error("origin listed in its own service area")
		}
	}
	if !reflect.DeepEqual(area.Destinations, []int{dest}) {
		t.Errorf("destinations = %v, want [%d]", area.Destinations, dest)
	}
	// The far corners sit at exactly 150.
	if !approx(area.MaxDistance, 150) {
		t.Errorf("max distance = %v, want 150", area.MaxDistance)
	}
	if !sortedAscending(area.Nodes) {
		t.Errorf("nodes not sorted: %v", area.Nodes)
	}
}

func TestServiceAreaTightRadius(t *testing.T) {
	net := loop(t)
	origin := net.NodesOfKind(network.NodeKindOrigin)[0]

	// Nothing lies within 40 of the origin.
	res, err := ServiceArea(context.Background(), net, ServiceAreaOptions{Radius: 40, Workers: 1})
	if err != nil {
		t.Fatalf("ServiceArea() failed: %v", err)
	}
	area := res[origin]
	if area == nil {
		t.Fatal("no area for origin")
	}
	if len(area.Nodes) != 0 || len(area.Destinations) != 0 {
		t.Errorf("area should be empty, got nodes %v dests %v", area.Nodes, area.Destinations)
	}
	if area.MaxDistance != 0 {
		t.Errorf("max distance = %v, want 0", area.MaxDistance)
	}
}

func TestServiceAreaPerOrigin(t *testing.T) {
	net := corridor(t)
	a, b := corridorOrigins(t, net)

	res, err := ServiceArea(context.Background(), net, ServiceAreaOptions{Radius: 120, Workers: 2})
	if err != nil {
		t.Fatalf("ServiceArea() failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("areas = %d, want 2", len(res))
	}

	// Each origin reaches its two nearest destinations.
	if got := len(res[a].Destinations); got != 2 {
		t.Errorf("origin A destinations = %d, want 2", got)
	}
	if got := len(res[b].Destinations); got != 2 {
		t.Errorf("origin B destinations = %d, want 2", got)
	}
}

func TestServiceAreaNoOrigins(t *testing.T) {
	net, err := network.Build([]netio.LineFeature{
		{ID: 1, Coords: []geom.Point{pt(0, 0), pt(100, 0)}},
	}, network.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if err := net.CreateGraph(false, true, false); err != nil {
		t.Fatalf("CreateGraph() failed: %v", err)
	}

	_, err = ServiceArea(context.Background(), net, ServiceAreaOptions{Radius: 100})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func sortedAscending(v []int) bool {
	for i := 1; i < len(v); i++ {
		if v[i] < v[i-1] {
			return false
		}
	}
	return true
}
