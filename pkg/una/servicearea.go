package una

import (
	"context"
	"sort"
	"sync"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/search"
)

// ServiceAreaOptions configures [ServiceArea].
type ServiceAreaOptions struct {
	// Radius is the search bound. Must be > 0.
	Radius float64

	// Workers sizes the worker pool. Defaults to the CPU count.
	Workers int

	// Progress, when set, is called after each origin completes.
	Progress Progress

	validated bool
}

// ValidateAndSetDefaults validates the options and fills defaults.
func (o *ServiceAreaOptions) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidatePositive("radius", o.Radius); err != nil {
		return err
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidRange, "workers must be >= 0, got %d", o.Workers)
	}
	o.validated = true
	return nil
}

// OriginServiceArea is the set of network nodes and destinations one
// origin reaches within the radius. Hull drawing around the node set is
// left to external geometry tooling.
type OriginServiceArea struct {
	Origin       int     `json:"origin" bson:"origin"`
	Nodes        []int   `json:"nodes" bson:"nodes"`
	Destinations []int   `json:"destinations" bson:"destinations"`
	MaxDistance  float64 `json:"max_distance" bson:"max_distance"`
}

// ServiceArea computes per-origin service areas over the `d` view.
func ServiceArea(ctx context.Context, net *network.Network, opts ServiceAreaOptions) (map[int]*OriginServiceArea, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	view, err := net.View(network.ViewD)
	if err != nil {
		return nil, err
	}
	origins := net.NodesOfKind(network.NodeKindOrigin)
	if len(origins) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "network has no origin nodes")
	}

	var mu sync.Mutex
	out := make(map[int]*OriginServiceArea, len(origins))

	searchOpts := search.Options{Radius: opts.Radius}
	err = runOrigins(ctx, origins, opts.Workers, opts.Progress,
		func() (func(ctx context.Context, origin int) error, error) {
			worker, err := view.Clone()
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, origin int) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := worker.AddNodeToGraph(origin); err != nil {
					return err
				}
				res, err := search.Scope(worker, origin, searchOpts)
				if err != nil {
					worker.RemoveNodeToGraph(origin)
					return err
				}
				if err := worker.RemoveNodeToGraph(origin); err != nil {
					return err
				}

				area := &OriginServiceArea{Origin: origin}
				for node, dist := range res.Scope {
					if node == origin {
						continue
					}
					area.Nodes = append(area.Nodes, node)
					if dist > area.MaxDistance {
						area.MaxDistance = dist
					}
				}
				for dest := range res.Destinations {
					area.Destinations = append(area.Destinations, dest)
				}
				sort.Ints(area.Nodes)
				sort.Ints(area.Destinations)

				mu.Lock()
				out[origin] = area
				mu.Unlock()
				return nil
			}, nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
