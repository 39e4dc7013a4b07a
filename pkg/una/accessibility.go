package una

import (
	"context"
	"sync"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/search"
)

// OriginAccess is the accessibility row for one origin.
type OriginAccess struct {
	Origin int `json:"origin" bson:"origin"`

	// Reach and Gravity aggregate over every destination within the
	// radius.
	Reach   float64 `json:"reach" bson:"reach"`
	Gravity float64 `json:"gravity,omitempty" bson:"gravity,omitempty"`

	// ClosestReach and ClosestGravity aggregate only over destinations
	// assigned to this origin by the closest-facility pass.
	ClosestReach   float64 `json:"closest_reach,omitempty" bson:"closest_reach,omitempty"`
	ClosestGravity float64 `json:"closest_gravity,omitempty" bson:"closest_gravity,omitempty"`
}

// Assignment records which origin a destination was assigned to by the
// closest-facility pass.
type Assignment struct {
	Origin   int     `json:"origin" bson:"origin"`
	Distance float64 `json:"distance" bson:"distance"`
}

// AccessibilityResult holds per-origin accessibility rows and, when
// closest-facility was requested, the destination assignment.
type AccessibilityResult struct {
	Rows       map[int]*OriginAccess `json:"rows" bson:"rows"`
	Assignment map[int]Assignment    `json:"assignment,omitempty" bson:"assignment,omitempty"`
}

// Accessibility computes reach, gravity, and closest-facility metrics for
// every origin in the network over the `d` view.
//
// Each origin is searched with a plain bounded Dijkstra (detour ratio 1, no
// turn penalty); reach accumulates destination weights, gravity accumulates
// w^alpha·e^(−beta·d). The closest-facility pass assigns every destination
// to its strictly nearest origin — on equal distance the lower origin ID
// keeps it — and then recomputes both metrics per origin over assigned
// destinations only. Parallel runs produce the same result as sequential
// ones.
func Accessibility(ctx context.Context, net *network.Network, opts AccessibilityOptions) (*AccessibilityResult, error) {
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
	reached := make(map[int]map[int]float64, len(origins))

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
				mu.Lock()
				reached[origin] = res.Destinations
				mu.Unlock()
				return nil
			}, nil
		})
	if err != nil {
		return nil, err
	}

	return aggregateAccessibility(net, origins, reached, &opts), nil
}

// aggregateAccessibility folds per-origin destination distances into the
// result rows. Iteration is in ascending origin order so the
// closest-facility tie rule is deterministic.
func aggregateAccessibility(net *network.Network, origins []int, reached map[int]map[int]float64, opts *AccessibilityOptions) *AccessibilityResult {
	out := &AccessibilityResult{Rows: make(map[int]*OriginAccess, len(origins))}

	for _, origin := range origins {
		row := &OriginAccess{Origin: origin}
		for dest, dist := range reached[origin] {
			w := net.Node(dest).Weight
			if opts.Reach {
				row.Reach += w
			}
			if opts.Gravity {
				row.Gravity += opts.gravityTerm(w, dist)
			}
		}
		out.Rows[origin] = row
	}

	if !opts.ClosestFacility {
		return out
	}

	out.Assignment = make(map[int]Assignment)
	for _, origin := range origins {
		for dest, dist := range reached[origin] {
			cur, taken := out.Assignment[dest]
			if !taken || dist < cur.Distance {
				out.Assignment[dest] = Assignment{Origin: origin, Distance: dist}
			}
		}
	}
	for dest, a := range out.Assignment {
		row := out.Rows[a.Origin]
		w := net.Node(dest).Weight
		row.ClosestReach += w
		if opts.Gravity {
			row.ClosestGravity += opts.gravityTerm(w, a.Distance)
		}
	}
	return out
}
