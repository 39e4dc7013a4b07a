package una

import (
	"context"
	"sort"
	"sync"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/search"
)

// BetweennessResult maps street edge IDs to accumulated flow. Flow over a
// spliced half-segment accrues to its parent street edge, so the keys are
// always IDs from the network's edge table.
type BetweennessResult struct {
	Flow map[int]float64 `json:"flow" bson:"flow"`
}

// Betweenness assigns origin-to-destination flow onto street edges.
//
// Per origin: a turn-aware bounded scope finds the destinations in radius;
// the nearest DestinationCap of them are kept; every admissible alternative
// path within the detour budget is enumerated; path weights (per
// PathDetourPenalty) are normalized per destination; and the destination's
// contribution — origin weight × destination weight × decay × KNN weight —
// is spread over the paths' edges. Per-origin flows are summed, so parallel
// and sequential runs produce identical results.
func Betweenness(ctx context.Context, net *network.Network, opts BetweennessOptions) (*BetweennessResult, error) {
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

	searchOpts := search.Options{
		Radius:              opts.Radius,
		DetourRatio:         opts.DetourRatio,
		TurnPenalty:         opts.TurnPenalty,
		TurnThresholdDegree: opts.TurnThresholdDegree,
		TurnPenaltyAmount:   opts.TurnPenaltyAmount,
	}

	var mu sync.Mutex
	total := make(map[int]float64)

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
				flow, err := originFlow(worker, origin, net, &opts, searchOpts)
				if err != nil {
					return err
				}
				mu.Lock()
				for edge, f := range flow {
					total[edge] += f
				}
				mu.Unlock()
				return nil
			}, nil
		})
	if err != nil {
		return nil, err
	}

	return &BetweennessResult{Flow: total}, nil
}

// originFlow computes one origin's flow contribution, keyed by parent
// street edge ID. The origin splice is closed before returning, so the
// parent lookup for transient segments has to happen while the splice is
// still open.
func originFlow(worker *network.View, origin int, net *network.Network, opts *BetweennessOptions, searchOpts search.Options) (map[int]float64, error) {
	if err := worker.AddNodeToGraph(origin); err != nil {
		return nil, err
	}
	defer worker.RemoveNodeToGraph(origin)

	scope, err := search.Scope(worker, origin, searchOpts)
	if err != nil {
		return nil, err
	}

	dests := nearestFirst(scope.Destinations, opts.DestinationCap)
	if len(dests) == 0 {
		return nil, nil
	}

	budget := make(map[int]float64, len(dests))
	for _, d := range dests {
		budget[d.id] = d.dist
	}
	paths, err := search.EnumeratePaths(worker, origin, budget, searchOpts)
	if err != nil {
		return nil, err
	}

	originWeight := net.Node(origin).Weight
	flow := make(map[int]float64)
	assigned := 0.0

	for rank, d := range dests {
		destPaths := paths[d.id]
		if len(destPaths) == 0 {
			continue
		}

		weights := make([]float64, len(destPaths))
		sum := 0.0
		for i, p := range destPaths {
			weights[i] = opts.pathWeight(p.Length, d.dist)
			sum += weights[i]
		}
		if sum == 0 {
			continue
		}

		contribution := originWeight * net.Node(d.id).Weight *
			opts.decay(d.dist) * opts.knn(rank, d.dist)
		assigned += contribution

		for i, p := range destPaths {
			share := contribution * weights[i] / sum
			for _, edge := range p.Edges {
				flow[worker.ParentOf(edge)] += share
			}
		}
	}

	if opts.ElasticWeight && assigned > 0 {
		factor := originWeight / assigned
		for edge := range flow {
			flow[edge] *= factor
		}
	}
	return flow, nil
}

type destDist struct {
	id   int
	dist float64
}

// nearestFirst orders reached destinations by distance (ties by ID) and
// applies the destination cap.
func nearestFirst(dests map[int]float64, cap int) []destDist {
	out := make([]destDist, 0, len(dests))
	for id, dist := range dests {
		out = append(out, destDist{id: id, dist: dist})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dist != out[j].dist {
			return out[i].dist < out[j].dist
		}
		return out[i].id < out[j].id
	})
	if cap > 0 && len(out) > cap {
		out = out[:cap]
	}
	return out
}
