package search

import (
	"container/heap"
	"time"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/observability"
)

// state identifies one search state. Without the turn penalty inEdge is
// always -1 and the state collapses to the node; with it, the incoming
// segment is part of the identity because the cost of leaving a node
// depends on how it was entered.
type state struct {
	node   int
	inEdge int
}

type pqItem struct {
	state  state
	dist   float64
	arrive geom.Vec
	index  int
}

// nodePQ is a min-heap over search states ordered by distance. Ties break
// on node then incoming edge so pop order is deterministic.
type nodePQ []*pqItem

func (pq nodePQ) Len() int { return len(pq) }

func (pq nodePQ) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	if pq[i].state.node != pq[j].state.node {
		return pq[i].state.node < pq[j].state.node
	}
	return pq[i].state.inEdge < pq[j].state.inEdge
}

func (pq nodePQ) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *nodePQ) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *nodePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

type predecessor struct {
	prev state
	edge int
}

// Scope runs a bounded multi-destination Dijkstra from an origin already
// present in the view (transient origins must be spliced by the caller).
//
// Expansion stops at Radius×DetourRatio; destination nodes are recorded
// with their distance when first settled within Radius. With TurnPenalty
// the search state is (node, incoming segment) and traversal cost includes
// the turn penalty; a node's scope distance is the distance of its first
// settled state. First-discovered minima stand on ties.
func Scope(view *network.View, originID int, opts Options) (Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Result{}, err
	}
	if !view.HasNode(originID) {
		return Result{}, errors.New(errors.ErrCodeUnknownNode,
			"origin %s does not participate in view %q", errors.FormatID(originID), view.Name())
	}

	started := time.Now()
	net := view.Network()
	cutoff := opts.Radius * opts.DetourRatio

	res := Result{
		Origin:       originID,
		Destinations: make(map[int]float64),
		Scope:        make(map[int]float64),
	}
	if opts.ReturnPaths {
		res.Paths = make(map[int][]int)
	}

	visited := make(map[state]bool)
	best := make(map[state]float64)
	preds := make(map[state]predecessor)

	pq := &nodePQ{}
	heap.Init(pq)
	start := state{node: originID, inEdge: -1}
	heap.Push(pq, &pqItem{state: start, dist: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		if item.dist > cutoff {
			break
		}
		if visited[item.state] {
			continue
		}
		visited[item.state] = true

		nodeID := item.state.node
		if _, seen := res.Scope[nodeID]; !seen {
			res.Scope[nodeID] = item.dist

			if node := net.Node(nodeID); node != nil &&
				node.Kind == network.NodeKindDestination && item.dist <= opts.Radius {
				res.Destinations[nodeID] = item.dist
				if opts.ReturnPaths {
					res.Paths[nodeID] = tracePath(preds, item.state)
				}
			}
		}

		for _, arc := range view.Arcs(nodeID) {
			cost := arc.Weight
			if opts.TurnPenalty && item.state.inEdge >= 0 &&
				geom.Deviation(item.arrive, arc.Depart) > opts.TurnThresholdDegree {
				cost += opts.TurnPenaltyAmount
			}
			next := state{node: arc.To}
			if opts.TurnPenalty {
				next.inEdge = arc.Edge
			} else {
				next.inEdge = -1
			}
			nd := item.dist + cost
			if nd > cutoff || visited[next] {
				continue
			}
			// Lazy decrease-key: duplicates are pushed and stale pops are
			// skipped via the visited set. Strict < keeps the
			// first-discovered minimum on ties.
			if prev, ok := best[next]; ok && nd >= prev {
				continue
			}
			best[next] = nd
			preds[next] = predecessor{prev: item.state, edge: arc.Edge}
			heap.Push(pq, &pqItem{state: next, dist: nd, arrive: arc.Arrive})
		}
	}

	observability.Search().OnScopeComplete(originID, len(res.Scope), len(res.Destinations), time.Since(started))
	return res, nil
}

// tracePath walks predecessor records back to the origin and returns the
// segment edge IDs in travel order.
func tracePath(preds map[state]predecessor, end state) []int {
	var rev []int
	cur := end
	for {
		p, ok := preds[cur]
		if !ok {
			break
		}
		rev = append(rev, p.edge)
		cur = p.prev
	}
	path := make([]int, len(rev))
	for i, e := range rev {
		path[len(rev)-1-i] = e
	}
	return path
}
