package network

import (
	"math"
	"sort"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/observability"
)

// RedundantEdgePolicy selects how parallel edges between the same node pair
// are resolved.
type RedundantEdgePolicy string

// Redundant-edge policies.
const (
	// RedundantKeep leaves every parallel edge in place.
	RedundantKeep RedundantEdgePolicy = "keep"

	// RedundantDiscard keeps only the lowest-weight member of each group.
	RedundantDiscard RedundantEdgePolicy = "discard"

	// RedundantSplit keeps the lowest-ID member intact and splits every
	// other member at its midpoint so the pair constraint holds without
	// losing connectivity.
	RedundantSplit RedundantEdgePolicy = "split"
)

// Defaults applied by [BuildOptions.ValidateAndSetDefaults].
const (
	DefaultRedundantEdges      = RedundantSplit
	DefaultTurnThresholdDegree = 45.0
	DefaultTurnPenaltyAmount   = 30.0

	defaultIndexCellSize = 100.0
)

// BuildOptions configures [Build].
type BuildOptions struct {
	// WeightAttribute names the line attribute to use as edge weight.
	// Empty means geometric length.
	WeightAttribute string

	// Tolerance is the snapping distance for merging line endpoints into
	// shared nodes. Zero means exact coordinate match.
	Tolerance float64

	// RedundantEdges selects the parallel-edge policy. Defaults to split.
	RedundantEdges RedundantEdgePolicy

	// TurnThresholdDegree and TurnPenaltyAmount are the network-level
	// defaults for turn-penalized searches. Threshold is in [0, 180].
	TurnThresholdDegree float64
	TurnPenaltyAmount   float64

	// IndexCellSize is the spatial-index grid cell size, in the same units
	// as the input coordinates. Defaults to 100.
	IndexCellSize float64

	validated bool
}

// ValidateAndSetDefaults validates the options and fills defaults.
// It is idempotent.
func (o *BuildOptions) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if err := errors.ValidateNonNegative("tolerance", o.Tolerance); err != nil {
		return err
	}
	if o.RedundantEdges == "" {
		o.RedundantEdges = DefaultRedundantEdges
	}
	if err := errors.ValidateChoice("redundant_edges", string(o.RedundantEdges),
		[]string{string(RedundantKeep), string(RedundantDiscard), string(RedundantSplit)}); err != nil {
		return err
	}
	if o.TurnThresholdDegree == 0 {
		o.TurnThresholdDegree = DefaultTurnThresholdDegree
	}
	if err := errors.ValidateRange("turn_threshold_degree", o.TurnThresholdDegree, 0, 180); err != nil {
		return err
	}
	if o.TurnPenaltyAmount == 0 {
		o.TurnPenaltyAmount = DefaultTurnPenaltyAmount
	}
	if err := errors.ValidateNonNegative("turn_penalty_amount", o.TurnPenaltyAmount); err != nil {
		return err
	}
	if o.IndexCellSize == 0 {
		o.IndexCellSize = defaultIndexCellSize
	}
	if err := errors.ValidatePositive("index_cell_size", o.IndexCellSize); err != nil {
		return err
	}

	o.validated = true
	return nil
}

// TurnThreshold returns the network-level turn threshold in degrees.
func (n *Network) TurnThreshold() float64 { return n.opts.TurnThresholdDegree }

// TurnPenalty returns the network-level turn penalty amount.
func (n *Network) TurnPenalty() float64 { return n.opts.TurnPenaltyAmount }

// Build constructs node and edge tables from street centerlines.
//
// Endpoints within the snapping tolerance collapse into a shared node
// (tolerance 0 means exact coordinate equality). Edge weights come from the
// named attribute, or from geometric length when no attribute is named.
// Parallel edges between the same unordered node pair are then resolved
// according to the redundancy policy.
func Build(lines []netio.LineFeature, opts BuildOptions) (*Network, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no line features to build from")
	}

	net := newNetwork(opts)
	snap := newSnapper(opts.Tolerance)

	for _, line := range lines {
		poly, err := geom.NewPolyline(line.Coords)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeBuildFailed, err, "line feature %s", errors.FormatID(line.ID))
		}

		weight := poly.Length
		if opts.WeightAttribute != "" {
			v, ok := line.Attributes[opts.WeightAttribute]
			if !ok {
				return nil, errors.New(errors.ErrCodeUnknownAttribute,
					"weight_attribute %q not found on line feature %s",
					opts.WeightAttribute, errors.FormatID(line.ID))
			}
			if v < 0 {
				return nil, errors.New(errors.ErrCodeInvalidRange,
					"weight_attribute %q on line feature %s must be >= 0, got %g",
					opts.WeightAttribute, errors.FormatID(line.ID), v)
			}
			weight = v
		}

		start := snap.nodeFor(net, poly.Start())
		end := snap.nodeFor(net, poly.End())

		id := net.newEdgeID()
		net.addEdge(&Edge{
			ID:             id,
			Start:          start,
			End:            end,
			Geometry:       poly,
			Weight:         weight,
			ParentStreetID: id,
		})
	}

	if err := net.resolveRedundantEdges(opts.RedundantEdges); err != nil {
		return nil, err
	}

	observability.Network().OnBuildComplete(len(lines), net.NodeCount(), net.EdgeCount())
	return net, nil
}

// snapper merges nearby endpoints into shared nodes. With tolerance t > 0
// coordinates are quantized onto a grid of cell size t; tolerance 0 keys on
// the exact coordinates.
//
// Quantization is an approximation of true distance-based merging: two
// endpoints closer than t that straddle a cell boundary land in different
// cells and stay separate nodes, while endpoints up to t apart inside one
// cell merge. Centerline data digitized with a shared junction point snaps
// identically either way, and the grid keeps the build a single O(1) map
// lookup per endpoint.
type snapper struct {
	tolerance float64
	byKey     map[[2]float64]int
}

func newSnapper(tolerance float64) *snapper {
	return &snapper{
		tolerance: tolerance,
		byKey:     make(map[[2]float64]int),
	}
}

func (s *snapper) key(p geom.Point) [2]float64 {
	if s.tolerance == 0 {
		return [2]float64{p.X, p.Y}
	}
	return [2]float64{
		math.Round(p.X / s.tolerance),
		math.Round(p.Y / s.tolerance),
	}
}

// nodeFor returns the node ID for a point, creating a street node on first
// sight. The node keeps the first-seen coordinates of its snap cell.
func (s *snapper) nodeFor(net *Network, p geom.Point) int {
	key := s.key(p)
	if id, ok := s.byKey[key]; ok {
		return id
	}
	id := net.newNodeID()
	net.addNode(&Node{
		ID:     id,
		Kind:   NodeKindStreet,
		Point:  p,
		Weight: 1,
	})
	s.byKey[key] = id
	return id
}

// resolveRedundantEdges enforces the at-most-one-edge-per-unordered-pair
// constraint according to policy.
func (n *Network) resolveRedundantEdges(policy RedundantEdgePolicy) error {
	if policy == RedundantKeep {
		return nil
	}

	groups := make(map[[2]int][]int)
	for _, id := range n.EdgeIDs() {
		e := n.edges[id]
		a, b := e.Start, e.End
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		groups[key] = append(groups[key], id)
	}

	keys := make([][2]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, key := range keys {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		sort.Ints(ids)

		switch policy {
		case RedundantDiscard:
			keep := ids[0]
			for _, id := range ids[1:] {
				if e := n.edges[id]; e.Weight < n.edges[keep].Weight {
					keep = id
				}
			}
			for _, id := range ids {
				if id != keep {
					n.removeEdge(id)
				}
			}

		case RedundantSplit:
			// Lowest-ID member stays intact; every other member is cut at
			// its midpoint through a new street node, so no pair carries
			// more than one direct edge.
			for _, id := range ids[1:] {
				if err := n.splitEdge(id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// splitEdge replaces an edge with two halves joined at a new street node at
// the geometric midpoint. Each half carries half the original weight and
// inherits the original's parent street ID.
func (n *Network) splitEdge(id int) error {
	e := n.edges[id]
	first, second, err := e.Geometry.Cut(e.Geometry.Length / 2)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBuildFailed, err, "split edge %s", errors.FormatID(id))
	}

	mid := n.newStreetNode(first.End())

	n.removeEdge(id)
	half := e.Weight / 2
	firstID := n.newEdgeID()
	n.addEdge(&Edge{
		ID:             firstID,
		Start:          e.Start,
		End:            mid,
		Geometry:       first,
		Weight:         half,
		ParentStreetID: e.ParentStreetID,
	})
	secondID := n.newEdgeID()
	n.addEdge(&Edge{
		ID:             secondID,
		Start:          mid,
		End:            e.End,
		Geometry:       second,
		Weight:         half,
		ParentStreetID: e.ParentStreetID,
	})
	return nil
}

func (n *Network) newStreetNode(p geom.Point) int {
	id := n.newNodeID()
	n.addNode(&Node{
		ID:     id,
		Kind:   NodeKindStreet,
		Point:  p,
		Weight: 1,
	})
	return id
}
