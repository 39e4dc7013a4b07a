package network

import (
	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/observability"
)

// InsertNodes projects point features onto their nearest street edge and
// records them as origin or destination nodes under the given layer name.
//
// Each inserted node sits at the projection foot on the edge geometry; its
// split weights satisfy WeightToStart + WeightToEnd == edge weight, with
// WeightToStart proportional to the along-edge position. Node weight comes
// from the named attribute, or 1 when no attribute is named. The whole
// batch fails on the first invalid feature; nothing is inserted in that
// case.
func (n *Network) InsertNodes(points []netio.PointFeature, layer string, kind NodeKind, weightAttribute string) error {
	if kind != NodeKindOrigin && kind != NodeKindDestination {
		return errors.New(errors.ErrCodeInvalidInput,
			"kind must be %q or %q, got %q", NodeKindOrigin, NodeKindDestination, kind)
	}
	if err := errors.ValidateLayerName(layer); err != nil {
		return err
	}
	if _, taken := n.layers[layer]; taken {
		return errors.New(errors.ErrCodeInvalidInput, "layer %q already exists", layer)
	}
	if len(n.edges) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "network has no edges to attach to")
	}

	// Validate the whole batch before touching the tables.
	if weightAttribute != "" {
		for _, pf := range points {
			if _, ok := pf.Attributes[weightAttribute]; !ok {
				return errors.New(errors.ErrCodeUnknownAttribute,
					"weight_attribute %q not found on point feature %s in layer %q",
					weightAttribute, errors.FormatID(pf.ID), layer)
			}
		}
	}

	ids := make([]int, 0, len(points))
	for _, pf := range points {
		edgeID, _, ok := n.index.Nearest(pf.Point)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "no edge found near point feature %s", errors.FormatID(pf.ID))
		}
		edge := n.edges[edgeID]

		along, foot, _ := edge.Geometry.Project(pf.Point)
		frac := 0.0
		if edge.Geometry.Length > 0 {
			frac = along / edge.Geometry.Length
		}
		toStart := edge.Weight * frac

		weight := 1.0
		if weightAttribute != "" {
			weight = pf.Attributes[weightAttribute]
		}

		id := n.newNodeID()
		n.addNode(&Node{
			ID:            id,
			Kind:          kind,
			Point:         foot,
			Weight:        weight,
			SourceLayer:   layer,
			SourceID:      pf.ID,
			NearestEdge:   edgeID,
			EdgeStart:     edge.Start,
			EdgeEnd:       edge.End,
			EdgeAlong:     along,
			WeightToStart: toStart,
			WeightToEnd:   edge.Weight - toStart,
		})
		ids = append(ids, id)
	}

	n.layers[layer] = ids
	observability.Network().OnInsertComplete(layer, len(ids))
	return nil
}
