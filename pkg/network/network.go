// Package network holds the routable street-network model: the node and
// edge tables produced by [Build], origin/destination insertion, and the
// derived graph views searches run against.
//
// The tables are the source of truth. Views (`light`, `d`, `od`) are
// derived adjacency structures rebuilt by [Network.CreateGraph]; analytical
// results are never written back onto the tables.
package network

import (
	"sort"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
	"github.com/urbanweave/streetscope/pkg/netio"
)

// NodeKind classifies a network node.
type NodeKind int

// Node kinds.
const (
	// NodeKindStreet is an intersection or endpoint created by the builder.
	NodeKindStreet NodeKind = iota

	// NodeKindOrigin is an inserted trip origin.
	NodeKindOrigin

	// NodeKindDestination is an inserted trip destination.
	NodeKindDestination
)

var kindNames = map[NodeKind]string{
	NodeKindStreet:      "street",
	NodeKindOrigin:      "origin",
	NodeKindDestination: "destination",
}

// String returns the lowercase kind name.
func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindFromString parses a kind name produced by [NodeKind.String].
func KindFromString(s string) (NodeKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown node kind %q", s)
}

// Node is one row of the node table. Street nodes carry only ID, kind,
// point, and weight; inserted origin/destination nodes additionally record
// where they attach to the street network.
type Node struct {
	ID     int
	Kind   NodeKind
	Point  geom.Point
	Weight float64

	// Provenance of inserted nodes.
	SourceLayer string
	SourceID    int

	// Attachment of inserted nodes to their nearest street edge.
	NearestEdge   int
	EdgeStart     int
	EdgeEnd       int
	EdgeAlong     float64
	WeightToStart float64
	WeightToEnd   float64
}

// Edge is one row of the edge table. ParentStreetID identifies the street
// edge flow should accrue to; for builder-created edges it is the edge's
// own ID, and split halves inherit it from the edge they were cut from.
type Edge struct {
	ID             int
	Start          int
	End            int
	Geometry       geom.Polyline
	Weight         float64
	ParentStreetID int
}

// Network is the store: node and edge tables, a spatial index over street
// edges, and the derived views.
type Network struct {
	nodes map[int]*Node
	edges map[int]*Edge

	nextNodeID int
	nextEdgeID int

	index  *geom.Index
	layers map[string][]int
	views  map[string]*View

	opts BuildOptions
}

// Node returns the node with the given ID, or nil.
func (n *Network) Node(id int) *Node { return n.nodes[id] }

// Edge returns the edge with the given ID, or nil.
func (n *Network) Edge(id int) *Edge { return n.edges[id] }

// NodeCount returns the number of nodes in the table.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of edges in the table.
func (n *Network) EdgeCount() int { return len(n.edges) }

// NodeIDs returns all node IDs in ascending order.
func (n *Network) NodeIDs() []int {
	ids := make([]int, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// EdgeIDs returns all edge IDs in ascending order.
func (n *Network) EdgeIDs() []int {
	ids := make([]int, 0, len(n.edges))
	for id := range n.edges {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NodesOfKind returns the IDs of all nodes of the given kind, ascending.
func (n *Network) NodesOfKind(kind NodeKind) []int {
	var ids []int
	for id, node := range n.nodes {
		if node.Kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Layer returns the node IDs inserted under the given layer name, ascending.
func (n *Network) Layer(name string) ([]int, error) {
	ids, ok := n.layers[name]
	if !ok {
		names := make([]string, 0, len(n.layers))
		for k := range n.layers {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, errors.New(errors.ErrCodeUnknownLayer, "layer %q not found, available layers: %v", name, names)
	}
	out := make([]int, len(ids))
	copy(out, ids)
	sort.Ints(out)
	return out, nil
}

// newNodeID hands out the next node ID. IDs are never reused, even after
// view rebuilds.
func (n *Network) newNodeID() int {
	id := n.nextNodeID
	n.nextNodeID++
	return id
}

// newEdgeID hands out the next edge ID.
func (n *Network) newEdgeID() int {
	id := n.nextEdgeID
	n.nextEdgeID++
	return id
}

// addNode inserts a node, keeping the ID counter ahead of the table.
func (n *Network) addNode(node *Node) {
	n.nodes[node.ID] = node
	if node.ID >= n.nextNodeID {
		n.nextNodeID = node.ID + 1
	}
}

// addEdge inserts an edge and registers its geometry in the spatial index.
func (n *Network) addEdge(edge *Edge) {
	n.edges[edge.ID] = edge
	n.index.Insert(edge.ID, edge.Geometry)
	if edge.ID >= n.nextEdgeID {
		n.nextEdgeID = edge.ID + 1
	}
}

// removeEdge drops an edge from the table and the spatial index.
func (n *Network) removeEdge(id int) {
	delete(n.edges, id)
	n.index.Remove(id)
}

// Snapshot converts the tables into the serialization document.
func (n *Network) Snapshot() netio.NetworkDoc {
	doc := netio.NetworkDoc{
		Nodes: make([]netio.NodeDoc, 0, len(n.nodes)),
		Edges: make([]netio.EdgeDoc, 0, len(n.edges)),
	}
	for _, id := range n.NodeIDs() {
		node := n.nodes[id]
		doc.Nodes = append(doc.Nodes, netio.NodeDoc{
			ID:            node.ID,
			Kind:          node.Kind.String(),
			Point:         node.Point,
			Weight:        node.Weight,
			SourceLayer:   node.SourceLayer,
			SourceID:      node.SourceID,
			NearestEdge:   node.NearestEdge,
			EdgeStart:     node.EdgeStart,
			EdgeEnd:       node.EdgeEnd,
			EdgeAlong:     node.EdgeAlong,
			WeightToStart: node.WeightToStart,
			WeightToEnd:   node.WeightToEnd,
		})
	}
	for _, id := range n.EdgeIDs() {
		edge := n.edges[id]
		doc.Edges = append(doc.Edges, netio.EdgeDoc{
			ID:             edge.ID,
			Start:          edge.Start,
			End:            edge.End,
			Coords:         edge.Geometry.Points,
			Weight:         edge.Weight,
			ParentStreetID: edge.ParentStreetID,
		})
	}
	return doc
}

// FromSnapshot rebuilds a network from a serialization document. Views are
// not part of the snapshot and must be recreated with [Network.CreateGraph].
func FromSnapshot(doc netio.NetworkDoc, opts BuildOptions) (*Network, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	net := newNetwork(opts)
	for _, nd := range doc.Nodes {
		kind, err := KindFromString(nd.Kind)
		if err != nil {
			return nil, err
		}
		net.addNode(&Node{
			ID:            nd.ID,
			Kind:          kind,
			Point:         nd.Point,
			Weight:        nd.Weight,
			SourceLayer:   nd.SourceLayer,
			SourceID:      nd.SourceID,
			NearestEdge:   nd.NearestEdge,
			EdgeStart:     nd.EdgeStart,
			EdgeEnd:       nd.EdgeEnd,
			EdgeAlong:     nd.EdgeAlong,
			WeightToStart: nd.WeightToStart,
			WeightToEnd:   nd.WeightToEnd,
		})
		if nd.SourceLayer != "" {
			net.layers[nd.SourceLayer] = append(net.layers[nd.SourceLayer], nd.ID)
		}
	}
	for _, ed := range doc.Edges {
		line, err := geom.NewPolyline(ed.Coords)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s geometry", errors.FormatID(ed.ID))
		}
		if _, ok := net.nodes[ed.Start]; !ok {
			return nil, errors.New(errors.ErrCodeUnknownNode, "edge %s references missing start node %s",
				errors.FormatID(ed.ID), errors.FormatID(ed.Start))
		}
		if _, ok := net.nodes[ed.End]; !ok {
			return nil, errors.New(errors.ErrCodeUnknownNode, "edge %s references missing end node %s",
				errors.FormatID(ed.ID), errors.FormatID(ed.End))
		}
		net.addEdge(&Edge{
			ID:             ed.ID,
			Start:          ed.Start,
			End:            ed.End,
			Geometry:       line,
			Weight:         ed.Weight,
			ParentStreetID: ed.ParentStreetID,
		})
	}
	return net, nil
}

func newNetwork(opts BuildOptions) *Network {
	cell := opts.IndexCellSize
	if cell <= 0 {
		cell = defaultIndexCellSize
	}
	return &Network{
		nodes:  make(map[int]*Node),
		edges:  make(map[int]*Edge),
		index:  geom.NewIndex(cell),
		layers: make(map[string][]int),
		views:  make(map[string]*View),
		opts:   opts,
	}
}
