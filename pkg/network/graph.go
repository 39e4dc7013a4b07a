package network

import (
	"sort"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/geom"
)

// View names understood by [Network.CreateGraph].
const (
	// ViewLight holds street nodes and street edges only.
	ViewLight = "light"

	// ViewD adds destinations, spliced into their nearest edge.
	ViewD = "d"

	// ViewOD adds both destinations and origins, all permanently spliced.
	ViewOD = "od"
)

// Arc is one directed adjacency entry. Edge identifies the traversed
// segment within the view; Depart is the motion direction leaving the
// from-node and Arrive the motion direction entering To, both feeding
// turn-angle computation.
type Arc struct {
	To     int
	Edge   int
	Weight float64
	Depart geom.Vec
	Arrive geom.Vec
}

// chainMember is one node threaded onto a street edge: the edge's own
// endpoints plus every node spliced into it, ordered by along position.
type chainMember struct {
	node    int
	along   float64
	toStart float64
}

// chain records how one street edge is currently subdivided in a view.
// segIDs[i] is the view-local edge ID of the segment between members i
// and i+1.
type chain struct {
	edge    *Edge
	members []chainMember
	segIDs  []int
}

// View is a derived adjacency structure over the network tables. Views are
// rebuilt only by [Network.CreateGraph]; the only mutation they support is
// the transient origin splice bracketing a single search.
type View struct {
	name    string
	net     *Network
	adj     map[int][]Arc
	chains  map[int]*chain
	parent  map[int]int
	nextSeg int

	transient *transientSplice
}

// transientSplice records everything needed to restore a view exactly
// after a temporary origin splice.
type transientSplice struct {
	origin    int
	edgeID    int
	madeChain bool
	pos       int
	oldSegID  int
	segA      int
	segB      int
	removed   []removedArc
}

type removedArc struct {
	from  int
	index int
	arc   Arc
}

// CreateGraph rebuilds the requested views from the current tables. At
// least one view must be requested; rebuilding is idempotent and drops any
// previous version of the requested views.
func (n *Network) CreateGraph(light, d, od bool) error {
	if !light && !d && !od {
		return errors.New(errors.ErrCodeInvalidInput, "no view requested: set at least one of light, d, od")
	}
	if light {
		n.views[ViewLight] = n.buildView(ViewLight, false, false)
	}
	if d {
		n.views[ViewD] = n.buildView(ViewD, true, false)
	}
	if od {
		n.views[ViewOD] = n.buildView(ViewOD, true, true)
	}
	return nil
}

// View returns a built view by name.
func (n *Network) View(name string) (*View, error) {
	v, ok := n.views[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"view %q not built: call CreateGraph first", name)
	}
	return v, nil
}

// buildView assembles the adjacency for one view. Inserted nodes of the
// included kinds are spliced into their nearest edge through an ordered
// chain, so multiple nodes on one edge compose.
func (n *Network) buildView(name string, destinations, origins bool) *View {
	v := &View{
		name:    name,
		net:     n,
		adj:     make(map[int][]Arc),
		chains:  make(map[int]*chain),
		parent:  make(map[int]int),
		nextSeg: n.nextEdgeID,
	}

	// Group included inserted nodes by their nearest edge.
	byEdge := make(map[int][]int)
	for _, id := range n.NodeIDs() {
		node := n.nodes[id]
		include := (node.Kind == NodeKindDestination && destinations) ||
			(node.Kind == NodeKindOrigin && origins)
		if include {
			byEdge[node.NearestEdge] = append(byEdge[node.NearestEdge], id)
		}
	}

	for _, edgeID := range n.EdgeIDs() {
		edge := n.edges[edgeID]
		inserted := byEdge[edgeID]
		if len(inserted) == 0 {
			v.addSegment(edge.ID, edge.Start, edge.End, edge.Weight, edge.Geometry)
			v.parent[edge.ID] = edge.ParentStreetID
			continue
		}

		ch := v.newChain(edge, inserted)
		v.chains[edgeID] = ch
		for i := 0; i < len(ch.members)-1; i++ {
			a, b := ch.members[i], ch.members[i+1]
			segID := v.newSegID()
			ch.segIDs[i] = segID
			v.parent[segID] = edge.ParentStreetID
			v.addSegment(segID, a.node, b.node, b.toStart-a.toStart,
				subline(edge.Geometry, a.along, b.along))
		}
	}
	return v
}

// newChain threads the edge endpoints and the inserted nodes onto the edge,
// ordered by along position (ties by node ID).
func (v *View) newChain(edge *Edge, inserted []int) *chain {
	members := make([]chainMember, 0, len(inserted)+2)
	members = append(members, chainMember{node: edge.Start})
	for _, id := range inserted {
		node := v.net.nodes[id]
		members = append(members, chainMember{
			node:    id,
			along:   node.EdgeAlong,
			toStart: node.WeightToStart,
		})
	}
	members = append(members, chainMember{
		node:    edge.End,
		along:   edge.Geometry.Length,
		toStart: edge.Weight,
	})
	sort.SliceStable(members[1:len(members)-1], func(i, j int) bool {
		a, b := members[1+i], members[1+j]
		if a.along != b.along {
			return a.along < b.along
		}
		return a.node < b.node
	})
	return &chain{
		edge:    edge,
		members: members,
		segIDs:  make([]int, len(members)-1),
	}
}

// addSegment adds both directed arcs for one traversable segment.
func (v *View) addSegment(segID, from, to int, weight float64, g geom.Polyline) {
	v.adj[from] = append(v.adj[from], Arc{
		To:     to,
		Edge:   segID,
		Weight: weight,
		Depart: g.StartDir,
		Arrive: g.EndDir.Neg(),
	})
	v.adj[to] = append(v.adj[to], Arc{
		To:     from,
		Edge:   segID,
		Weight: weight,
		Depart: g.EndDir,
		Arrive: g.StartDir.Neg(),
	})
}

func (v *View) newSegID() int {
	id := v.nextSeg
	v.nextSeg++
	return id
}

// Name returns the view name.
func (v *View) Name() string { return v.name }

// Network returns the network the view was derived from.
func (v *View) Network() *Network { return v.net }

// Arcs returns the adjacency of a node. The returned slice is owned by the
// view and must not be mutated.
func (v *View) Arcs(node int) []Arc { return v.adj[node] }

// HasNode reports whether the node participates in the view.
func (v *View) HasNode(node int) bool {
	_, ok := v.adj[node]
	return ok
}

// NodeIDs returns the view's node IDs in ascending order.
func (v *View) NodeIDs() []int {
	ids := make([]int, 0, len(v.adj))
	for id := range v.adj {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ParentOf maps a view-local segment edge ID to the street edge flow
// should accrue to.
func (v *View) ParentOf(edge int) int {
	if p, ok := v.parent[edge]; ok {
		return p
	}
	if e := v.net.edges[edge]; e != nil {
		return e.ParentStreetID
	}
	return edge
}

// AddNodeToGraph transiently splices an origin into the view at its
// attachment position. Exactly one transient node may be active at a time;
// every splice must be closed with [View.RemoveNodeToGraph] before the
// next one opens.
func (v *View) AddNodeToGraph(originID int) error {
	node := v.net.nodes[originID]
	if node == nil {
		return errors.New(errors.ErrCodeUnknownNode, "node %s not found", errors.FormatID(originID))
	}
	if node.Kind != NodeKindOrigin {
		return errors.New(errors.ErrCodeNotOrigin,
			"node %s is a %s node, only origin nodes can be transiently spliced",
			errors.FormatID(originID), node.Kind)
	}
	if v.transient != nil {
		return errors.New(errors.ErrCodeInvalidInput,
			"origin %s is still spliced: remove it before adding %s",
			errors.FormatID(v.transient.origin), errors.FormatID(originID))
	}
	if v.HasNode(originID) {
		return errors.New(errors.ErrCodeInvalidInput,
			"node %s already participates in view %q", errors.FormatID(originID), v.name)
	}

	edge := v.net.edges[node.NearestEdge]
	if edge == nil {
		return errors.New(errors.ErrCodeUnknownNode,
			"origin %s references missing edge %s",
			errors.FormatID(originID), errors.FormatID(node.NearestEdge))
	}

	splice := &transientSplice{origin: originID, edgeID: edge.ID}

	ch, ok := v.chains[edge.ID]
	if !ok {
		ch = &chain{
			edge: edge,
			members: []chainMember{
				{node: edge.Start},
				{node: edge.End, along: edge.Geometry.Length, toStart: edge.Weight},
			},
			segIDs: []int{edge.ID},
		}
		v.chains[edge.ID] = ch
		splice.madeChain = true
	}

	// Insertion position: after every member at a smaller-or-equal along.
	pos := 1
	for pos < len(ch.members)-1 && ch.members[pos].along <= node.EdgeAlong {
		pos++
	}
	a, b := ch.members[pos-1], ch.members[pos]
	splice.pos = pos
	splice.oldSegID = ch.segIDs[pos-1]

	// Detach the segment between the neighbors, recording exact positions.
	splice.removed = append(splice.removed,
		v.detachArc(a.node, splice.oldSegID),
		v.detachArc(b.node, splice.oldSegID),
	)

	member := chainMember{node: originID, along: node.EdgeAlong, toStart: node.WeightToStart}
	splice.segA = v.newSegID()
	splice.segB = v.newSegID()
	v.parent[splice.segA] = edge.ParentStreetID
	v.parent[splice.segB] = edge.ParentStreetID
	v.addSegment(splice.segA, a.node, originID, member.toStart-a.toStart,
		subline(edge.Geometry, a.along, member.along))
	v.addSegment(splice.segB, originID, b.node, b.toStart-member.toStart,
		subline(edge.Geometry, member.along, b.along))

	ch.members = append(ch.members[:pos], append([]chainMember{member}, ch.members[pos:]...)...)
	ch.segIDs = append(ch.segIDs[:pos-1], append([]int{splice.segA, splice.segB}, ch.segIDs[pos:]...)...)

	v.transient = splice
	return nil
}

// RemoveNodeToGraph closes the transient splice opened by
// [View.AddNodeToGraph], restoring the view's vertex set, edge set, and
// weights exactly.
func (v *View) RemoveNodeToGraph(originID int) error {
	if v.transient == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no transient node is spliced")
	}
	if v.transient.origin != originID {
		return errors.New(errors.ErrCodeInvalidInput,
			"transient node is %s, not %s",
			errors.FormatID(v.transient.origin), errors.FormatID(originID))
	}
	splice := v.transient

	delete(v.adj, originID)
	ch := v.chains[splice.edgeID]
	a := ch.members[splice.pos-1]
	b := ch.members[splice.pos+1]
	v.detachArc(a.node, splice.segA)
	v.detachArc(b.node, splice.segB)
	delete(v.parent, splice.segA)
	delete(v.parent, splice.segB)

	// The splice arcs were appended at the tail, so reinserting the
	// detached arcs at their recorded indices restores the original order.
	for _, r := range splice.removed {
		arcs := v.adj[r.from]
		arcs = append(arcs, Arc{})
		copy(arcs[r.index+1:], arcs[r.index:])
		arcs[r.index] = r.arc
		v.adj[r.from] = arcs
	}

	ch.members = append(ch.members[:splice.pos], ch.members[splice.pos+1:]...)
	ch.segIDs = append(ch.segIDs[:splice.pos-1], append([]int{splice.oldSegID}, ch.segIDs[splice.pos+1:]...)...)
	if splice.madeChain {
		delete(v.chains, splice.edgeID)
	}

	v.transient = nil
	return nil
}

// detachArc removes the arc with the given segment edge ID from a node's
// adjacency, returning the removal record.
func (v *View) detachArc(from, segID int) removedArc {
	arcs := v.adj[from]
	for i, arc := range arcs {
		if arc.Edge == segID {
			v.adj[from] = append(arcs[:i], arcs[i+1:]...)
			return removedArc{from: from, index: i, arc: arc}
		}
	}
	return removedArc{from: from, index: -1}
}

// Clone deep-copies the view for use by a parallel worker. Cloning with an
// open transient splice is an error.
func (v *View) Clone() (*View, error) {
	if v.transient != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"cannot clone view %q while origin %s is spliced",
			v.name, errors.FormatID(v.transient.origin))
	}
	out := &View{
		name:    v.name,
		net:     v.net,
		adj:     make(map[int][]Arc, len(v.adj)),
		chains:  make(map[int]*chain, len(v.chains)),
		parent:  make(map[int]int, len(v.parent)),
		nextSeg: v.nextSeg,
	}
	for id, arcs := range v.adj {
		cp := make([]Arc, len(arcs))
		copy(cp, arcs)
		out.adj[id] = cp
	}
	for id, ch := range v.chains {
		members := make([]chainMember, len(ch.members))
		copy(members, ch.members)
		segIDs := make([]int, len(ch.segIDs))
		copy(segIDs, ch.segIDs)
		out.chains[id] = &chain{edge: ch.edge, members: members, segIDs: segIDs}
	}
	for k, p := range v.parent {
		out.parent[k] = p
	}
	return out, nil
}

// subline extracts the piece of a polyline between two along positions.
// Equal positions yield a degenerate two-point polyline of length zero.
func subline(l geom.Polyline, a, b float64) geom.Polyline {
	if b < a {
		a, b = b, a
	}
	if a <= 0 && b >= l.Length {
		return l
	}
	if b-a == 0 {
		p := l.At(a)
		out, _ := geom.NewPolyline([]geom.Point{p, p})
		return out
	}
	rest := l
	if a > 0 {
		_, tail, err := l.Cut(a)
		if err == nil {
			rest = tail
		}
	}
	if b >= l.Length {
		return rest
	}
	head, _, err := rest.Cut(b - a)
	if err != nil {
		return rest
	}
	return head
}
