package network

import "sort"

// EdgeTag is a diagnostic flag on an edge.
type EdgeTag string

// Diagnostic tags produced by [Network.TagEdges].
const (
	// TagZeroLength marks an edge whose geometry has no length.
	TagZeroLength EdgeTag = "zero_length"

	// TagSelfLoop marks an edge whose endpoints are the same node.
	TagSelfLoop EdgeTag = "self_loop"

	// TagDangling marks an edge with an endpoint no other edge touches.
	TagDangling EdgeTag = "dangling"
)

// TagEdges runs the diagnostic pass over the edge table and returns the
// tags per edge ID. It never mutates the network; untagged edges are absent
// from the result.
func (n *Network) TagEdges() map[int][]EdgeTag {
	degree := make(map[int]int, len(n.nodes))
	for _, e := range n.edges {
		degree[e.Start]++
		degree[e.End]++
	}

	tags := make(map[int][]EdgeTag)
	for _, id := range n.EdgeIDs() {
		e := n.edges[id]
		var t []EdgeTag
		if e.Geometry.Length == 0 {
			t = append(t, TagZeroLength)
		}
		if e.Start == e.End {
			t = append(t, TagSelfLoop)
		}
		if degree[e.Start] == 1 || degree[e.End] == 1 {
			t = append(t, TagDangling)
		}
		if len(t) > 0 {
			tags[id] = t
		}
	}
	return tags
}

// TaggedEdgeIDs returns the IDs of edges carrying the given tag, ascending.
func TaggedEdgeIDs(tags map[int][]EdgeTag, tag EdgeTag) []int {
	var ids []int
	for id, ts := range tags {
		for _, t := range ts {
			if t == tag {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Ints(ids)
	return ids
}
