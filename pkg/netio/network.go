package netio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/urbanweave/streetscope/pkg/geom"
)

// NetworkDoc is the serialized form of a built street network. The node and
// edge slices are sorted by ID on write so output is deterministic and
// diff-friendly; the same document shape doubles as the MongoDB schema via
// the bson tags.
type NetworkDoc struct {
	Nodes []NodeDoc `json:"nodes" bson:"nodes"`
	Edges []EdgeDoc `json:"edges" bson:"edges"`
}

// NodeDoc is one serialized network node.
type NodeDoc struct {
	ID            int        `json:"id" bson:"id"`
	Kind          string     `json:"kind" bson:"kind"`
	Point         geom.Point `json:"point" bson:"point"`
	Weight        float64    `json:"weight" bson:"weight"`
	SourceLayer   string     `json:"source_layer,omitempty" bson:"source_layer,omitempty"`
	SourceID      int        `json:"source_id,omitempty" bson:"source_id,omitempty"`
	NearestEdge   int        `json:"nearest_edge,omitempty" bson:"nearest_edge,omitempty"`
	EdgeStart     int        `json:"edge_start,omitempty" bson:"edge_start,omitempty"`
	EdgeEnd       int        `json:"edge_end,omitempty" bson:"edge_end,omitempty"`
	EdgeAlong     float64    `json:"edge_along,omitempty" bson:"edge_along,omitempty"`
	WeightToStart float64    `json:"weight_to_start,omitempty" bson:"weight_to_start,omitempty"`
	WeightToEnd   float64    `json:"weight_to_end,omitempty" bson:"weight_to_end,omitempty"`
}

// EdgeDoc is one serialized network edge.
type EdgeDoc struct {
	ID             int          `json:"id" bson:"id"`
	Start          int          `json:"start" bson:"start"`
	End            int          `json:"end" bson:"end"`
	Coords         []geom.Point `json:"coords" bson:"coords"`
	Weight         float64      `json:"weight" bson:"weight"`
	ParentStreetID int          `json:"parent_street_id" bson:"parent_street_id"`
}

// WriteNetwork encodes a network document as indented JSON on w, with nodes
// and edges sorted by ID.
func WriteNetwork(doc NetworkDoc, w io.Writer) error {
	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].ID < doc.Nodes[j].ID })
	sort.Slice(doc.Edges, func(i, j int) bool { return doc.Edges[i].ID < doc.Edges[j].ID })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode network: %w", err)
	}
	return nil
}

// ExportNetwork writes a network document to a JSON file at path.
// This is a convenience wrapper around [WriteNetwork] for file-based output.
func ExportNetwork(doc NetworkDoc, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteNetwork(doc, f)
}

// ReadNetwork decodes a network document from r.
func ReadNetwork(r io.Reader) (NetworkDoc, error) {
	var doc NetworkDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return NetworkDoc{}, fmt.Errorf("decode network: %w", err)
	}
	return doc, nil
}

// ImportNetwork reads a network document from a JSON file at path.
func ImportNetwork(path string) (NetworkDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return NetworkDoc{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadNetwork(f)
}
