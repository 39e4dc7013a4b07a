// Package netio provides the JSON input and output schemas for street
// networks: line and point feature collections on the way in, and a
// deterministic network snapshot document on the way out.
//
// The package is deliberately format-agnostic beyond its own JSON schemas;
// converting shapefiles or GeoJSON into these feature collections is the
// job of external tooling.
package netio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urbanweave/streetscope/pkg/geom"
)

// LineFeature is one street centerline with numeric attributes.
type LineFeature struct {
	ID         int                `json:"id" bson:"id"`
	Coords     []geom.Point       `json:"coords" bson:"coords"`
	Attributes map[string]float64 `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// PointFeature is one origin or destination location with numeric attributes.
type PointFeature struct {
	ID         int                `json:"id" bson:"id"`
	Point      geom.Point         `json:"point" bson:"point"`
	Attributes map[string]float64 `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// LineCollection is the input schema for street centerlines.
type LineCollection struct {
	Features []LineFeature `json:"features"`
}

// PointCollection is the input schema for origin/destination locations.
type PointCollection struct {
	Features []PointFeature `json:"features"`
}

// ReadLineFeatures decodes a line feature collection from r.
func ReadLineFeatures(r io.Reader) ([]LineFeature, error) {
	var col LineCollection
	if err := json.NewDecoder(r).Decode(&col); err != nil {
		return nil, fmt.Errorf("decode line features: %w", err)
	}
	return col.Features, nil
}

// LoadLineFeatures reads a line feature collection from a JSON file.
func LoadLineFeatures(path string) ([]LineFeature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadLineFeatures(f)
}

// ReadPointFeatures decodes a point feature collection from r.
func ReadPointFeatures(r io.Reader) ([]PointFeature, error) {
	var col PointCollection
	if err := json.NewDecoder(r).Decode(&col); err != nil {
		return nil, fmt.Errorf("decode point features: %w", err)
	}
	return col.Features, nil
}

// LoadPointFeatures reads a point feature collection from a JSON file.
func LoadPointFeatures(path string) ([]PointFeature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPointFeatures(f)
}
