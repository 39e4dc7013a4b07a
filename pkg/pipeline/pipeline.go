// Package pipeline provides the core analysis pipeline for Streetscope.
//
// This package implements the complete build → insert → views → analyze
// pipeline that can be used by CLI and API components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid
// code duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Build: Construct the street network from line features
//  2. Insert: Project origin and destination points onto the network and
//     derive the graph views
//  3. Analyze: Run the requested metric (accessibility, betweenness, or
//     service areas)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Lines:        "streets.json",
//	    Origins:      "homes.json",
//	    Destinations: "shops.json",
//	    Metric:       pipeline.MetricAccessibility,
//	    Radius:       800,
//	    Reach:        true,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows := result.Accessibility.Rows
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/urbanweave/streetscope/pkg/cache"
	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/una"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultRadius is the default search radius in network units.
	DefaultRadius = 800.0

	// DefaultDetourRatio bounds alternative paths at the shortest distance.
	DefaultDetourRatio = 1.0

	// DefaultOriginLayer and DefaultDestinationLayer name the inserted
	// layers when the configuration does not.
	DefaultOriginLayer      = "origins"
	DefaultDestinationLayer = "destinations"
)

// Metric names understood by the analyze stage.
const (
	MetricAccessibility = "accessibility"
	MetricBetweenness   = "betweenness"
	MetricServiceArea   = "service_area"
)

// ValidMetrics is the set of supported metrics.
var ValidMetrics = []string{MetricAccessibility, MetricBetweenness, MetricServiceArea}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the analysis pipeline.
// This struct supports JSON serialization for API requests and TOML for run
// configuration files.
type Options struct {
	// Input files (feature collections, see pkg/netio).
	Lines        string `json:"lines" toml:"lines"`
	Origins      string `json:"origins,omitempty" toml:"origins"`
	Destinations string `json:"destinations,omitempty" toml:"destinations"`

	// Layer naming and per-layer weight attributes.
	OriginLayer       string `json:"origin_layer,omitempty" toml:"origin_layer"`
	DestinationLayer  string `json:"destination_layer,omitempty" toml:"destination_layer"`
	OriginWeight      string `json:"origin_weight,omitempty" toml:"origin_weight"`
	DestinationWeight string `json:"destination_weight,omitempty" toml:"destination_weight"`

	// Build options.
	WeightAttribute     string  `json:"weight_attribute,omitempty" toml:"weight_attribute"`
	Tolerance           float64 `json:"tolerance,omitempty" toml:"tolerance"`
	RedundantEdges      string  `json:"redundant_edges,omitempty" toml:"redundant_edges"`
	TurnThresholdDegree float64 `json:"turn_threshold_degree,omitempty" toml:"turn_threshold_degree"`
	TurnPenaltyAmount   float64 `json:"turn_penalty_amount,omitempty" toml:"turn_penalty_amount"`

	// Analysis options.
	Metric          string    `json:"metric" toml:"metric"`
	Radius          float64   `json:"radius,omitempty" toml:"radius"`
	DetourRatio     float64   `json:"detour_ratio,omitempty" toml:"detour_ratio"`
	TurnPenalty     bool      `json:"turn_penalty,omitempty" toml:"turn_penalty"`
	Reach           bool      `json:"reach,omitempty" toml:"reach"`
	Gravity         bool      `json:"gravity,omitempty" toml:"gravity"`
	ClosestFacility bool      `json:"closest_facility,omitempty" toml:"closest_facility"`
	Alpha           float64   `json:"alpha,omitempty" toml:"alpha"`
	Beta            float64   `json:"beta,omitempty" toml:"beta"`
	PathPenalty     string    `json:"path_penalty,omitempty" toml:"path_penalty"`
	DecayMethod     string    `json:"decay_method,omitempty" toml:"decay_method"`
	KNNWeights      []float64 `json:"knn_weights,omitempty" toml:"knn_weights"`
	KNNPlateau      float64   `json:"knn_plateau,omitempty" toml:"knn_plateau"`
	ElasticWeight   bool      `json:"elastic_weight,omitempty" toml:"elastic_weight"`
	DestinationCap  int       `json:"destination_cap,omitempty" toml:"destination_cap"`
	Workers         int       `json:"workers,omitempty" toml:"workers"`

	// Refresh bypasses the cache for every stage.
	Refresh bool `json:"refresh,omitempty" toml:"refresh"`

	// Runtime options (not serialized).
	Logger   *log.Logger  `json:"-" toml:"-"`
	Progress una.Progress `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-" toml:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this execution.
	RunID string

	// Network is the built network with origins and destinations inserted.
	Network *network.Network

	// NetworkHash is the content hash of the final network state.
	NetworkHash string

	// Exactly one of the following is set, matching the requested metric.
	Accessibility *una.AccessibilityResult
	Betweenness   *una.BetweennessResult
	ServiceAreas  map[int]*una.OriginServiceArea

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount        int
	EdgeCount        int
	OriginCount      int
	DestinationCount int
	BuildTime        time.Duration
	InsertTime       time.Duration
	AnalyzeTime      time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	BuildHit   bool // Whether the built network came from cache
	InsertHit  bool // Whether the inserted network came from cache
	AnalyzeHit bool // Whether the metric result came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent - calling it multiple times has
// the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Lines == "" {
		return errors.New(errors.ErrCodeInvalidInput, "lines input file is required")
	}
	if o.Metric == "" {
		o.Metric = MetricAccessibility
	}
	if err := errors.ValidateChoice("metric", o.Metric, ValidMetrics); err != nil {
		return err
	}
	if o.Origins == "" {
		return errors.New(errors.ErrCodeInvalidInput, "origins input file is required")
	}
	if o.Metric != MetricServiceArea && o.Destinations == "" {
		return errors.New(errors.ErrCodeInvalidInput,
			"destinations input file is required for metric %q", o.Metric)
	}

	if o.OriginLayer == "" {
		o.OriginLayer = DefaultOriginLayer
	}
	if o.DestinationLayer == "" {
		o.DestinationLayer = DefaultDestinationLayer
	}
	if o.Radius == 0 {
		o.Radius = DefaultRadius
	}
	if o.DetourRatio == 0 {
		o.DetourRatio = DefaultDetourRatio
	}
	if o.Metric == MetricAccessibility && !o.Reach && !o.Gravity && !o.ClosestFacility {
		o.Reach = true
	}

	// Stage options validate the numeric ranges; running them here means a
	// bad configuration fails before any input is read.
	if _, err := o.buildOptions(); err != nil {
		return err
	}
	switch o.Metric {
	case MetricAccessibility:
		if _, err := o.accessibilityOptions(); err != nil {
			return err
		}
	case MetricBetweenness:
		if _, err := o.betweennessOptions(); err != nil {
			return err
		}
	case MetricServiceArea:
		if _, err := o.serviceAreaOptions(); err != nil {
			return err
		}
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// buildOptions derives the network build options.
func (o *Options) buildOptions() (network.BuildOptions, error) {
	opts := network.BuildOptions{
		WeightAttribute:     o.WeightAttribute,
		Tolerance:           o.Tolerance,
		RedundantEdges:      network.RedundantEdgePolicy(o.RedundantEdges),
		TurnThresholdDegree: o.TurnThresholdDegree,
		TurnPenaltyAmount:   o.TurnPenaltyAmount,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return network.BuildOptions{}, err
	}
	return opts, nil
}

// accessibilityOptions derives the accessibility analysis options.
func (o *Options) accessibilityOptions() (una.AccessibilityOptions, error) {
	opts := una.AccessibilityOptions{
		Radius:          o.Radius,
		Reach:           o.Reach,
		Gravity:         o.Gravity,
		ClosestFacility: o.ClosestFacility,
		Alpha:           o.Alpha,
		Beta:            o.Beta,
		Workers:         o.Workers,
		Progress:        o.Progress,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return una.AccessibilityOptions{}, err
	}
	return opts, nil
}

// betweennessOptions derives the betweenness analysis options.
func (o *Options) betweennessOptions() (una.BetweennessOptions, error) {
	opts := una.BetweennessOptions{
		Radius:              o.Radius,
		DetourRatio:         o.DetourRatio,
		TurnPenalty:         o.TurnPenalty,
		TurnThresholdDegree: o.TurnThresholdDegree,
		TurnPenaltyAmount:   o.TurnPenaltyAmount,
		PathDetourPenalty:   una.PathDetourPenalty(o.PathPenalty),
		DecayMethod:         una.DecayMethod(o.DecayMethod),
		Beta:                o.Beta,
		KNNWeights:          o.KNNWeights,
		KNNPlateau:          o.KNNPlateau,
		ElasticWeight:       o.ElasticWeight,
		DestinationCap:      o.DestinationCap,
		Workers:             o.Workers,
		Progress:            o.Progress,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return una.BetweennessOptions{}, err
	}
	return opts, nil
}

// serviceAreaOptions derives the service-area analysis options.
func (o *Options) serviceAreaOptions() (una.ServiceAreaOptions, error) {
	opts := una.ServiceAreaOptions{
		Radius:   o.Radius,
		Workers:  o.Workers,
		Progress: o.Progress,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return una.ServiceAreaOptions{}, err
	}
	return opts, nil
}

// NetworkKeyOpts returns cache key options for the build stage.
func (o *Options) NetworkKeyOpts() cache.NetworkKeyOpts {
	return cache.NetworkKeyOpts{
		WeightAttribute: o.WeightAttribute,
		Tolerance:       o.Tolerance,
		RedundantEdges:  o.RedundantEdges,
	}
}

// MetricKeyOpts returns cache key options for the analyze stage.
func (o *Options) MetricKeyOpts() cache.MetricKeyOpts {
	return cache.MetricKeyOpts{
		Metric:              o.Metric,
		Reach:               o.Reach,
		Gravity:             o.Gravity,
		ClosestFacility:     o.ClosestFacility,
		Radius:              o.Radius,
		DetourRatio:         o.DetourRatio,
		TurnPenalty:         o.TurnPenalty,
		TurnThresholdDegree: o.TurnThresholdDegree,
		TurnPenaltyAmount:   o.TurnPenaltyAmount,
		Alpha:               o.Alpha,
		Beta:                o.Beta,
		PathDetourPenalty:   o.PathPenalty,
		DecayMethod:         o.DecayMethod,
		KNNWeights:          o.KNNWeights,
		KNNPlateau:          o.KNNPlateau,
		ElasticWeight:       o.ElasticWeight,
		DestinationCap:      o.DestinationCap,
	}
}
