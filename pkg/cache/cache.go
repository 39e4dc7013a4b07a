// Package cache provides result caching for analysis runs.
//
// A [Cache] stores opaque byte payloads under string keys with optional
// TTLs; a [Keyer] derives those keys from the inputs of each pipeline
// stage, so a stage re-run with identical inputs is a cache hit. Backends:
//   - file: directory-based cache for CLI usage
//   - redis: shared cache for multi-instance deployments
//   - null: disabled caching
package cache

import (
	"context"
	"time"
)

// Cache TTLs per pipeline stage. Networks change only when their inputs
// do, so they live longer than analysis results.
const (
	TTLNetwork = 7 * 24 * time.Hour
	TTLMetric  = 24 * time.Hour
)

// Cache is the storage interface for cached payloads.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// NetworkKeyOpts captures the build inputs that shape a network.
type NetworkKeyOpts struct {
	WeightAttribute string
	Tolerance       float64
	RedundantEdges  string
}

// MetricKeyOpts captures the analysis inputs that shape a metric result.
// Every option that can change the computed numbers must appear here, or
// two different runs would share a key.
type MetricKeyOpts struct {
	Metric              string
	Reach               bool
	Gravity             bool
	ClosestFacility     bool
	Radius              float64
	DetourRatio         float64
	TurnPenalty         bool
	TurnThresholdDegree float64
	TurnPenaltyAmount   float64
	Alpha               float64
	Beta                float64
	PathDetourPenalty   string
	DecayMethod         string
	KNNWeights          []float64
	KNNPlateau          float64
	ElasticWeight       bool
	DestinationCap      int
}

// Keyer derives cache keys for the pipeline stages.
type Keyer interface {
	// NetworkKey identifies a built network by the hash of its input
	// features and the build options.
	NetworkKey(inputHash string, opts NetworkKeyOpts) string

	// LayerKey identifies an insertion pass on top of a network.
	LayerKey(networkHash, layer string, inputHash string) string

	// MetricKey identifies an analysis result over a network state.
	MetricKey(networkHash string, opts MetricKeyOpts) string
}

// DefaultKeyer hashes stage inputs into namespaced SHA-256 keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// NetworkKey generates a key for network build caching.
func (k *DefaultKeyer) NetworkKey(inputHash string, opts NetworkKeyOpts) string {
	return hashKey("network", inputHash, opts)
}

// LayerKey generates a key for insertion-pass caching.
func (k *DefaultKeyer) LayerKey(networkHash, layer string, inputHash string) string {
	return hashKey("layer", networkHash, layer, inputHash)
}

// MetricKey generates a key for analysis-result caching.
func (k *DefaultKeyer) MetricKey(networkHash string, opts MetricKeyOpts) string {
	return hashKey("metric", networkHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
