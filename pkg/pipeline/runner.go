package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/urbanweave/streetscope/pkg/cache"
	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/observability"
	"github.com/urbanweave/streetscope/pkg/una"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → insert → analyze pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{RunID: uuid.NewString()}

	// Stage 1: Build
	buildStart := time.Now()
	net, buildHit, err := r.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.BuildTime = time.Since(buildStart)
	result.CacheInfo.BuildHit = buildHit

	r.Logger.Info("built street network",
		"nodes", net.NodeCount(),
		"edges", net.EdgeCount(),
		"cached", buildHit,
		"duration", result.Stats.BuildTime)

	// Stage 2: Insert + views
	insertStart := time.Now()
	net, insertHit, err := r.InsertWithCacheInfo(ctx, net, opts)
	if err != nil {
		return nil, err
	}
	if err := net.CreateGraph(true, true, false); err != nil {
		return nil, err
	}
	result.Network = net
	result.NetworkHash = networkHash(net)
	result.Stats.InsertTime = time.Since(insertStart)
	result.CacheInfo.InsertHit = insertHit
	result.Stats.NodeCount = net.NodeCount()
	result.Stats.EdgeCount = net.EdgeCount()
	result.Stats.OriginCount = len(net.NodesOfKind(network.NodeKindOrigin))
	result.Stats.DestinationCount = len(net.NodesOfKind(network.NodeKindDestination))

	r.Logger.Info("inserted layers",
		"origins", result.Stats.OriginCount,
		"destinations", result.Stats.DestinationCount,
		"cached", insertHit,
		"duration", result.Stats.InsertTime)

	// Stage 3: Analyze
	analyzeStart := time.Now()
	analyzeHit, err := r.AnalyzeWithCacheInfo(ctx, net, result.NetworkHash, opts, result)
	if err != nil {
		return nil, err
	}
	result.Stats.AnalyzeTime = time.Since(analyzeStart)
	result.CacheInfo.AnalyzeHit = analyzeHit

	r.Logger.Info("computed metric",
		"metric", opts.Metric,
		"cached", analyzeHit,
		"duration", result.Stats.AnalyzeTime)

	return result, nil
}

// BuildWithCacheInfo builds the street network with caching and returns
// cache hit info.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, opts Options) (*network.Network, bool, error) {
	buildOpts, err := opts.buildOptions()
	if err != nil {
		return nil, false, err
	}

	linesData, err := readFile(opts.Lines)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.NetworkKey(cache.Hash(linesData), opts.NetworkKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if net, ok := r.loadNetwork(ctx, cacheKey, "network", buildOpts); ok {
			return net, true, nil
		}
	}

	lines, err := netio.ReadLineFeatures(bytes.NewReader(linesData))
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Lines)
	}
	net, err := network.Build(lines, buildOpts)
	if err != nil {
		return nil, false, err
	}

	r.storeNetwork(ctx, cacheKey, "network", net, cache.TTLNetwork)
	return net, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Build(ctx context.Context, opts Options) (*network.Network, error) {
	net, _, err := r.BuildWithCacheInfo(ctx, opts)
	return net, err
}

// InsertWithCacheInfo inserts the origin and destination layers with
// caching and returns cache hit info. On a cache hit the returned network
// replaces the input network (it was rebuilt from the cached snapshot).
func (r *Runner) InsertWithCacheInfo(ctx context.Context, net *network.Network, opts Options) (*network.Network, bool, error) {
	buildOpts, err := opts.buildOptions()
	if err != nil {
		return nil, false, err
	}

	originsData, err := readFile(opts.Origins)
	if err != nil {
		return nil, false, err
	}
	var destsData []byte
	if opts.Destinations != "" {
		if destsData, err = readFile(opts.Destinations); err != nil {
			return nil, false, err
		}
	}

	// The layer signature covers the weight attributes too: the same points
	// inserted under a different weight column are a different network.
	pointsHash := cache.Hash(append(append([]byte{}, originsData...), destsData...))
	layerSig := opts.OriginLayer + ":" + opts.OriginWeight + "+" + opts.DestinationLayer + ":" + opts.DestinationWeight
	cacheKey := r.Keyer.LayerKey(networkHash(net), layerSig, pointsHash)

	if !opts.Refresh {
		if cached, ok := r.loadNetwork(ctx, cacheKey, "layer", buildOpts); ok {
			return cached, true, nil
		}
	}

	origins, err := netio.ReadPointFeatures(bytes.NewReader(originsData))
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Origins)
	}
	if err := net.InsertNodes(origins, opts.OriginLayer, network.NodeKindOrigin, opts.OriginWeight); err != nil {
		return nil, false, err
	}

	if opts.Destinations != "" {
		dests, err := netio.ReadPointFeatures(bytes.NewReader(destsData))
		if err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Destinations)
		}
		if err := net.InsertNodes(dests, opts.DestinationLayer, network.NodeKindDestination, opts.DestinationWeight); err != nil {
			return nil, false, err
		}
	}

	r.storeNetwork(ctx, cacheKey, "layer", net, cache.TTLNetwork)
	return net, false, nil
}

// metricPayload is the cached form of an analyze-stage result.
type metricPayload struct {
	Accessibility *una.AccessibilityResult       `json:"accessibility,omitempty"`
	Betweenness   *una.BetweennessResult         `json:"betweenness,omitempty"`
	ServiceAreas  map[int]*una.OriginServiceArea `json:"service_areas,omitempty"`
}

// AnalyzeWithCacheInfo runs the requested metric with caching, filling the
// matching result field, and returns cache hit info.
func (r *Runner) AnalyzeWithCacheInfo(ctx context.Context, net *network.Network, netHash string, opts Options, result *Result) (bool, error) {
	cacheKey := r.Keyer.MetricKey(netHash, opts.MetricKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var payload metricPayload
			if err := json.Unmarshal(data, &payload); err == nil {
				observability.Cache().OnCacheHit(ctx, "metric")
				result.Accessibility = payload.Accessibility
				result.Betweenness = payload.Betweenness
				result.ServiceAreas = payload.ServiceAreas
				return true, nil
			}
			// Corrupt entry: fall through to recompute.
		}
		observability.Cache().OnCacheMiss(ctx, "metric")
	}

	var payload metricPayload
	switch opts.Metric {
	case MetricAccessibility:
		accOpts, err := opts.accessibilityOptions()
		if err != nil {
			return false, err
		}
		if payload.Accessibility, err = una.Accessibility(ctx, net, accOpts); err != nil {
			return false, err
		}
	case MetricBetweenness:
		betOpts, err := opts.betweennessOptions()
		if err != nil {
			return false, err
		}
		if payload.Betweenness, err = una.Betweenness(ctx, net, betOpts); err != nil {
			return false, err
		}
	case MetricServiceArea:
		saOpts, err := opts.serviceAreaOptions()
		if err != nil {
			return false, err
		}
		if payload.ServiceAreas, err = una.ServiceArea(ctx, net, saOpts); err != nil {
			return false, err
		}
	}

	if data, err := json.Marshal(payload); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLMetric) == nil {
			observability.Cache().OnCacheSet(ctx, "metric", len(data))
		}
	}

	result.Accessibility = payload.Accessibility
	result.Betweenness = payload.Betweenness
	result.ServiceAreas = payload.ServiceAreas
	return false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// loadNetwork rebuilds a network from a cached snapshot. Any failure along
// the way counts as a miss.
func (r *Runner) loadNetwork(ctx context.Context, key, stage string, buildOpts network.BuildOptions) (net *network.Network, ok bool) {
	defer func() {
		if ok {
			observability.Cache().OnCacheHit(ctx, stage)
		} else {
			observability.Cache().OnCacheMiss(ctx, stage)
		}
	}()

	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	doc, err := netio.ReadNetwork(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	net, err = network.FromSnapshot(doc, buildOpts)
	if err != nil {
		return nil, false
	}
	return net, true
}

// storeNetwork caches a network snapshot, best effort.
func (r *Runner) storeNetwork(ctx context.Context, key, stage string, net *network.Network, ttl time.Duration) {
	var buf bytes.Buffer
	if err := netio.WriteNetwork(net.Snapshot(), &buf); err == nil {
		if r.Cache.Set(ctx, key, buf.Bytes(), ttl) == nil {
			observability.Cache().OnCacheSet(ctx, stage, buf.Len())
		}
	}
}

// networkHash is the content hash of a network's deterministic snapshot.
func networkHash(net *network.Network) string {
	var buf bytes.Buffer
	if err := netio.WriteNetwork(net.Snapshot(), &buf); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}
