package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/urbanweave/streetscope/pkg/cache"
	"github.com/urbanweave/streetscope/pkg/observability"
)

// writeFixture writes a small L-shaped street network with one origin and
// one destination and returns the three input file paths.
func writeFixture(t *testing.T) (lines, origins, dests string) {
	t.Helper()
	dir := t.TempDir()

	lines = filepath.Join(dir, "lines.json")
	origins = filepath.Join(dir, "origins.json")
	dests = filepath.Join(dir, "dests.json")

	linesJSON := `{"features": [
		{"id": 1, "coords": [{"x": 0, "y": 0}, {"x": 100, "y": 0}]},
		{"id": 2, "coords": [{"x": 100, "y": 0}, {"x": 100, "y": 100}]}
	]}`
	originsJSON := `{"features": [
		{"id": 1, "point": {"x": 10, "y": 5}, "attributes": {"population": 3}}
	]}`
	destsJSON := `{"features": [
		{"id": 1, "point": {"x": 100, "y": 90}}
	]}`

	for path, content := range map[string]string{
		lines:   linesJSON,
		origins: originsJSON,
		dests:   destsJSON,
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return lines, origins, dests
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "missing lines",
			opts:    Options{Origins: "o.json", Destinations: "d.json"},
			wantErr: true,
		},
		{
			name:    "missing origins",
			opts:    Options{Lines: "l.json", Destinations: "d.json"},
			wantErr: true,
		},
		{
			name:    "missing destinations for accessibility",
			opts:    Options{Lines: "l.json", Origins: "o.json"},
			wantErr: true,
		},
		{
			name:    "service area without destinations",
			opts:    Options{Lines: "l.json", Origins: "o.json", Metric: MetricServiceArea},
			wantErr: false,
		},
		{
			name:    "unknown metric",
			opts:    Options{Lines: "l.json", Origins: "o.json", Destinations: "d.json", Metric: "closeness"},
			wantErr: true,
		},
		{
			name:    "negative radius",
			opts:    Options{Lines: "l.json", Origins: "o.json", Destinations: "d.json", Radius: -1},
			wantErr: true,
		},
		{
			name:    "gravity without beta",
			opts:    Options{Lines: "l.json", Origins: "o.json", Destinations: "d.json", Gravity: true},
			wantErr: true,
		},
		{
			name:    "valid minimal",
			opts:    Options{Lines: "l.json", Origins: "o.json", Destinations: "d.json"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Lines: "l.json", Origins: "o.json", Destinations: "d.json"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() failed: %v", err)
	}

	if opts.Metric != MetricAccessibility {
		t.Errorf("Metric = %q, want %q", opts.Metric, MetricAccessibility)
	}
	if opts.Radius != DefaultRadius {
		t.Errorf("Radius = %v, want %v", opts.Radius, DefaultRadius)
	}
	if opts.OriginLayer != DefaultOriginLayer {
		t.Errorf("OriginLayer = %q, want %q", opts.OriginLayer, DefaultOriginLayer)
	}
	if !opts.Reach {
		t.Error("Reach should default to true for accessibility with no toggles set")
	}
}

func TestOptionsValidationIdempotent(t *testing.T) {
	opts := Options{Lines: "l.json", Origins: "o.json", Destinations: "d.json"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first validation failed: %v", err)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second validation failed: %v", err)
	}
}

func TestRunnerExecuteAccessibility(t *testing.T) {
	lines, origins, dests := writeFixture(t)

	runner := NewRunner(cache.NewNullCache(), nil, quietLogger())
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{
		Lines:        lines,
		Origins:      origins,
		Destinations: dests,
		Metric:       MetricAccessibility,
		Radius:       500,
		Reach:        true,
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID should not be empty")
	}
	if result.Accessibility == nil {
		t.Fatal("Accessibility result should be set")
	}
	if result.Betweenness != nil || result.ServiceAreas != nil {
		t.Error("only the requested metric should be set")
	}
	if len(result.Accessibility.Rows) != 1 {
		t.Fatalf("got %d accessibility rows, want 1", len(result.Accessibility.Rows))
	}
	if result.Stats.OriginCount != 1 || result.Stats.DestinationCount != 1 {
		t.Errorf("Stats counts = %d origins / %d destinations, want 1 / 1",
			result.Stats.OriginCount, result.Stats.DestinationCount)
	}
	for origin, row := range result.Accessibility.Rows {
		if row.Reach != 1 {
			t.Errorf("origin %d reach = %v, want 1", origin, row.Reach)
		}
	}
}

func TestRunnerExecuteServiceArea(t *testing.T) {
	lines, origins, _ := writeFixture(t)

	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{
		Lines:   lines,
		Origins: origins,
		Metric:  MetricServiceArea,
		Radius:  500,
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if len(result.ServiceAreas) != 1 {
		t.Fatalf("got %d service areas, want 1", len(result.ServiceAreas))
	}
	for origin, area := range result.ServiceAreas {
		if len(area.Nodes) == 0 {
			t.Errorf("origin %d service area has no nodes", origin)
		}
	}
}

func TestRunnerCaching(t *testing.T) {
	lines, origins, dests := writeFixture(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() failed: %v", err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	opts := Options{
		Lines:        lines,
		Origins:      origins,
		Destinations: dests,
		Metric:       MetricAccessibility,
		Radius:       500,
		Reach:        true,
	}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Execute() failed: %v", err)
	}
	if first.CacheInfo.BuildHit || first.CacheInfo.InsertHit || first.CacheInfo.AnalyzeHit {
		t.Errorf("first run should not hit cache: %+v", first.CacheInfo)
	}

	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute() failed: %v", err)
	}
	if !second.CacheInfo.BuildHit || !second.CacheInfo.InsertHit || !second.CacheInfo.AnalyzeHit {
		t.Errorf("second run should hit cache at every stage: %+v", second.CacheInfo)
	}
	if got, want := second.Accessibility.Rows, first.Accessibility.Rows; len(got) != len(want) {
		t.Errorf("cached run returned %d rows, want %d", len(got), len(want))
	}

	// Refresh bypasses the cache.
	opts.Refresh = true
	third, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh Execute() failed: %v", err)
	}
	if third.CacheInfo.BuildHit || third.CacheInfo.AnalyzeHit {
		t.Errorf("refresh run should not hit cache: %+v", third.CacheInfo)
	}
}

// recordingCacheHooks counts cache events per stage for assertions.
type recordingCacheHooks struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
	sets   map[string]int
}

func newRecordingCacheHooks() *recordingCacheHooks {
	return &recordingCacheHooks{
		hits:   map[string]int{},
		misses: map[string]int{},
		sets:   map[string]int{},
	}
}

func (r *recordingCacheHooks) OnCacheHit(ctx context.Context, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[stage]++
}

func (r *recordingCacheHooks) OnCacheMiss(ctx context.Context, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses[stage]++
}

func (r *recordingCacheHooks) OnCacheSet(ctx context.Context, stage string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[stage]++
}

func TestRunnerCacheHooks(t *testing.T) {
	defer observability.Reset()
	rec := newRecordingCacheHooks()
	observability.SetCacheHooks(rec)

	lines, origins, dests := writeFixture(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() failed: %v", err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	opts := Options{
		Lines:        lines,
		Origins:      origins,
		Destinations: dests,
		Metric:       MetricAccessibility,
		Radius:       500,
		Reach:        true,
	}

	// Cold run: every stage misses, then stores its result.
	if _, err := runner.Execute(context.Background(), opts); err != nil {
		t.Fatalf("first Execute() failed: %v", err)
	}
	for _, stage := range []string{"network", "layer", "metric"} {
		if rec.misses[stage] != 1 {
			t.Errorf("first run: %s misses = %d, want 1", stage, rec.misses[stage])
		}
		if rec.sets[stage] != 1 {
			t.Errorf("first run: %s sets = %d, want 1", stage, rec.sets[stage])
		}
		if rec.hits[stage] != 0 {
			t.Errorf("first run: %s hits = %d, want 0", stage, rec.hits[stage])
		}
	}

	// Warm run: every stage hits and nothing new is stored.
	if _, err := runner.Execute(context.Background(), opts); err != nil {
		t.Fatalf("second Execute() failed: %v", err)
	}
	for _, stage := range []string{"network", "layer", "metric"} {
		if rec.hits[stage] != 1 {
			t.Errorf("second run: %s hits = %d, want 1", stage, rec.hits[stage])
		}
		if rec.sets[stage] != 1 {
			t.Errorf("second run: %s sets = %d, want 1", stage, rec.sets[stage])
		}
	}
}

func TestRunnerCacheKeySensitivity(t *testing.T) {
	lines, origins, dests := writeFixture(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() failed: %v", err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	base := Options{
		Lines:        lines,
		Origins:      origins,
		Destinations: dests,
		Metric:       MetricAccessibility,
		Radius:       500,
		Reach:        true,
	}
	if _, err := runner.Execute(context.Background(), base); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	// A different radius must not reuse the cached metric.
	changed := base
	changed.Radius = 300
	result, err := runner.Execute(context.Background(), changed)
	if err != nil {
		t.Fatalf("Execute() with changed radius failed: %v", err)
	}
	if result.CacheInfo.AnalyzeHit {
		t.Error("changed radius should miss the metric cache")
	}
	if !result.CacheInfo.BuildHit {
		t.Error("changed radius should still hit the network cache")
	}

	// A different origin weight attribute changes the inserted nodes, so
	// the insert stage must not reuse the cached snapshot.
	weighted := base
	weighted.OriginWeight = "population"
	result, err = runner.Execute(context.Background(), weighted)
	if err != nil {
		t.Fatalf("Execute() with origin weight failed: %v", err)
	}
	if result.CacheInfo.InsertHit {
		t.Error("changed origin weight should miss the layer cache")
	}
	if !result.CacheInfo.BuildHit {
		t.Error("changed origin weight should still hit the network cache")
	}
}

func TestRunnerCacheKeyTurnParameters(t *testing.T) {
	lines, origins, dests := writeFixture(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() failed: %v", err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	base := Options{
		Lines:               lines,
		Origins:             origins,
		Destinations:        dests,
		Metric:              MetricBetweenness,
		Radius:              500,
		TurnPenalty:         true,
		TurnThresholdDegree: 30,
		TurnPenaltyAmount:   10,
	}
	if _, err := runner.Execute(context.Background(), base); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	// Same metric, same radius, different turn parameters: the cached flow
	// is for a different cost model and must not be served.
	changed := base
	changed.TurnThresholdDegree = 120
	changed.TurnPenaltyAmount = 500
	result, err := runner.Execute(context.Background(), changed)
	if err != nil {
		t.Fatalf("Execute() with changed turn parameters failed: %v", err)
	}
	if result.CacheInfo.AnalyzeHit {
		t.Error("changed turn parameters should miss the metric cache")
	}
	if !result.CacheInfo.BuildHit || !result.CacheInfo.InsertHit {
		t.Errorf("turn parameters should not affect earlier stages: %+v", result.CacheInfo)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	content := `
lines = "streets.json"
origins = "homes.json"
destinations = "shops.json"
metric = "betweenness"
radius = 1200.0
detour_ratio = 1.15
turn_penalty = true
beta = 0.002
decay_method = "exponent"
knn_weights = [0.6, 0.4]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if opts.Metric != MetricBetweenness {
		t.Errorf("Metric = %q, want %q", opts.Metric, MetricBetweenness)
	}
	if opts.Radius != 1200 {
		t.Errorf("Radius = %v, want 1200", opts.Radius)
	}
	if opts.DetourRatio != 1.15 {
		t.Errorf("DetourRatio = %v, want 1.15", opts.DetourRatio)
	}
	if !opts.TurnPenalty {
		t.Error("TurnPenalty should be true")
	}
	if len(opts.KNNWeights) != 2 {
		t.Errorf("KNNWeights = %v, want two entries", opts.KNNWeights)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	if err := os.WriteFile(path, []byte("lines = \"l.json\"\nspeed = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() should reject unknown keys")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("LoadConfig() should fail for a missing file")
	}
}
