package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/urbanweave/streetscope/pkg/pipeline"
	"github.com/urbanweave/streetscope/pkg/store"
	"github.com/urbanweave/streetscope/pkg/una"
)

// analysisFlags are the flags shared by all metric commands.
type analysisFlags struct {
	output       string
	noCache      bool
	refresh      bool
	showProgress bool
	storeURI     string
	storeDB      string
}

// register adds the shared flags to cmd.
func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the result JSON to this file (default: stdout)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached results")
	cmd.Flags().BoolVar(&f.showProgress, "progress", false, "show a progress bar while origins are processed")
	cmd.Flags().StringVar(&f.storeURI, "store", "", "MongoDB URI to persist results to")
	cmd.Flags().StringVar(&f.storeDB, "store-db", "", "MongoDB database name")
}

// registerInputFlags adds the input and build flags to cmd.
func registerInputFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVar(&opts.Lines, "lines", "", "street line features (required)")
	cmd.Flags().StringVar(&opts.Origins, "origins", "", "origin point features (required)")
	cmd.Flags().StringVar(&opts.Destinations, "destinations", "", "destination point features")
	cmd.Flags().StringVar(&opts.OriginWeight, "origin-weight", "", "origin attribute used as weight")
	cmd.Flags().StringVar(&opts.DestinationWeight, "destination-weight", "", "destination attribute used as weight")
	cmd.Flags().StringVar(&opts.WeightAttribute, "weight-attribute", "", "line attribute used as edge weight")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "endpoint snapping tolerance")
	cmd.Flags().StringVar(&opts.RedundantEdges, "redundant-edges", "", "redundant edge policy: keep, discard, or split")
	cmd.Flags().Float64Var(&opts.Radius, "radius", 0, fmt.Sprintf("search radius in network units (default %.0f)", pipeline.DefaultRadius))
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "number of analysis workers (default: CPU count)")
	_ = cmd.MarkFlagRequired("lines")
	_ = cmd.MarkFlagRequired("origins")
}

// accessibilityCommand creates the "accessibility" metric command.
func (c *CLI) accessibilityCommand() *cobra.Command {
	var opts pipeline.Options
	var flags analysisFlags

	cmd := &cobra.Command{
		Use:   "accessibility",
		Short: "Compute reach, gravity, and closest-facility access",
		Long: `Accessibility measures what each origin can reach within the search
radius: the weighted count of reachable destinations (reach), a
distance-decayed sum (gravity), and the same aggregates restricted to
destinations this origin is closest to (closest facility).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Metric = pipeline.MetricAccessibility
			return c.runAnalysis(cmd.Context(), opts, flags)
		},
	}

	registerInputFlags(cmd, &opts)
	flags.register(cmd)
	cmd.Flags().BoolVar(&opts.Reach, "reach", false, "compute weighted reach")
	cmd.Flags().BoolVar(&opts.Gravity, "gravity", false, "compute gravity access (requires --beta)")
	cmd.Flags().BoolVar(&opts.ClosestFacility, "closest-facility", false, "restrict aggregates to closest-origin destinations")
	cmd.Flags().Float64Var(&opts.Alpha, "alpha", 0, "gravity weight exponent (default 1)")
	cmd.Flags().Float64Var(&opts.Beta, "beta", 0, "gravity distance sensitivity")
	_ = cmd.MarkFlagRequired("destinations")

	return cmd
}

// betweennessCommand creates the "betweenness" metric command.
func (c *CLI) betweennessCommand() *cobra.Command {
	var opts pipeline.Options
	var flags analysisFlags

	cmd := &cobra.Command{
		Use:   "betweenness",
		Short: "Compute trip-flow betweenness over street edges",
		Long: `Betweenness simulates trips from every origin to its reachable
destinations and accumulates flow on the street edges those trips use.
Alternative paths within the detour ratio share each trip's flow, weighted
by the configured path detour penalty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Metric = pipeline.MetricBetweenness
			return c.runAnalysis(cmd.Context(), opts, flags)
		},
	}

	registerInputFlags(cmd, &opts)
	flags.register(cmd)
	cmd.Flags().Float64Var(&opts.DetourRatio, "detour-ratio", 0, "path length budget as a multiple of the shortest distance (default 1)")
	cmd.Flags().BoolVar(&opts.TurnPenalty, "turn-penalty", false, "penalize sharp turns during search")
	cmd.Flags().Float64Var(&opts.TurnThresholdDegree, "turn-threshold", 0, "deviation angle that counts as a turn, degrees")
	cmd.Flags().Float64Var(&opts.TurnPenaltyAmount, "turn-cost", 0, "cost added per turn, network units")
	cmd.Flags().StringVar(&opts.PathPenalty, "path-penalty", "", "path weighting: equal, power, or exponent")
	cmd.Flags().StringVar(&opts.DecayMethod, "decay", "", "distance decay: none, exponent, or power")
	cmd.Flags().Float64Var(&opts.Beta, "beta", 0, "decay or exponent-penalty sensitivity")
	cmd.Flags().Float64SliceVar(&opts.KNNWeights, "knn-weights", nil, "rank weights for nearest destinations")
	cmd.Flags().Float64Var(&opts.KNNPlateau, "knn-plateau", 0, "distance under which rank weights do not apply")
	cmd.Flags().BoolVar(&opts.ElasticWeight, "elastic", false, "scale origin weight by destination availability")
	cmd.Flags().IntVar(&opts.DestinationCap, "cap", 0, "max destinations per origin (0 = unlimited)")
	_ = cmd.MarkFlagRequired("destinations")

	return cmd
}

// serviceAreaCommand creates the "service-area" metric command.
func (c *CLI) serviceAreaCommand() *cobra.Command {
	var opts pipeline.Options
	var flags analysisFlags

	cmd := &cobra.Command{
		Use:   "service-area",
		Short: "Compute the reachable network area around each origin",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Metric = pipeline.MetricServiceArea
			return c.runAnalysis(cmd.Context(), opts, flags)
		},
	}

	registerInputFlags(cmd, &opts)
	flags.register(cmd)

	return cmd
}

// analysisOutput is the JSON document written by metric commands.
type analysisOutput struct {
	RunID         string                         `json:"run_id"`
	Metric        string                         `json:"metric"`
	Accessibility *una.AccessibilityResult       `json:"accessibility,omitempty"`
	Betweenness   *una.BetweennessResult         `json:"betweenness,omitempty"`
	ServiceAreas  map[int]*una.OriginServiceArea `json:"service_areas,omitempty"`
}

// runAnalysis executes the pipeline for a metric command and handles
// output, progress display, and optional result persistence.
func (c *CLI) runAnalysis(ctx context.Context, opts pipeline.Options, flags analysisFlags) error {
	opts.Refresh = flags.refresh

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var result *pipeline.Result
	if flags.showProgress {
		err = runWithProgress(ctx, "Analyzing "+opts.Metric, func(ctx context.Context, prog una.Progress) error {
			opts.Progress = prog
			result, err = runner.Execute(ctx, opts)
			return err
		})
	} else {
		result, err = runner.Execute(ctx, opts)
	}
	if err != nil {
		return err
	}

	printSuccess("Computed %s", opts.Metric)
	printNetworkStats(result.Stats.NodeCount, result.Stats.EdgeCount,
		result.Stats.OriginCount, result.Stats.DestinationCount,
		result.CacheInfo.AnalyzeHit)

	if err := writeAnalysisOutput(result, opts.Metric, flags.output); err != nil {
		return err
	}
	if flags.storeURI != "" {
		if err := saveToStore(ctx, result, flags); err != nil {
			return err
		}
		printDetail("Stored run %s", result.RunID)
	}
	return nil
}

// writeAnalysisOutput marshals the metric result to a file or stdout.
func writeAnalysisOutput(result *pipeline.Result, metric, path string) error {
	out := analysisOutput{
		RunID:         result.RunID,
		Metric:        metric,
		Accessibility: result.Accessibility,
		Betweenness:   result.Betweenness,
		ServiceAreas:  result.ServiceAreas,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	printFile(path)
	return nil
}

// saveToStore persists the metric result to MongoDB.
func saveToStore(ctx context.Context, result *pipeline.Result, flags analysisFlags) error {
	sp := newSpinnerWithContext(ctx, "Storing results")
	sp.Start()
	defer sp.Stop()

	st, err := store.Connect(ctx, store.Config{URI: flags.storeURI, Database: flags.storeDB})
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	switch {
	case result.Accessibility != nil:
		return st.SaveAccessibility(ctx, result.RunID, result.Accessibility)
	case result.Betweenness != nil:
		return st.SaveBetweenness(ctx, result.RunID, result.Betweenness)
	case result.ServiceAreas != nil:
		return st.SaveServiceAreas(ctx, result.RunID, result.ServiceAreas)
	}
	return nil
}
