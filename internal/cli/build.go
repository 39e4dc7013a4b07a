package cli

import (
	"github.com/spf13/cobra"

	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/network"
	"github.com/urbanweave/streetscope/pkg/pipeline"
)

// buildCommand creates the "build" command for constructing street networks.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		output         string
		weightAttr     string
		tolerance      float64
		redundantEdges string
		noCache        bool
		refresh        bool
	)

	cmd := &cobra.Command{
		Use:   "build <lines.json>",
		Short: "Construct a street network from line features",
		Long: `Build reads a line feature collection, snaps endpoints into shared
nodes, resolves redundant parallel edges, and writes the resulting network
snapshot as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			net, cached, err := runner.BuildWithCacheInfo(cmd.Context(), pipeline.Options{
				Lines:           args[0],
				WeightAttribute: weightAttr,
				Tolerance:       tolerance,
				RedundantEdges:  redundantEdges,
				Refresh:         refresh,
			})
			if err != nil {
				return err
			}

			if err := netio.ExportNetwork(net.Snapshot(), output); err != nil {
				return err
			}

			prog.done("Built street network")
			printSuccess("Network written")
			printFile(output)
			printNetworkStats(net.NodeCount(), net.EdgeCount(), 0, 0, cached)
			reportTags(net)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "network.json", "output snapshot path")
	cmd.Flags().StringVar(&weightAttr, "weight-attribute", "", "line attribute to use as edge weight (default: geometric length)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "endpoint snapping tolerance in network units")
	cmd.Flags().StringVar(&redundantEdges, "redundant-edges", "", "redundant edge policy: keep, discard, or split")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached results")

	return cmd
}

// reportTags prints a summary of data-quality tags on the built network.
func reportTags(net *network.Network) {
	tags := net.TagEdges()
	if len(tags) == 0 {
		return
	}
	counts := map[network.EdgeTag]int{}
	for _, edgeTags := range tags {
		for _, tag := range edgeTags {
			counts[tag]++
		}
	}
	for _, tag := range []network.EdgeTag{network.TagZeroLength, network.TagSelfLoop, network.TagDangling} {
		if n := counts[tag]; n > 0 {
			printWarning("%d edges tagged %s", n, tag)
		}
	}
}
