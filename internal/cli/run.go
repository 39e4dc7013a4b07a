package cli

import (
	"github.com/spf13/cobra"

	"github.com/urbanweave/streetscope/pkg/pipeline"
)

// runCommand creates the "run" command for executing a configured pipeline.
func (c *CLI) runCommand() *cobra.Command {
	var flags analysisFlags

	cmd := &cobra.Command{
		Use:   "run <config.toml>",
		Short: "Run a pipeline described by a TOML configuration file",
		Long: `Run loads a TOML run configuration and executes the full pipeline:
build the network, insert the configured layers, and compute the
configured metric. Analysis parameters come from the file; the shared
flags (--output, --no-cache, --progress, --store) still apply.

Example configuration:

  lines = "streets.json"
  origins = "homes.json"
  destinations = "shops.json"
  metric = "betweenness"
  radius = 1200.0
  detour_ratio = 1.15
  turn_penalty = true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := pipeline.LoadConfig(args[0])
			if err != nil {
				return err
			}
			return c.runAnalysis(cmd.Context(), opts, flags)
		},
	}

	flags.register(cmd)
	return cmd
}
