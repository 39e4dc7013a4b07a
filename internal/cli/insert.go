package cli

import (
	"github.com/spf13/cobra"

	"github.com/urbanweave/streetscope/pkg/netio"
	"github.com/urbanweave/streetscope/pkg/network"
)

// insertCommand creates the "insert" command for projecting point layers
// onto an existing network snapshot.
func (c *CLI) insertCommand() *cobra.Command {
	var (
		networkPath string
		output      string
		layer       string
		kindName    string
		weightAttr  string
	)

	cmd := &cobra.Command{
		Use:   "insert <points.json>",
		Short: "Project origin or destination points onto a network",
		Long: `Insert reads a point feature collection, projects each point onto its
nearest street edge, and writes the updated network snapshot. The inserted
nodes carry their projection (nearest edge, position along it, and the
split edge weights) so later analysis can splice them into the graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			kind, err := network.KindFromString(kindName)
			if err != nil {
				return err
			}

			doc, err := netio.ImportNetwork(networkPath)
			if err != nil {
				return err
			}
			net, err := network.FromSnapshot(doc, network.BuildOptions{})
			if err != nil {
				return err
			}

			points, err := netio.LoadPointFeatures(args[0])
			if err != nil {
				return err
			}
			if err := net.InsertNodes(points, layer, kind, weightAttr); err != nil {
				return err
			}

			if err := netio.ExportNetwork(net.Snapshot(), output); err != nil {
				return err
			}

			prog.done("Inserted point layer")
			printSuccess("Inserted %d %s nodes into layer %q", len(points), kind, layer)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&networkPath, "network", "n", "network.json", "input network snapshot")
	cmd.Flags().StringVarP(&output, "output", "o", "network.json", "output snapshot path")
	cmd.Flags().StringVarP(&layer, "layer", "l", "", "layer name for the inserted nodes (required)")
	cmd.Flags().StringVarP(&kindName, "kind", "k", "origin", "node kind: origin or destination")
	cmd.Flags().StringVar(&weightAttr, "weight", "", "point attribute to use as node weight (default: 1)")
	_ = cmd.MarkFlagRequired("layer")

	return cmd
}
