package main

import (
	"encoding/json"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/mcp"
)

var walkArgs mcp.WalkGraphArgs

var walkCmd = &cobra.Command{
	Use:   "walk <vertex>",
	Short: "Walk the graph breadth-first from a vertex and print the subgraph as JSON",
	Example: `  kektorgraph walk persons/alice --max-depth 3
  kektorgraph walk persons/alice --target persons/dave --direction any`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		svc, closeFn, err := newService()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeFn(); cerr != nil {
				err = multierror.Append(err, cerr)
			}
		}()

		walkArgs.Vertex = args[0]
		_, res, err := svc.WalkGraph(cmd.Context(), nil, walkArgs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(walkCmd)
	walkCmd.Flags().Uint64Var(&walkArgs.MaxDepth, "max-depth", 1, "Number of steps to walk.")
	walkCmd.Flags().StringVar(&walkArgs.Target, "target", "", "Stop at this vertex and print the path to it.")
	walkCmd.Flags().IntVar(&walkArgs.MaxVertices, "max-vertices", mcp.DefaultMaxVertices, "Abort when more vertices are discovered.")
	walkCmd.Flags().StringVar(&walkArgs.Database, "database", "", "Database to query (default server.database).")
	walkCmd.Flags().StringVar(&walkArgs.Direction, "direction", "", "Edge direction: outbound, inbound or any (default traversal.direction).")
	walkCmd.Flags().StringSliceVar(&walkArgs.Relations, "relation", nil, "Only follow edges with these relations.")
}
