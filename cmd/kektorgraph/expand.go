package main

import (
	"encoding/json"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/mcp"
)

var expandArgs mcp.ExpandEdgesArgs

var expandCmd = &cobra.Command{
	Use:   "expand <vertex>",
	Short: "Fetch the edges of a vertex from every engine and print them as JSON",
	Example: `  kektorgraph expand persons/alice --depth 1 --relation knows
  kektorgraph expand persons/alice --direction any --bulk`,
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

		expandArgs.Vertex = args[0]
		_, res, err := svc.ExpandEdges(cmd.Context(), nil, expandArgs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(expandCmd)
	expandCmd.Flags().Uint64Var(&expandArgs.Depth, "depth", 0, "Traversal depth the edges are fetched for.")
	expandCmd.Flags().StringVar(&expandArgs.Database, "database", "", "Database to query (default server.database).")
	expandCmd.Flags().StringVar(&expandArgs.Direction, "direction", "", "Edge direction: outbound, inbound or any (default traversal.direction).")
	expandCmd.Flags().StringSliceVar(&expandArgs.Relations, "relation", nil, "Only return edges with these relations.")
	expandCmd.Flags().BoolVar(&expandArgs.Bulk, "bulk", false, "Read all edges at once, collapsing identical ones.")
}
