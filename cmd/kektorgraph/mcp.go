package main

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	kgmcp "github.com/sanonone/kektorgraph/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the expand_edges tool over MCP on stdin/stdout",
	Args:  cobra.NoArgs,
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

		slog.Info("MCP server starting on stdio", "version", kgmcp.Version)
		return kgmcp.NewMCPServer(svc).Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
