package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pycontext/pycontext/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as an MCP server on stdio",
	Long: `Expose the indexer over the Model Context Protocol on stdin and
stdout. Diagnostics go to stderr; stdout carries only protocol frames.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ix, err := buildIndexer(cfg)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(cfg, ix)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return srv.Serve(cmd.Context())
}
