package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pycontext/pycontext/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pycontext",
	Short: "Semantic code search over Python codebases",
	Long: `pycontext indexes Python source trees into retrievable chunks
(functions, classes, module docstrings, imports), embeds them, and
answers natural-language queries against the result.

Example usage:
  pycontext index .                    # Index current directory
  pycontext search "parse config file" # Search the index
  pycontext serve                      # Run as an MCP server on stdio`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		}
		cfg = config.Default()
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults)")
}
