package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchTopK     int
	searchShowCode bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index with a natural language query",
	Long: `Search the persisted index and print the closest chunks in
ascending distance order.

Examples:
  pycontext search "parse configuration file"
  pycontext search "http retry logic" --top-k 5 --code`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchShowCode, "code", false, "print chunk source code")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	topK := searchTopK
	if topK <= 0 {
		topK = cfg.Search.TopK
	}

	ix, err := buildIndexer(cfg)
	if err != nil {
		return err
	}
	if err := loadIfPresent(ix, cfg); err != nil {
		return err
	}
	if ix.Size() == 0 {
		return fmt.Errorf("index is empty; run 'pycontext index' first")
	}

	results, err := ix.Search(cmd.Context(), query, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s (distance %.4f)\n", i+1, r.Chunk.Summary(), r.Distance)
		if r.Chunk.Docstring != "" {
			fmt.Printf("   %s\n", firstLine(r.Chunk.Docstring))
		}
		if searchShowCode {
			fmt.Println(indent(truncate(r.Chunk.Code, 20), "   | "))
		}
		fmt.Println()
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// truncate limits s to maxLines lines, marking elision
func truncate(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n") + "\n..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
