package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ix, err := buildIndexer(cfg)
	if err != nil {
		return err
	}
	if err := loadIfPresent(ix, cfg); err != nil {
		return err
	}

	stats := ix.Stats()
	fmt.Printf("Index:    %s\n", cfg.Index.IndexPath)
	fmt.Printf("Metadata: %s\n", cfg.Index.MetadataPath)
	fmt.Printf("Chunks:   %d\n", stats.TotalChunks)
	fmt.Printf("Records:  %d\n", stats.TotalMetadata)
	return nil
}
