package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <file>",
	Short: "Remove all indexed chunks for a file",
	Long: `Remove every chunk attributed to the given file from the index.
The file itself is not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	ix, err := buildIndexer(cfg)
	if err != nil {
		return err
	}
	if err := loadIfPresent(ix, cfg); err != nil {
		return err
	}

	removed, err := ix.RemoveFile(path)
	if err != nil {
		return fmt.Errorf("removal failed: %w", err)
	}
	if removed == 0 {
		fmt.Printf("No chunks indexed for %s\n", path)
		return nil
	}

	if err := ix.Save(cfg.Index.IndexPath, cfg.Index.MetadataPath); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	fmt.Printf("Removed %d chunks for %s\n", removed, path)
	return nil
}
