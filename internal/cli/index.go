package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	indexRecursive bool
	indexPattern   string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a Python source tree",
	Long: `Index every matching Python file under the given directory.
Version-control, virtual-environment, and build directories are skipped.
The index is stored at the configured index_path/metadata_path pair.

Examples:
  pycontext index .                      # Index current directory
  pycontext index /path/to/project
  pycontext index . --pattern '*_api.py' # Restrict by glob`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexRecursive, "recursive", "r", true, "descend into subdirectories")
	indexCmd.Flags().StringVarP(&indexPattern, "pattern", "p", "", "glob pattern for files to index (default *.py)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	ix, err := buildIndexer(cfg)
	if err != nil {
		return err
	}
	if err := loadIfPresent(ix, cfg); err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var initialized bool
	ix.OnProgress = func(done, total int, file string) {
		barMu.Lock()
		defer barMu.Unlock()

		if !initialized {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
			initialized = true
		}
		_ = bar.Set(done)
	}

	stats, err := ix.IndexDirectory(cmd.Context(), path, indexRecursive, indexPattern)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if err := ix.Save(cfg.Index.IndexPath, cfg.Index.MetadataPath); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files processed: %d\n", stats.FilesProcessed)
	fmt.Printf("  Files failed:    %d\n", stats.FilesFailed)
	fmt.Printf("  Chunks created:  %d\n", stats.ChunksCreated)
	fmt.Printf("  Total chunks:    %d\n", stats.TotalChunks)

	if len(stats.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range stats.Errors {
			fmt.Printf("  - %s: %s\n", e.File, e.Error)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", cfg.Index.IndexPath)
	return nil
}
