package cli

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"retrieval/config"
	"retrieval/internal/adapter/corpus"
	"retrieval/internal/adapter/store"
	"retrieval/internal/usecase"
)

var indexPositions bool

var indexCmd = &cobra.Command{
	Use:   "index [files or patterns...]",
	Short: "Build the inverted index from a tokenized corpus",
	Long: `Build the inverted index from corpus records {"doc_id", "tokens"} stored as
JSON Lines or a JSON array. Arguments are files or doublestar patterns
relative to --dir; with no arguments index.corpus from the config is used.
The index is stored in .retrieval/index.db within the root directory.

Examples:
  retrieval index                          # Index files named in config
  retrieval index preprocessed_corpus.json
  retrieval index "shards/**/*.jsonl"`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexPositions, "positions", false, "record token positions in postings")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	if cmd.Flags().Changed("positions") {
		cfg.Index.Positions = indexPositions
	}

	inputs := cfg.Index.Corpus
	if len(args) > 0 {
		inputs = args
	}
	files, err := corpus.ResolveFiles(root, inputs, cfg.Index.Excludes)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no corpus files match %v under %s", inputs, root)
	}

	// Ensure .retrieval directory exists
	if err := config.EnsureDataDir(root); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.DataDir, err)
	}

	dbPath := config.IndexDBPath(root)
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	// Check for schema migration or rebuild
	migrationResult, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}

	if migrationResult.NeedsRebuild {
		fmt.Printf("Index rebuild required: %s\n", migrationResult.Reason)
		fmt.Println("Clearing existing index...")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	} else if migrationResult.NeedsMigration {
		if err := st.Migrate(cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	fmt.Printf("Indexing %d file(s)...\n", len(files))

	var barMu sync.Mutex
	start := time.Now()
	bar := progressbar.NewOptions(-1,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	progressCallback := func(processed int, docID string) {
		barMu.Lock()
		defer barMu.Unlock()
		if processed%256 == 0 {
			bar.Set(processed)
		}
	}

	indexUC := usecase.NewIndexUseCase(st, cfg.Index.Positions)
	result, _, err := indexUC.Index(cmd.Context(), files, progressCallback)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	// Update schema info after successful indexing
	if err := st.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}

	fmt.Printf("\nIndexing complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Printf("  Documents indexed: %d\n", result.DocumentsIndexed)
	fmt.Printf("  Records skipped:   %d (malformed)\n", result.RecordsSkipped)
	fmt.Printf("  Distinct terms:    %d\n", result.Terms)
	fmt.Printf("  Postings:          %d\n", result.Postings)
	fmt.Printf("  Avg doc length:    %.2f\n", result.AvgDocLen)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for i, w := range result.Warnings {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", len(result.Warnings)-10)
				break
			}
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", dbPath)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
