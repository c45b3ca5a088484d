package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"retrieval/config"
	"retrieval/internal/adapter/cache"
	"retrieval/internal/adapter/corpus"
	"retrieval/internal/adapter/memstore"
	"retrieval/internal/adapter/runfile"
	"retrieval/internal/adapter/store"
	"retrieval/internal/adapter/synonyms"
	"retrieval/internal/domain"
	"retrieval/internal/logging"
	"retrieval/internal/port"
	"retrieval/internal/usecase"
)

var (
	searchQueries  []string
	searchModel    string
	searchExpand   bool
	searchSynonyms string
	searchTopN     int
	searchOut      string
	searchTag      string
	searchWorkers  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank documents for a batch of queries and write a run file",
	Long: `Score every query record {"query_id" or "_id", "text"} against the index
and write the top results per query as "qid Q0 doc rank score tag" lines.

Examples:
  retrieval search --queries queries.jsonl
  retrieval search --model tfidf --out tfidf.txt --tag tfidf
  retrieval search --expand --synonyms synonyms.jsonc --top-n 50`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVar(&searchQueries, "queries", nil, "query files or patterns (default from config)")
	addScoringFlags(searchCmd, &searchModel, &searchExpand, &searchSynonyms, &searchTopN)
	searchCmd.Flags().StringVarP(&searchOut, "out", "o", "", "run file path (default from config)")
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "run tag written on every line (default from config)")
	searchCmd.Flags().IntVar(&searchWorkers, "workers", 0, "parallel scoring workers (default from config)")
}

func addScoringFlags(cmd *cobra.Command, model *string, expand *bool, syn *string, topN *int) {
	cmd.Flags().StringVarP(model, "model", "m", "", "scoring model: bm25 or tfidf (default from config)")
	cmd.Flags().BoolVar(expand, "expand", false, "expand queries with synonyms and pseudo-relevance feedback")
	cmd.Flags().StringVar(syn, "synonyms", "", "JSONC synonym file used by --expand")
	cmd.Flags().IntVarP(topN, "top-n", "n", 0, "results per query (default from config)")
}

// applyScoringFlags copies explicitly set flags over the loaded config.
func applyScoringFlags(cmd *cobra.Command, cfg *config.Config, model string, expand bool, syn string, topN int) error {
	if cmd.Flags().Changed("model") {
		cfg.Retrieve.Model = model
	}
	if cmd.Flags().Changed("expand") {
		cfg.Expansion.Enabled = expand
	}
	if cmd.Flags().Changed("synonyms") {
		cfg.Expansion.Synonyms = syn
	}
	if cmd.Flags().Changed("top-n") {
		cfg.Retrieve.TopN = topN
	}
	return cfg.Validate()
}

// openIndex loads the persisted index under root into memory.
func openIndex(root string) (*memstore.PostingStore, error) {
	st, err := store.OpenExisting(config.IndexDBPath(root))
	if errors.Is(err, store.ErrNoIndex) {
		return nil, fmt.Errorf("no index found. Run 'retrieval index' first")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	idx, err := usecase.LoadIndex(st)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	return idx, nil
}

// buildScorer loads synonyms when expansion is on and assembles the model.
// The returned cache is nil when caching is disabled.
func buildScorer(cfg *config.Config, root string, idx *memstore.PostingStore) (port.Scorer, *cache.QueryCache, error) {
	var syn port.SynonymSource
	if cfg.Expansion.Enabled && cfg.Expansion.Synonyms != "" {
		path := cfg.Expansion.Synonyms
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		table, err := synonyms.Load(path)
		if err != nil {
			return nil, nil, err
		}
		logging.WithComponent("cli").Info("synonyms loaded", "path", path, "terms", table.Len())
		syn = table
	}

	var qc *cache.QueryCache
	if cfg.Retrieve.CacheSize > 0 {
		qc = cache.NewQueryCache(cfg.Retrieve.CacheSize, 0)
	}
	scorer, err := usecase.NewScorer(cfg, idx, syn, qc)
	if err != nil {
		return nil, nil, err
	}
	return scorer, qc, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	if err := applyScoringFlags(cmd, cfg, searchModel, searchExpand, searchSynonyms, searchTopN); err != nil {
		return err
	}
	if len(searchQueries) > 0 {
		cfg.Retrieve.Queries = searchQueries
	}
	if searchOut != "" {
		cfg.Output.Path = searchOut
	}
	if searchTag != "" {
		cfg.Output.Tag = searchTag
	}
	if searchWorkers > 0 {
		cfg.Retrieve.Workers = searchWorkers
	}

	files, err := corpus.ResolveFiles(root, cfg.Retrieve.Queries, nil)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no query files match %v under %s", cfg.Retrieve.Queries, root)
	}

	idx, err := openIndex(root)
	if err != nil {
		return err
	}

	scorer, qc, err := buildScorer(cfg, root, idx)
	if err != nil {
		return err
	}

	skipped := 0
	queries, err := corpus.ReadQueries(cmd.Context(), corpus.NewQueryFiles(files, func(*domain.MalformedRecordError) {
		skipped++
	}))
	if err != nil {
		return fmt.Errorf("failed to read queries: %w", err)
	}
	if len(queries) == 0 {
		return fmt.Errorf("no valid queries in %v", files)
	}

	bar := progressbar.NewOptions(len(queries),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Scoring (%s)[reset]", scorer.Name())),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	start := time.Now()
	retrieveUC := usecase.NewRetrieveUseCase(scorer, cfg.Retrieve.TopN, cfg.WorkerCount())
	results, err := retrieveUC.Run(cmd.Context(), queries, func(int) {
		bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	outPath := cfg.Output.Path
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(root, outPath)
	}
	lines, err := runfile.WriteFile(outPath, cfg.Output.Tag, results)
	if err != nil {
		return err
	}

	fmt.Printf("\nScored %d queries with %s in %s\n", len(queries), scorer.Name(), formatDuration(time.Since(start)))
	if skipped > 0 {
		fmt.Printf("  Skipped %d malformed query record(s)\n", skipped)
	}
	if qc != nil {
		hits, misses := qc.Stats()
		fmt.Printf("  Score cache: %d hits, %d misses, %d tables held\n", hits, misses, qc.Size())
	}
	fmt.Printf("  Wrote %d result lines to %s\n", lines, outPath)
	return nil
}
