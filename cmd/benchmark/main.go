package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"retrieval/config"
	"retrieval/internal/adapter/ranker"
	"retrieval/internal/adapter/store"
	"retrieval/internal/adapter/synonyms"
	"retrieval/internal/domain"
	"retrieval/internal/logging"
	"retrieval/internal/port"
	"retrieval/internal/usecase"
)

type run struct {
	name    string
	results []domain.ScoredDoc
	elapsed time.Duration
}

func main() {
	indexPath := flag.String("index", ".", "Path to indexed directory")
	query := flag.String("q", "", "Whitespace-tokenized query to compare")
	topK := flag.Int("k", 10, "Number of results per model")
	synPath := flag.String("synonyms", "", "JSONC synonym file for the expansion run")
	repeat := flag.Int("repeat", 100, "Scoring repetitions used for latency")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -index ./data -q \"covid vaccine\"")
		fmt.Println("\nCompares:")
		fmt.Println("  1. TF-IDF cosine ranking")
		fmt.Println("  2. BM25 ranking")
		fmt.Println("  3. BM25 with synonym and pseudo-relevance feedback expansion")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.OpenExisting(config.IndexDBPath(*indexPath))
	if errors.Is(err, store.ErrNoIndex) {
		fmt.Fprintf(os.Stderr, "No index found in %s. Run 'retrieval index' first\n", *indexPath)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	idx, err := usecase.LoadIndex(st)
	st.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading index: %v\n", err)
		os.Exit(1)
	}

	syn, err := synonyms.Load(*synPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading synonyms: %v\n", err)
		os.Exit(1)
	}

	tokens := strings.Fields(*query)
	var runs []run
	for _, variant := range []struct {
		model  string
		expand bool
	}{
		{config.ModelTFIDF, false},
		{config.ModelBM25, false},
		{config.ModelBM25, true},
	} {
		c := *cfg
		c.Retrieve.Model = variant.model
		c.Expansion.Enabled = variant.expand

		scorer, err := usecase.NewScorer(&c, idx, syn, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building %s: %v\n", variant.model, err)
			os.Exit(1)
		}
		runs = append(runs, measure(scorer, tokens, *topK, *repeat))
	}

	stats := idx.Stats()
	fmt.Println("RANKING MODEL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents: %d  Terms: %d  Avg length: %.1f\n", stats.TotalDocs, stats.TotalTerms, stats.AvgDocLen)
	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	for _, r := range runs {
		fmt.Printf("\n%s (%s per query)\n", r.name, r.elapsed)
		for i, d := range r.results {
			fmt.Printf("  %2d. %-40s %.4f\n", i+1, d.DocID, d.Score)
		}
		if len(r.results) == 0 {
			fmt.Println("  no results")
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("TOP-K OVERLAP (Jaccard):")
	for i := 0; i < len(runs); i++ {
		for j := i + 1; j < len(runs); j++ {
			fmt.Printf("  %-16s vs %-16s %.3f\n", runs[i].name, runs[j].name, jaccard(runs[i].results, runs[j].results))
		}
	}
}

func measure(scorer port.Scorer, tokens []string, k, repeat int) run {
	if repeat < 1 {
		repeat = 1
	}
	var results []domain.ScoredDoc
	start := time.Now()
	for i := 0; i < repeat; i++ {
		results = ranker.Rank(scorer.Score(tokens), k)
	}
	return run{
		name:    scorer.Name(),
		results: results,
		elapsed: time.Since(start) / time.Duration(repeat),
	}
}

func jaccard(a, b []domain.ScoredDoc) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]struct{}, len(a))
	for _, d := range a {
		set[d.DocID] = struct{}{}
	}
	inter := 0
	for _, d := range b {
		if _, ok := set[d.DocID]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
