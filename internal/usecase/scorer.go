package usecase

import (
	"fmt"

	"retrieval/config"
	"retrieval/internal/adapter/cache"
	"retrieval/internal/adapter/retriever"
	"retrieval/internal/port"
)

// NewScorer assembles the scoring pipeline described by cfg. The cache
// and synonyms arguments may be nil.
func NewScorer(cfg *config.Config, index port.IndexReader, synonyms port.SynonymSource, qc *cache.QueryCache) (port.Scorer, error) {
	var scorer port.Scorer
	switch cfg.Retrieve.Model {
	case config.ModelBM25:
		scorer = retriever.NewBM25Scorer(index, cfg.Retrieve.K1, cfg.Retrieve.B)
	case config.ModelTFIDF:
		scorer = retriever.NewCosineScorer(index)
	default:
		return nil, fmt.Errorf("unknown model %q", cfg.Retrieve.Model)
	}

	if qc != nil {
		scorer = cache.NewCachedScorer(scorer, qc)
	}

	if cfg.Expansion.Enabled {
		if cfg.Retrieve.Model != config.ModelBM25 {
			return nil, fmt.Errorf("expansion requires the %s model", config.ModelBM25)
		}
		scorer = retriever.NewQueryExpander(index, scorer, synonyms, retriever.ExpansionConfig{
			MinSynonymFrequency: cfg.Expansion.MinSynonymFrequency,
			FeedbackDocs:        cfg.Expansion.FeedbackDocs,
			FeedbackTerms:       cfg.Expansion.FeedbackTerms,
		})
	}

	return scorer, nil
}
