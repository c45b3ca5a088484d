package port

import "retrieval/internal/domain"

// Scorer maps a query's tokens to per-document scores.
type Scorer interface {
	Score(tokens []string) *domain.ScoreTable

	// Name identifies the model, e.g. "bm25".
	Name() string
}

// SynonymSource supplies expansion candidates for a query term.
type SynonymSource interface {
	Synonyms(term string) []domain.Synonym
}
