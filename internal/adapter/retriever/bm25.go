package retriever

import (
	"retrieval/internal/domain"
	"retrieval/internal/port"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// BM25Scorer implements Okapi BM25 over a sealed index. Each distinct
// query term contributes once regardless of how often it is repeated.
type BM25Scorer struct {
	index port.IndexReader
	k1    float64
	b     float64
}

func NewBM25Scorer(index port.IndexReader, k1, b float64) *BM25Scorer {
	return &BM25Scorer{
		index: index,
		k1:    k1,
		b:     b,
	}
}

func (s *BM25Scorer) Name() string {
	return "bm25"
}

func (s *BM25Scorer) Score(tokens []string) *domain.ScoreTable {
	table := domain.NewScoreTable()
	avgDl := s.index.AverageDocumentLength()

	for _, term := range distinctTerms(tokens) {
		entry := s.index.Postings(term)
		if len(entry.Postings) == 0 {
			continue
		}
		idf := s.index.BM25IDF(term)

		for _, p := range entry.Postings {
			dl := float64(s.index.DocumentLength(p.DocID))
			table.Add(p.DocID, idf*ComputeTFNorm(float64(p.TF), dl, avgDl, s.k1, s.b))
		}
	}

	return table
}

// ComputeTFNorm is the saturated, length-normalized term frequency
// component of BM25. A zero average length yields 0.
func ComputeTFNorm(tf, dl, avgDl, k1, b float64) float64 {
	if avgDl <= 0 {
		return 0
	}
	return (tf * (k1 + 1)) / (tf + k1*(1-b+b*dl/avgDl))
}

// distinctTerms returns tokens with duplicates removed, keeping first occurrences.
func distinctTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
