package retriever

import (
	"math"

	"retrieval/internal/domain"
	"retrieval/internal/port"
)

// CosineScorer ranks documents by the cosine between log-dampened query
// and document term-weight vectors. Scores fall in [0, 1].
type CosineScorer struct {
	index port.IndexReader
}

func NewCosineScorer(index port.IndexReader) *CosineScorer {
	return &CosineScorer{index: index}
}

func (s *CosineScorer) Name() string {
	return "tfidf"
}

func (s *CosineScorer) Score(tokens []string) *domain.ScoreTable {
	table := domain.NewScoreTable()

	terms := distinctTerms(tokens)
	counts := make(map[string]int, len(terms))
	for _, t := range tokens {
		counts[t]++
	}

	var qnorm float64
	weights := make([]float64, len(terms))
	for i, term := range terms {
		w := 1 + math.Log(float64(counts[term]))
		weights[i] = w
		qnorm += w * w
	}
	qnorm = math.Sqrt(qnorm)
	if qnorm == 0 {
		return table
	}

	for i, term := range terms {
		entry := s.index.Postings(term)
		if len(entry.Postings) == 0 {
			continue
		}
		idf := s.index.IDF(term)
		for _, p := range entry.Postings {
			table.Add(p.DocID, weights[i]*documentWeight(p.TF, idf))
		}
	}

	// Normalize in place; docs are visited in insertion order so the
	// table keeps its tie-breaking order.
	table.Each(func(docID string, dot float64) {
		norm := s.index.DocumentNorm(docID)
		if norm == 0 {
			table.Set(docID, 0)
			return
		}
		table.Set(docID, dot/(qnorm*norm))
	})

	return table
}

// documentWeight is the log-dampened tf-idf weight of a term in a document.
// It never decreases as tf grows.
func documentWeight(tf int, idf float64) float64 {
	if tf <= 0 {
		return 0
	}
	return (1 + math.Log(float64(tf))) * idf
}
