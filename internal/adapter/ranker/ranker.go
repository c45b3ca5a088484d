// Package ranker orders score tables into ranked result lists.
package ranker

import (
	"sort"

	"retrieval/internal/domain"
)

const DefaultTopN = 100

// Rank sorts table by score descending and keeps at most topN documents.
// Equal scores keep the order in which documents entered the table.
// Documents scoring zero or less are not relevant and are dropped.
// A topN of zero or less means DefaultTopN.
func Rank(table *domain.ScoreTable, topN int) []domain.ScoredDoc {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if table == nil || table.Len() == 0 {
		return nil
	}

	docs := make([]domain.ScoredDoc, 0, table.Len())
	table.Each(func(docID string, score float64) {
		if score > 0 {
			docs = append(docs, domain.ScoredDoc{DocID: docID, Score: score})
		}
	})

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})

	if len(docs) > topN {
		docs = docs[:topN]
	}
	return docs
}
