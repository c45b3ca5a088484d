package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retrieval/internal/domain"
)

func TestQueryExpander_NoExpansionMatchesBM25(t *testing.T) {
	idx := catDogIndex(t)
	bm25 := NewBM25Scorer(idx, DefaultK1, DefaultB)
	e := NewQueryExpander(idx, bm25, mapSynonyms{}, ExpansionConfig{MinSynonymFrequency: 1})

	q := []string{"cat", "dog"}
	assert.Equal(t, bm25.Score(q).Docs(), e.Score(q).Docs())
}

func TestQueryExpander_NoFeedbackDocs(t *testing.T) {
	idx := catDogIndex(t)
	bm25 := NewBM25Scorer(idx, DefaultK1, DefaultB)
	e := NewQueryExpander(idx, bm25, nil, ExpansionConfig{FeedbackDocs: 5, FeedbackTerms: 5})

	q := []string{"zebra"}
	assert.Equal(t, []string{"zebra"}, e.Expand(q))
	assert.Equal(t, 0, e.Score(q).Len())
}

func TestQueryExpander_SynonymThreshold(t *testing.T) {
	idx := catDogIndex(t)
	syn := mapSynonyms{
		"cat": {
			{Term: "fish", Frequency: 5},
			{Term: "kitten", Frequency: 1},
		},
	}
	e := NewQueryExpander(idx, NewBM25Scorer(idx, DefaultK1, DefaultB), syn, ExpansionConfig{MinSynonymFrequency: 1})

	assert.Equal(t, []string{"cat", "fish"}, e.Expand([]string{"cat"}))

	_, ok := e.Score([]string{"cat"}).Get("docB")
	assert.True(t, ok, "synonym pulls in docB")
}

func TestQueryExpander_Feedback(t *testing.T) {
	idx := sealedIndex(t,
		domain.Document{ID: "d1", Tokens: []string{"apple", "banana", "cherry", "cherry"}},
		domain.Document{ID: "d2", Tokens: []string{"apple", "date"}},
		domain.Document{ID: "d3", Tokens: []string{"elder", "fig"}},
	)
	bm25 := NewBM25Scorer(idx, DefaultK1, DefaultB)

	// d2 is shorter so it outranks d1; cherry wins on aggregate tf and
	// date beats banana on first appearance.
	e := NewQueryExpander(idx, bm25, nil, ExpansionConfig{FeedbackDocs: 2, FeedbackTerms: 2})

	assert.Equal(t, []string{"apple", "cherry", "date"}, e.Expand([]string{"apple"}))

	e = NewQueryExpander(idx, bm25, nil, ExpansionConfig{FeedbackDocs: 1, FeedbackTerms: 5})
	assert.Equal(t, []string{"apple", "date"}, e.Expand([]string{"apple"}))
}

func TestQueryExpander_Dedup(t *testing.T) {
	idx := catDogIndex(t)
	syn := mapSynonyms{"cat": {{Term: "dog", Frequency: 9}}}
	e := NewQueryExpander(idx, NewBM25Scorer(idx, DefaultK1, DefaultB), syn, ExpansionConfig{FeedbackDocs: 5, FeedbackTerms: 5})

	got := e.Expand([]string{"cat", "dog", "cat"})
	assert.Equal(t, []string{"cat", "dog", "fish"}, got)
}

func TestQueryExpander_Name(t *testing.T) {
	idx := catDogIndex(t)
	e := NewQueryExpander(idx, NewBM25Scorer(idx, DefaultK1, DefaultB), nil, ExpansionConfig{})
	assert.Equal(t, "bm25+expansion", e.Name())
}
