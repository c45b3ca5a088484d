package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"retrieval/internal/adapter/memstore"
	"retrieval/internal/domain"
)

func sealedIndex(t testing.TB, docs ...domain.Document) *memstore.PostingStore {
	t.Helper()
	s, err := memstore.NewBuilder(false, nil).Build(context.Background(), memstore.SliceSource(docs))
	require.NoError(t, err)
	return s
}

func catDogIndex(t testing.TB) *memstore.PostingStore {
	return sealedIndex(t,
		domain.Document{ID: "docA", Tokens: []string{"cat", "dog", "cat"}},
		domain.Document{ID: "docB", Tokens: []string{"dog", "dog", "fish"}},
	)
}

type mapSynonyms map[string][]domain.Synonym

func (m mapSynonyms) Synonyms(term string) []domain.Synonym {
	return m[term]
}
