package memstore

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrieval/internal/domain"
)

func buildStore(t *testing.T, positions bool, docs ...domain.Document) *PostingStore {
	t.Helper()
	s := NewPostingStore(positions)
	for _, d := range docs {
		require.NoError(t, s.AddDocument(d.ID, len(d.Tokens)))
		for i, tok := range d.Tokens {
			require.NoError(t, s.Insert(tok, d.ID, i))
		}
	}
	require.NoError(t, s.Seal(len(docs)))
	return s
}

func catDog() []domain.Document {
	return []domain.Document{
		{ID: "docA", Tokens: []string{"cat", "dog", "cat"}},
		{ID: "docB", Tokens: []string{"dog", "dog", "fish"}},
	}
}

func TestPostingStore_InsertAndPostings(t *testing.T) {
	s := buildStore(t, true, catDog()...)

	cat := s.Postings("cat")
	require.Len(t, cat.Postings, 1)
	assert.Equal(t, "docA", cat.Postings[0].DocID)
	assert.Equal(t, 2, cat.Postings[0].TF)
	assert.Equal(t, []int{0, 2}, cat.Postings[0].Positions)

	dog := s.Postings("dog")
	assert.Equal(t, 2, dog.DocumentFrequency())
	assert.Equal(t, "docA", dog.Postings[0].DocID)
	assert.Equal(t, 2, dog.Postings[1].TF)
}

func TestPostingStore_PositionsDisabled(t *testing.T) {
	s := buildStore(t, false, catDog()...)
	assert.Nil(t, s.Postings("cat").Postings[0].Positions)
}

func TestPostingStore_UnknownTerm(t *testing.T) {
	s := buildStore(t, false, catDog()...)

	e := s.Postings("zebra")
	assert.Equal(t, "zebra", e.Term)
	assert.Empty(t, e.Postings)
	assert.Equal(t, 0.0, s.IDF("zebra"))
	assert.Equal(t, 0.0, s.BM25IDF("zebra"))
}

func TestPostingStore_IDF(t *testing.T) {
	s := buildStore(t, false, catDog()...)

	assert.InDelta(t, math.Log(2), s.IDF("cat"), 1e-12)
	assert.Equal(t, 0.0, s.IDF("dog"))
	assert.InDelta(t, 0.693147, s.BM25IDF("cat"), 1e-6)
	assert.InDelta(t, 0.182322, s.BM25IDF("dog"), 1e-6)
	assert.Greater(t, s.BM25IDF("dog"), 0.0)
}

func TestPostingStore_Lengths(t *testing.T) {
	s := buildStore(t, false, catDog()...)

	assert.Equal(t, 3, s.DocumentLength("docA"))
	assert.Equal(t, 3, s.DocumentLength("docB"))
	assert.Equal(t, 3.0, s.AverageDocumentLength())
	assert.Equal(t, 2, s.TotalDocs())
	assert.Equal(t, []string{"docA", "docB"}, s.Documents())
	assert.Equal(t, []string{"cat", "dog", "fish"}, s.Terms())
}

func TestPostingStore_DocumentTerms(t *testing.T) {
	s := buildStore(t, false, catDog()...)

	assert.Equal(t, []domain.TermFrequency{{Term: "cat", TF: 2}, {Term: "dog", TF: 1}}, s.DocumentTerms("docA"))
	assert.Equal(t, []domain.TermFrequency{{Term: "dog", TF: 2}, {Term: "fish", TF: 1}}, s.DocumentTerms("docB"))
}

func TestPostingStore_DocumentNorm(t *testing.T) {
	s := buildStore(t, false, catDog()...)

	wCat := (1 + math.Log(2)) * math.Log(2)
	assert.InDelta(t, wCat, s.DocumentNorm("docA"), 1e-12)
	// dog has idf 0, so docB only carries fish.
	assert.InDelta(t, math.Log(2), s.DocumentNorm("docB"), 1e-12)
}

func TestPostingStore_Errors(t *testing.T) {
	s := NewPostingStore(false)
	require.NoError(t, s.AddDocument("d1", 1))

	err := s.AddDocument("d1", 1)
	assert.ErrorIs(t, err, domain.ErrDuplicateDocument)

	assert.ErrorIs(t, s.Insert("x", "missing", 0), domain.ErrUnknownDocument)
	assert.ErrorIs(t, s.Seal(0), domain.ErrEmptyCorpus)
	assert.ErrorIs(t, s.Seal(2), domain.ErrDocumentCountMismatch)

	require.NoError(t, s.Insert("x", "d1", 0))
	require.NoError(t, s.Seal(1))
	assert.True(t, s.Sealed())

	assert.ErrorIs(t, s.Seal(1), domain.ErrAlreadySealed)
	assert.ErrorIs(t, s.Insert("x", "d1", 1), domain.ErrSealed)
	assert.ErrorIs(t, s.AddDocument("d2", 1), domain.ErrSealed)
}

func TestPostingStore_Reset(t *testing.T) {
	s := buildStore(t, false, catDog()...)
	s.Reset()

	assert.False(t, s.Sealed())
	assert.Equal(t, 0, s.TotalDocs())
	assert.Empty(t, s.Postings("cat").Postings)

	require.NoError(t, s.AddDocument("docA", 1))
	require.NoError(t, s.Insert("cat", "docA", 0))
	require.NoError(t, s.Seal(1))
}

func TestPostingStore_ConcurrentReads(t *testing.T) {
	s := buildStore(t, false, catDog()...)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Postings("dog")
				_ = s.BM25IDF("cat")
				_ = s.DocumentLength("docB")
			}
		}()
	}
	wg.Wait()
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := buildStore(t, true, catDog()...)

	snap, err := s.Snapshot()
	require.NoError(t, err)

	r, err := FromSnapshot(snap)
	require.NoError(t, err)

	assert.True(t, r.Sealed())
	assert.Equal(t, s.Documents(), r.Documents())
	assert.Equal(t, s.Terms(), r.Terms())
	for _, term := range s.Terms() {
		assert.Equal(t, s.Postings(term), r.Postings(term))
		assert.Equal(t, s.IDF(term), r.IDF(term))
		assert.Equal(t, s.BM25IDF(term), r.BM25IDF(term))
	}
	for _, doc := range s.Documents() {
		assert.Equal(t, s.DocumentNorm(doc), r.DocumentNorm(doc))
		assert.Equal(t, s.DocumentTerms(doc), r.DocumentTerms(doc))
	}
	assert.Equal(t, s.AverageDocumentLength(), r.AverageDocumentLength())
}

func TestSnapshot_RequiresSeal(t *testing.T) {
	_, err := NewPostingStore(false).Snapshot()
	assert.ErrorIs(t, err, domain.ErrNotSealed)

	_, err = FromSnapshot(&domain.IndexSnapshot{})
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}
