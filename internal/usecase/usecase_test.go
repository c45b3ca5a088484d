package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrieval/config"
	"retrieval/internal/adapter/cache"
	"retrieval/internal/adapter/store"
	"retrieval/internal/adapter/synonyms"
	"retrieval/internal/domain"
)

const corpusJSONL = `{"doc_id": "docA", "tokens": ["cat", "dog", "cat"]}
{"doc_id": "docB", "tokens": ["dog", "dog", "fish"]}
this line is not json
{"doc_id": "docC", "tokens": ["bird", "tree"]}
`

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIndexUseCase_BuildsAndPersists(t *testing.T) {
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer st.Close()

	var mu sync.Mutex
	var progressed []string
	uc := NewIndexUseCase(st, false)
	res, idx, err := uc.Index(context.Background(), []string{writeCorpus(t, corpusJSONL)}, func(n int, id string) {
		mu.Lock()
		progressed = append(progressed, id)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.DocumentsIndexed)
	assert.Equal(t, 1, res.RecordsSkipped)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, 5, res.Terms)
	assert.Equal(t, []string{"docA", "docB", "docC"}, progressed)

	loaded, err := LoadIndex(st)
	require.NoError(t, err)
	assert.Equal(t, idx.Terms(), loaded.Terms())
	assert.Equal(t, idx.BM25IDF("cat"), loaded.BM25IDF("cat"))
}

func TestIndexUseCase_Errors(t *testing.T) {
	uc := NewIndexUseCase(nil, false)

	_, _, err := uc.Index(context.Background(), []string{writeCorpus(t, "not json\n")}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)

	dup := `{"doc_id": "a", "tokens": ["x"]}
{"doc_id": "a", "tokens": ["y"]}
`
	_, _, err = uc.Index(context.Background(), []string{writeCorpus(t, dup)}, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateDocument)

	_, _, err = uc.Index(context.Background(), []string{filepath.Join(t.TempDir(), "missing.jsonl")}, nil)
	assert.Error(t, err)
}

func memoryIndexer() *IndexUseCase {
	return NewIndexUseCase(nil, false)
}

func TestRetrieveUseCase_RunKeepsOrder(t *testing.T) {
	_, idx, err := memoryIndexer().Index(context.Background(), []string{writeCorpus(t, corpusJSONL)}, nil)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	scorer, err := NewScorer(cfg, idx, nil, cache.NewQueryCache(16, 0))
	require.NoError(t, err)

	var queries []domain.Query
	for i := 0; i < 40; i++ {
		toks := []string{"cat", "dog"}
		if i%2 == 1 {
			toks = []string{"fish"}
		}
		queries = append(queries, domain.Query{ID: fmt.Sprint(i), Tokens: toks})
	}

	var calls int64
	var mu sync.Mutex
	results, err := NewRetrieveUseCase(scorer, cfg.Retrieve.TopN, 4).Run(context.Background(), queries, func(int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, results, len(queries))
	assert.Equal(t, int64(len(queries)), calls)

	for i, r := range results {
		assert.Equal(t, fmt.Sprint(i), r.QueryID)
	}
	require.Len(t, results[0].Results, 2)
	assert.Equal(t, "docA", results[0].Results[0].DocID)
	assert.Equal(t, "docB", results[0].Results[1].DocID)
	require.Len(t, results[1].Results, 1)
	assert.Equal(t, "docB", results[1].Results[0].DocID)
}

func TestRetrieveUseCase_Cancelled(t *testing.T) {
	_, idx, err := memoryIndexer().Index(context.Background(), []string{writeCorpus(t, corpusJSONL)}, nil)
	require.NoError(t, err)

	scorer, err := NewScorer(config.DefaultConfig(), idx, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRetrieveUseCase(scorer, 10, 2).Run(ctx, []domain.Query{{ID: "1", Tokens: []string{"cat"}}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScorer(t *testing.T) {
	_, idx, err := memoryIndexer().Index(context.Background(), []string{writeCorpus(t, corpusJSONL)}, nil)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	s, err := NewScorer(cfg, idx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bm25", s.Name())

	cfg.Retrieve.Model = config.ModelTFIDF
	s, err = NewScorer(cfg, idx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "tfidf", s.Name())

	cfg.Expansion.Enabled = true
	_, err = NewScorer(cfg, idx, nil, nil)
	assert.Error(t, err)

	cfg.Retrieve.Model = "lm"
	_, err = NewScorer(cfg, idx, nil, nil)
	assert.Error(t, err)
}

func TestExpansionPipeline(t *testing.T) {
	_, idx, err := memoryIndexer().Index(context.Background(), []string{writeCorpus(t, corpusJSONL)}, nil)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Expansion.Enabled = true
	cfg.Expansion.FeedbackDocs = 0

	plain, err := NewScorer(config.DefaultConfig(), idx, nil, nil)
	require.NoError(t, err)
	expanded, err := NewScorer(cfg, idx, synonyms.Table{}, cache.NewQueryCache(8, 0))
	require.NoError(t, err)
	assert.Equal(t, "bm25+expansion", expanded.Name())

	q := []string{"cat"}
	assert.Equal(t, plain.Score(q).Docs(), expanded.Score(q).Docs())

	syn := synonyms.Table{"cat": {{Term: "tree", Frequency: 10}}}
	withSyn, err := NewScorer(cfg, idx, syn, nil)
	require.NoError(t, err)
	_, ok := withSyn.Score(q).Get("docC")
	assert.True(t, ok)
}
