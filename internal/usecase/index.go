package usecase

import (
	"context"
	"fmt"
	"time"

	"retrieval/internal/adapter/corpus"
	"retrieval/internal/adapter/memstore"
	"retrieval/internal/adapter/store"
	"retrieval/internal/domain"
)

// IndexUseCase builds an index from corpus files and persists it.
type IndexUseCase struct {
	store     *store.BoltStore
	positions bool
}

// NewIndexUseCase creates a new index use case. store may be nil to build
// in memory only.
func NewIndexUseCase(store *store.BoltStore, positions bool) *IndexUseCase {
	return &IndexUseCase{
		store:     store,
		positions: positions,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Files            int
	DocumentsIndexed int
	RecordsSkipped   int
	Terms            int
	Postings         int
	AvgDocLen        float64
	Duration         time.Duration
	Warnings         []string
}

// ProgressFunc reports documents ingested so far.
type ProgressFunc func(processed int, docID string)

// Index reads every file, builds and seals the posting store, then saves
// it. Malformed records are skipped and reported as warnings; duplicate
// ids and an empty corpus abort the build.
func (u *IndexUseCase) Index(ctx context.Context, files []string, progress ProgressFunc) (*IndexResult, *memstore.PostingStore, error) {
	start := time.Now()
	result := &IndexResult{Files: len(files)}

	src := corpus.NewDocumentFiles(files, func(e *domain.MalformedRecordError) {
		result.RecordsSkipped++
		result.Warnings = append(result.Warnings, e.Error())
	})

	builder := memstore.NewBuilder(u.positions, memstore.ProgressFunc(progress))
	idx, err := builder.Build(ctx, src)
	if err != nil {
		return result, nil, fmt.Errorf("build index: %w", err)
	}

	if u.store != nil {
		snap, err := idx.Snapshot()
		if err != nil {
			return result, nil, err
		}
		if err := u.store.SaveIndex(snap); err != nil {
			return result, nil, fmt.Errorf("save index: %w", err)
		}
	}

	stats := idx.Stats()
	result.DocumentsIndexed = stats.TotalDocs
	result.Terms = stats.TotalTerms
	result.Postings = stats.TotalPostings
	result.AvgDocLen = stats.AvgDocLen
	result.Duration = time.Since(start)

	return result, idx, nil
}

// LoadIndex restores the sealed posting store saved in st.
func LoadIndex(st *store.BoltStore) (*memstore.PostingStore, error) {
	snap, err := st.LoadIndex()
	if err != nil {
		return nil, err
	}
	idx, err := memstore.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	return idx, nil
}
