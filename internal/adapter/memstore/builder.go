package memstore

import (
	"context"
	"fmt"
	"time"

	"retrieval/internal/domain"
	"retrieval/internal/logging"
	"retrieval/internal/port"
)

// ProgressFunc is called after each document is ingested.
type ProgressFunc func(processed int, docID string)

// Builder turns a stream of tokenized documents into a sealed PostingStore.
type Builder struct {
	positions bool
	progress  ProgressFunc
}

func NewBuilder(positions bool, progress ProgressFunc) *Builder {
	return &Builder{positions: positions, progress: progress}
}

// Build consumes src, inserting every token occurrence, and seals the
// result. Cancellation is observed between documents.
func (b *Builder) Build(ctx context.Context, src port.DocumentSource) (*PostingStore, error) {
	log := logging.WithComponent("builder")
	start := time.Now()

	store := NewPostingStore(b.positions)
	count := 0

	err := src.Each(ctx, func(doc domain.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.AddDocument(doc.ID, len(doc.Tokens)); err != nil {
			return err
		}
		for i, tok := range doc.Tokens {
			if err := store.Insert(tok, doc.ID, i); err != nil {
				return fmt.Errorf("insert %q into %s: %w", tok, doc.ID, err)
			}
		}
		count++
		if b.progress != nil {
			b.progress(count, doc.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if err := store.Seal(count); err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	stats := store.Stats()
	log.Info("index sealed",
		"documents", stats.TotalDocs,
		"terms", stats.TotalTerms,
		"postings", stats.TotalPostings,
		"avg_doc_len", stats.AvgDocLen,
		"duration", time.Since(start),
	)
	return store, nil
}

// SliceSource adapts an in-memory slice to port.DocumentSource.
type SliceSource []domain.Document

func (s SliceSource) Each(ctx context.Context, fn func(domain.Document) error) error {
	for _, doc := range s {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}
