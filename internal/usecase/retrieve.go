package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"retrieval/internal/adapter/ranker"
	"retrieval/internal/domain"
	"retrieval/internal/logging"
	"retrieval/internal/port"
)

// RetrieveUseCase scores and ranks queries against a sealed index.
type RetrieveUseCase struct {
	scorer  port.Scorer
	topN    int
	workers int
}

// NewRetrieveUseCase creates a new retrieve use case. workers below one
// means sequential scoring.
func NewRetrieveUseCase(scorer port.Scorer, topN, workers int) *RetrieveUseCase {
	if workers < 1 {
		workers = 1
	}
	return &RetrieveUseCase{
		scorer:  scorer,
		topN:    topN,
		workers: workers,
	}
}

// Retrieve ranks a single token sequence.
func (u *RetrieveUseCase) Retrieve(tokens []string) []domain.ScoredDoc {
	return ranker.Rank(u.scorer.Score(tokens), u.topN)
}

// Run scores every query in parallel and returns results in input order.
// Cancellation is checked before each query starts; a query already
// being scored runs to completion.
func (u *RetrieveUseCase) Run(ctx context.Context, queries []domain.Query, progress func(done int)) ([]domain.QueryResult, error) {
	log := logging.WithComponent("retrieve")
	start := time.Now()

	results := make([]domain.QueryResult, len(queries))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = domain.QueryResult{
				QueryID: q.ID,
				Results: u.Retrieve(q.Tokens),
			}
			n := done.Add(1)
			if progress != nil {
				progress(int(n))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("queries scored",
		"model", u.scorer.Name(),
		"queries", len(queries),
		"workers", u.workers,
		"duration", time.Since(start),
	)
	return results, nil
}
