package port

import (
	"context"

	"retrieval/internal/domain"
)

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// DocumentSource streams corpus records. Iteration stops at the first
// error returned by fn.
type DocumentSource interface {
	Each(ctx context.Context, fn func(domain.Document) error) error
}

// QuerySource streams query records in input order.
type QuerySource interface {
	Each(ctx context.Context, fn func(domain.Query) error) error
}
