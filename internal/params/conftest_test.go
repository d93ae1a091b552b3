package params

import (
	"context"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

// mockFinder implements db.Finder for tests and counts calls.
type mockFinder struct {
	findFn func(ctx context.Context, collection string, filter domain.Document, opts db.FindOptions) ([]domain.Document, error)
	calls  int
}

func (m *mockFinder) Find(ctx context.Context, collection string, filter domain.Document, opts db.FindOptions) ([]domain.Document, error) {
	m.calls++
	if m.findFn != nil {
		return m.findFn(ctx, collection, filter, opts)
	}
	return nil, nil
}

// fixedDocs returns a finder always serving the given documents.
func fixedDocs(docs ...domain.Document) *mockFinder {
	return &mockFinder{
		findFn: func(_ context.Context, _ string, _ domain.Document, _ db.FindOptions) ([]domain.Document, error) {
			return docs, nil
		},
	}
}
