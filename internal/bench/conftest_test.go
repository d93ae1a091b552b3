package bench

import (
	"context"
	"sync"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

// fakeStore is an in-memory document store understanding the filter
// shapes the core emits: equality, $exists, and $in, with dot-path
// matching that fans out through arrays and nested objects.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string][]domain.Document

	findCalls    int
	countCalls   int
	explainCalls int
	explainText  string
	findErr      func(collection string, call int) error
	seenFilters  []domain.Document
}

func newFakeStore(collections map[string][]domain.Document) *fakeStore {
	return &fakeStore{collections: collections}
}

func (s *fakeStore) Find(_ context.Context, collection string, filter domain.Document, opts db.FindOptions) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	s.seenFilters = append(s.seenFilters, filter)
	if s.findErr != nil {
		if err := s.findErr(collection, s.findCalls); err != nil {
			return nil, err
		}
	}
	var out []domain.Document
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			out = append(out, doc)
		}
		if opts.Limit > 0 && int64(len(out)) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Count(ctx context.Context, collection string, filter domain.Document) (int64, error) {
	s.mu.Lock()
	s.countCalls++
	s.mu.Unlock()
	docs, err := s.Find(ctx, collection, filter, db.FindOptions{})
	return int64(len(docs)), err
}

func (s *fakeStore) Aggregate(_ context.Context, collection string, _ []domain.Document) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[collection], nil
}

func (s *fakeStore) Explain(context.Context, string, domain.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explainCalls++
	return s.explainText, nil
}

func matches(doc domain.Document, filter domain.Document) bool {
	for field, want := range filter {
		leaves := domain.ExtractValues(doc, field)
		if cond, ok := want.(domain.Document); ok {
			if !matchesCond(leaves, cond) {
				return false
			}
			continue
		}
		if !containsValue(leaves, want) {
			return false
		}
	}
	return true
}

func matchesCond(leaves []any, cond domain.Document) bool {
	for op, arg := range cond {
		switch op {
		case "$exists":
			if arg == true && len(leaves) == 0 {
				return false
			}
			if arg == false && len(leaves) > 0 {
				return false
			}
		case "$in":
			hit := false
			for _, cand := range arg.([]any) {
				if containsValue(leaves, cand) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsValue(leaves []any, want any) bool {
	for _, v := range leaves {
		if v == want {
			return true
		}
	}
	return false
}
