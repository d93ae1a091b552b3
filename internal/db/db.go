// Package db defines the store boundary required from the document
// database: filtered find with projection/limit, count, aggregation, an
// explain-style diagnostic call, and the write surface used by the bulk
// loader. No native join, transaction, or schema primitives are required.
package db

import (
	"context"
	"time"

	"github.com/docbench/docbench/internal/domain"
)

// Store is the full database facade combining all sub-interfaces.
// Consumers take the narrow sub-interface they need: the join executor
// only sees a Finder, the loader only a Writer.
type Store interface {
	Pinger
	Finder
	Counter
	Aggregator
	Explainer
	Writer
	IndexManager
	Close(ctx context.Context) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// FindOptions narrows a find to the shape a query spec declares.
// Zero values mean "not set".
type FindOptions struct {
	Projection domain.Document
	Sort       domain.Document
	Limit      int64
}

// Finder runs filtered finds against a collection.
type Finder interface {
	Find(ctx context.Context, collection string, filter domain.Document, opts FindOptions) ([]domain.Document, error)
}

// Counter counts documents matching a filter.
type Counter interface {
	Count(ctx context.Context, collection string, filter domain.Document) (int64, error)
}

// Aggregator runs an aggregation pipeline.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline []domain.Document) ([]domain.Document, error)
}

// Explainer issues an explain-style diagnostic for a find and returns the
// raw plan text.
type Explainer interface {
	Explain(ctx context.Context, collection string, filter domain.Document) (string, error)
}

// Writer is the bulk-load surface.
type Writer interface {
	InsertMany(ctx context.Context, collection string, docs []domain.Document) (int, error)
	Drop(ctx context.Context, collection string) error
}

// IndexSpec declares one index to create: field name to direction
// (1 ascending, -1 descending), in declaration order.
type IndexSpec struct {
	Name string
	Keys []IndexKey
}

// IndexKey is one field of a compound index.
type IndexKey struct {
	Field string
	Order int
}

// IndexManager creates declared indexes.
type IndexManager interface {
	CreateIndexes(ctx context.Context, collection string, specs []IndexSpec) error
}
