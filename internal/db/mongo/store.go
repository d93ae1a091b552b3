// Package mongo implements the db.Store facade on the official MongoDB
// driver. The decode registry is configured so nested documents and
// arrays come back as plain map[string]any / []any, which is what the
// dot-path extraction in domain operates on.
package mongo

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

// Config holds connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store is a db.Store backed by one MongoDB database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and selects the configured database.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo: database is required")
	}

	reg := bson.NewRegistry()
	reg.RegisterTypeMapEntry(bson.TypeEmbeddedDocument, reflect.TypeOf(map[string]any{}))
	reg.RegisterTypeMapEntry(bson.TypeArray, reflect.TypeOf([]any{}))

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetRegistry(reg)
	if cfg.Timeout > 0 {
		opts = opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return db.Wrap(db.OpPing, "", s.client.Ping(ctx, nil))
}

// WaitForReady pings until the server responds or the timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last error
	for {
		if last = s.client.Ping(deadline, nil); last == nil {
			return nil
		}
		select {
		case <-deadline.Done():
			return db.Wrap(db.OpPing, "", fmt.Errorf("not ready after %v: %w", timeout, last))
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Find runs a filtered find with the spec's projection/sort/limit.
func (s *Store) Find(ctx context.Context, collection string, filter domain.Document, opts db.FindOptions) ([]domain.Document, error) {
	findOpts := options.Find()
	if len(opts.Projection) > 0 {
		findOpts = findOpts.SetProjection(opts.Projection)
	}
	if len(opts.Sort) > 0 {
		findOpts = findOpts.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(opts.Limit)
	}

	cur, err := s.db.Collection(collection).Find(ctx, nonNil(filter), findOpts)
	if err != nil {
		return nil, db.Wrap(db.OpFind, collection, err)
	}
	defer cur.Close(ctx)

	var docs []domain.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, db.Wrap(db.OpFind, collection, err)
	}
	return docs, nil
}

// Count counts documents matching the filter.
func (s *Store) Count(ctx context.Context, collection string, filter domain.Document) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, nonNil(filter))
	if err != nil {
		return 0, db.Wrap(db.OpCount, collection, err)
	}
	return n, nil
}

// Aggregate runs an aggregation pipeline.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline []domain.Document) ([]domain.Document, error) {
	stages := make([]any, len(pipeline))
	for i, stage := range pipeline {
		stages[i] = stage
	}
	cur, err := s.db.Collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return nil, db.Wrap(db.OpAggregate, collection, err)
	}
	defer cur.Close(ctx)

	var docs []domain.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, db.Wrap(db.OpAggregate, collection, err)
	}
	return docs, nil
}

// Explain issues the explain command for a find and returns the raw plan
// document as text.
func (s *Store) Explain(ctx context.Context, collection string, filter domain.Document) (string, error) {
	cmd := bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: collection},
			{Key: "filter", Value: nonNil(filter)},
		}},
		{Key: "verbosity", Value: "queryPlanner"},
	}
	raw, err := s.db.RunCommand(ctx, cmd).Raw()
	if err != nil {
		return "", db.Wrap(db.OpExplain, collection, err)
	}
	return raw.String(), nil
}

// InsertMany inserts a batch and returns the number of inserted documents.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []domain.Document) (int, error) {
	items := make([]any, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	res, err := s.db.Collection(collection).InsertMany(ctx, items)
	if err != nil {
		return 0, db.Wrap(db.OpInsertMany, collection, err)
	}
	return len(res.InsertedIDs), nil
}

// Drop removes a collection.
func (s *Store) Drop(ctx context.Context, collection string) error {
	return db.Wrap(db.OpDrop, collection, s.db.Collection(collection).Drop(ctx))
}

// CreateIndexes creates the declared indexes on a collection.
func (s *Store) CreateIndexes(ctx context.Context, collection string, specs []db.IndexSpec) error {
	if len(specs) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(specs))
	for _, spec := range specs {
		keys := make(bson.D, 0, len(spec.Keys))
		for _, k := range spec.Keys {
			keys = append(keys, bson.E{Key: k.Field, Value: k.Order})
		}
		model := mongo.IndexModel{Keys: keys}
		if spec.Name != "" {
			model.Options = options.Index().SetName(spec.Name)
		}
		models = append(models, model)
	}
	_, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models)
	return db.Wrap(db.OpCreateIndex, collection, err)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// nonNil maps a nil filter to the empty document the driver requires.
func nonNil(filter domain.Document) domain.Document {
	if filter == nil {
		return domain.Document{}
	}
	return filter
}
