// Package loader populates benchmark collections with synthetic
// documents described by load profiles, then builds the declared
// indexes. Generation is sequential per collection so sequence-keyed
// join fields stay dense and unique; inserts fan out over a worker pool.
package loader

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docbench/docbench/internal/config"
	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

// Store is the write surface the loader needs from the database.
type Store interface {
	db.Writer
	db.IndexManager
}

// BatchFunc is notified after every insert batch; the CLI plugs the
// prometheus counters in here. May be nil.
type BatchFunc func(collection string, docs int, err error)

// Loader bulk-loads collections per the configured profiles.
type Loader struct {
	store   Store
	cfg     config.LoadConfig
	seed    int64
	log     *zap.Logger
	onBatch BatchFunc
}

// New creates a loader. Seed 0 derives one from the clock.
func New(store Store, cfg config.LoadConfig, seed int64, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{store: store, cfg: cfg, seed: seed, log: log}
}

// WithBatchFunc attaches a batch observer.
func (l *Loader) WithBatchFunc(f BatchFunc) *Loader {
	l.onBatch = f
	return l
}

// Run loads every configured collection in declaration order. Profiles
// are validated up front so a typo cannot drop half the dataset before
// failing.
func (l *Loader) Run(ctx context.Context) error {
	for _, p := range l.cfg.Collections {
		if err := validateFields(p.Name, "", p.Fields); err != nil {
			return err
		}
	}

	seed := l.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	for _, p := range l.cfg.Collections {
		if err := l.loadCollection(ctx, p, seed); err != nil {
			return err
		}
		seed++
	}
	return nil
}

func (l *Loader) loadCollection(ctx context.Context, profile config.CollectionProfile, seed int64) error {
	log := l.log.With(zap.String("collection", profile.Name))

	if l.cfg.DropFirst {
		if err := l.store.Drop(ctx, profile.Name); err != nil {
			return err
		}
		log.Info("dropped collection")
	}

	start := time.Now()
	gen := newDocGen(profile.Fields, rand.New(rand.NewSource(seed)), log)
	batches := make(chan []domain.Document, l.cfg.Workers)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		batch := make([]domain.Document, 0, l.cfg.BatchSize)
		for i := int64(0); i < profile.Count; i++ {
			doc, err := gen.next(ctx)
			if err != nil {
				return err
			}
			batch = append(batch, doc)
			if len(batch) == l.cfg.BatchSize {
				select {
				case batches <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
				batch = make([]domain.Document, 0, l.cfg.BatchSize)
			}
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < l.cfg.Workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				inserted, err := l.store.InsertMany(ctx, profile.Name, batch)
				if l.onBatch != nil {
					l.onBatch(profile.Name, inserted, err)
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("collection loaded",
		zap.Int64("documents", profile.Count),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// CreateIndexes builds the declared indexes, collection by collection.
func CreateIndexes(ctx context.Context, store Store, specs map[string][]db.IndexSpec, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	for collection, idx := range specs {
		if err := store.CreateIndexes(ctx, collection, idx); err != nil {
			return err
		}
		log.Info("indexes created",
			zap.String("collection", collection),
			zap.Int("count", len(idx)))
	}
	return nil
}
