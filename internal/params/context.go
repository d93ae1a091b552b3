// Package params produces query parameter values: scalar generators,
// correlated document sampling, and placeholder substitution into filter
// templates. All mutable state lives in an ExecContext owned by exactly
// one benchmark worker, so independent runs and parallel query specs
// cannot leak sequence counters, caches, or correlation selections into
// each other.
package params

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

// sampleLimit bounds every store-derived cache: sampled field values and
// correlation document pools.
const sampleLimit = 1000

type sampleKey struct {
	collection string
	path       string
}

// ExecContext owns the mutable state of one run: the RNG, per-parameter
// sequence counters, sampled-value caches, correlation document pools,
// and the per-call group selections. It is strictly single-threaded.
type ExecContext struct {
	store db.Finder
	log   *zap.Logger
	rng   *rand.Rand

	seq        map[string]int64
	samples    map[sampleKey][]any
	pools      map[string][]domain.Document
	selections map[string]domain.Document
}

// NewExecContext creates a context around a store handle and RNG.
func NewExecContext(store db.Finder, rng *rand.Rand, log *zap.Logger) *ExecContext {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecContext{
		store:      store,
		log:        log,
		rng:        rng,
		seq:        make(map[string]int64),
		samples:    make(map[sampleKey][]any),
		pools:      make(map[string][]domain.Document),
		selections: make(map[string]domain.Document),
	}
}

// BeginCall starts one substitution call: every correlation group picks a
// fresh document, and all parameters of a group read that same document
// until the next call.
func (c *ExecContext) BeginCall() {
	clear(c.selections)
}

// ResetPhase clears the state that would bias measurement when carried
// over from warmup: sequence counters and correlation selections.
// Store-derived caches (sampled values, correlation pools) are
// intentionally preserved across phases.
func (c *ExecContext) ResetPhase() {
	clear(c.seq)
	clear(c.selections)
}

// Reset clears everything for an independent run.
func (c *ExecContext) Reset() {
	clear(c.seq)
	clear(c.samples)
	clear(c.pools)
	clear(c.selections)
}

// NextSequence returns the next value of the named monotonic counter,
// starting at min and wrapping back to min after max.
func (c *ExecContext) NextSequence(name string, min, max int64) int64 {
	v, ok := c.seq[name]
	if !ok || v > max {
		v = min
	}
	c.seq[name] = v + 1
	return v
}

// SampleValue draws one value uniformly from the cache of values observed
// at the dot path in the collection. The cache is built lazily from up to
// sampleLimit documents projecting the path's root field, extracting
// every terminal value with array fan-out, and is reused for the run.
// An empty cache is an error: the caller's query cannot run.
func (c *ExecContext) SampleValue(ctx context.Context, collection, path string) (any, error) {
	key := sampleKey{collection: collection, path: path}
	values, ok := c.samples[key]
	if !ok {
		var err error
		values, err = c.buildSample(ctx, collection, path)
		if err != nil {
			return nil, err
		}
		c.samples[key] = values
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", domain.ErrEmptySample, collection, path)
	}
	return values[c.rng.Intn(len(values))], nil
}

func (c *ExecContext) buildSample(ctx context.Context, collection, path string) ([]any, error) {
	root, _, _ := strings.Cut(path, ".")
	docs, err := c.store.Find(ctx, collection,
		domain.Document{root: domain.Document{"$exists": true}},
		db.FindOptions{
			Projection: domain.Document{root: 1},
			Limit:      sampleLimit,
		})
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", collection, path, err)
	}

	var values []any
	for _, doc := range docs {
		values = append(values, domain.ExtractValues(doc, path)...)
		if len(values) >= sampleLimit {
			values = values[:sampleLimit]
			break
		}
	}
	c.log.Debug("built value sample",
		zap.String("collection", collection),
		zap.String("path", path),
		zap.Int("values", len(values)))
	return values, nil
}

// GroupValue resolves one correlated parameter: it selects (once per
// substitution call) a random document from the group's collection pool
// and extracts the field. A missing field is not an error: ok is false
// and the enclosing clause becomes unconstrained. Array fan-out picks one
// of the reachable values uniformly.
func (c *ExecContext) GroupValue(ctx context.Context, group, collection, field string) (any, bool, error) {
	doc, err := c.groupDocument(ctx, group, collection)
	if err != nil {
		return nil, false, err
	}
	values := domain.ExtractValues(doc, field)
	if len(values) == 0 {
		return nil, false, nil
	}
	return values[c.rng.Intn(len(values))], true, nil
}

// groupDocument returns the document bound to the group for the current
// substitution call, sampling it on first use within the call.
func (c *ExecContext) groupDocument(ctx context.Context, group, collection string) (domain.Document, error) {
	if doc, ok := c.selections[group]; ok {
		return doc, nil
	}
	pool, ok := c.pools[collection]
	if !ok {
		docs, err := c.store.Find(ctx, collection, nil, db.FindOptions{Limit: sampleLimit})
		if err != nil {
			return nil, fmt.Errorf("correlation pool %s: %w", collection, err)
		}
		c.pools[collection] = docs
		pool = docs
		c.log.Debug("built correlation pool",
			zap.String("collection", collection),
			zap.Int("documents", len(docs)))
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyPool, collection)
	}
	doc := pool[c.rng.Intn(len(pool))]
	c.selections[group] = doc
	return doc, nil
}
