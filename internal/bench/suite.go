package bench

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docbench/docbench/internal/domain"
)

// Suite runs a list of query specs. With threads <= 1 the specs run
// strictly sequentially. With more, up to threads specs run concurrently,
// one worker per spec; iterations inside a spec always stay sequential so
// join round trips never contend with each other's latency measurement.
// Every worker owns its own ExecContext, so sequence counters, sample
// caches, and correlation selections are never shared across workers.
type Suite struct {
	store   Store
	opts    Options
	threads int
	log     *zap.Logger

	observer Observer
}

// NewSuite creates a suite runner.
func NewSuite(store Store, opts Options, threads int, log *zap.Logger) *Suite {
	if log == nil {
		log = zap.NewNop()
	}
	if threads < 1 {
		threads = 1
	}
	return &Suite{store: store, opts: opts, threads: threads, log: log}
}

// WithObserver attaches an iteration observer handed to every driver.
func (s *Suite) WithObserver(o Observer) *Suite {
	s.observer = o
	return s
}

// Run benchmarks every spec and returns one result per spec in input
// order. A spec that aborts (configuration error, empty sample) yields a
// degenerate result carrying the failure; it never stops the rest of the
// suite.
func (s *Suite) Run(ctx context.Context, specs []*domain.QuerySpec) []Result {
	runID := uuid.NewString()
	log := s.log.With(zap.String("run_id", runID))
	log.Info("starting benchmark run",
		zap.Int("queries", len(specs)),
		zap.Int("threads", s.threads),
		zap.Int("warmup", s.opts.Warmup),
		zap.Int("iterations", s.opts.Iterations))

	results := make([]Result, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.threads)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			driver := NewDriver(s.store, s.opts, log).WithObserver(s.observer)
			result, err := driver.Run(gctx, spec)
			if err != nil {
				log.Error("query spec aborted", zap.String("query", spec.Name), zap.Error(err))
				result.Failure = err.Error()
			} else {
				log.Info("query spec done",
					zap.String("query", spec.Name),
					zap.Int("iterations", result.Iterations),
					zap.Int("errors", result.Errors),
					zap.Duration("p50", result.P50),
					zap.Float64("throughput", result.Throughput))
			}
			results[i] = result
			return nil
		})
	}
	// Workers never return errors; aborted specs are reported in-band.
	_ = g.Wait()

	log.Info("benchmark run complete", zap.Int("queries", len(specs)))
	return results
}
