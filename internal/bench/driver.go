// Package bench drives the benchmark: warmup, optional plan capture,
// and measured iterations per query spec, feeding a per-query HDR
// latency collector. The measurement loop for one spec is single-threaded
// and synchronous: every iteration blocks on the primary query and every
// join round trip before the next one starts.
package bench

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
	"github.com/docbench/docbench/internal/join"
	"github.com/docbench/docbench/internal/params"
)

// Store is the read surface the driver needs from the database.
type Store interface {
	db.Finder
	db.Counter
	db.Aggregator
	db.Explainer
}

// Observer is notified after every measured iteration; the suite plugs a
// prometheus-backed implementation in here. May be nil.
type Observer interface {
	IterationDone(query string, elapsed time.Duration, returned int, failed bool)
}

// Options configure one driver.
type Options struct {
	Warmup     int
	Iterations int
	Explain    bool
	// Seed fixes the RNG for reproducible parameter streams; 0 derives
	// one from the clock.
	Seed int64
}

// Driver runs one query spec through the full phase sequence:
// Warmup -> PlanCapture -> Measuring -> Done.
type Driver struct {
	store    Store
	opts     Options
	log      *zap.Logger
	observer Observer
}

// NewDriver creates a driver over a store handle.
func NewDriver(store Store, opts Options, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{store: store, opts: opts, log: log}
}

// WithObserver attaches an iteration observer.
func (d *Driver) WithObserver(o Observer) *Driver {
	d.observer = o
	return d
}

// Run benchmarks one spec. Configuration errors and an empty sampled
// cache abort the spec with an error before (or at the start of) the
// run; transient iteration failures are tallied and the run continues.
func (d *Driver) Run(ctx context.Context, spec *domain.QuerySpec) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{Name: spec.Name}, err
	}

	seed := d.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	exec := params.NewExecContext(d.store, rand.New(rand.NewSource(seed)), d.log)
	engine := params.NewEngine(exec, spec.Params)
	joiner := join.NewExecutor(d.store, engine, d.log)
	metrics := NewQueryMetrics(spec.Name)

	log := d.log.With(zap.String("query", spec.Name))

	// Warmup primes caches and indexes; latency is discarded and
	// individual failures only logged. Fatal conditions still abort:
	// they would fail every measured iteration too.
	for i := 0; i < d.opts.Warmup; i++ {
		if _, _, err := d.execute(ctx, spec, engine, joiner); err != nil {
			if fatal(err) {
				return metrics.Snapshot(), domain.NewSpecError(spec.Name, err)
			}
			log.Warn("warmup iteration failed", zap.Int("iteration", i), zap.Error(err))
		}
		metrics.RecordWarmup()
	}

	if d.opts.Explain {
		if spec.Kind == domain.QueryFind {
			d.capturePlan(ctx, spec, engine, metrics, log)
		} else {
			log.Info("plan capture skipped, explain covers find queries only",
				zap.String("kind", string(spec.Kind)))
		}
	}

	// Sequence counters and correlation selections reset so warmup does
	// not bias the measured parameter stream; store-derived caches are
	// intentionally preserved.
	exec.ResetPhase()

	for i := 0; i < d.opts.Iterations; i++ {
		start := time.Now()
		returned, matched, err := d.execute(ctx, spec, engine, joiner)
		elapsed := time.Since(start)
		if err != nil {
			if fatal(err) {
				return metrics.Snapshot(), domain.NewSpecError(spec.Name, err)
			}
			metrics.RecordError()
			log.Warn("iteration failed", zap.Int("iteration", i), zap.Error(err))
			d.observe(spec.Name, elapsed, 0, true)
			continue
		}
		metrics.Record(elapsed, returned, matched)
		d.observe(spec.Name, elapsed, returned, false)
	}

	result := metrics.Snapshot()
	result.Description = spec.Description
	return result, nil
}

// execute runs one full iteration: substitution, the primary query, and
// the join chain over every primary result. returned is the primary
// result count; matched counts the primary documents whose entire join
// chain resolves.
func (d *Driver) execute(ctx context.Context, spec *domain.QuerySpec, engine *params.Engine, joiner *join.Executor) (returned, matched int, err error) {
	switch spec.Kind {
	case domain.QueryCount:
		filter, err := engine.Substitute(ctx, spec.Filter)
		if err != nil {
			return 0, 0, err
		}
		n, err := d.store.Count(ctx, spec.Collection, filter)
		if err != nil {
			return 0, 0, err
		}
		return int(n), int(n), nil

	case domain.QueryAggregate:
		pipeline, err := engine.SubstitutePipeline(ctx, spec.Pipeline)
		if err != nil {
			return 0, 0, err
		}
		docs, err := d.store.Aggregate(ctx, spec.Collection, pipeline)
		if err != nil {
			return 0, 0, err
		}
		return d.resolveJoins(ctx, spec, joiner, docs)

	default: // domain.QueryFind, guaranteed by Validate
		filter, err := engine.Substitute(ctx, spec.Filter)
		if err != nil {
			return 0, 0, err
		}
		docs, err := d.store.Find(ctx, spec.Collection, filter, db.FindOptions{
			Projection: spec.Projection,
			Sort:       spec.Sort,
			Limit:      spec.Limit,
		})
		if err != nil {
			return 0, 0, err
		}
		return d.resolveJoins(ctx, spec, joiner, docs)
	}
}

func (d *Driver) resolveJoins(ctx context.Context, spec *domain.QuerySpec, joiner *join.Executor, docs []domain.Document) (returned, matched int, err error) {
	returned = len(docs)
	if spec.Join == nil {
		return returned, returned, nil
	}
	for _, doc := range docs {
		ok, err := joiner.Resolves(ctx, doc, spec.Join)
		if err != nil {
			return returned, matched, err
		}
		if ok {
			matched++
		}
	}
	return returned, matched, nil
}

// capturePlan issues one explain request and stores the raw plan plus a
// heuristic index-usage label. Failures downgrade to a warning; plan
// capture never aborts a run.
func (d *Driver) capturePlan(ctx context.Context, spec *domain.QuerySpec, engine *params.Engine, metrics *QueryMetrics, log *zap.Logger) {
	filter, err := engine.Substitute(ctx, spec.Filter)
	if err != nil {
		log.Warn("plan capture substitution failed", zap.Error(err))
		return
	}
	plan, err := d.store.Explain(ctx, spec.Collection, filter)
	if err != nil {
		log.Warn("plan capture failed", zap.Error(err))
		return
	}
	metrics.PlanText = plan
	metrics.IndexUsage = ClassifyPlan(plan)
	log.Debug("captured plan", zap.String("index_usage", string(metrics.IndexUsage)))
}

func (d *Driver) observe(query string, elapsed time.Duration, returned int, failed bool) {
	if d.observer != nil {
		d.observer.IterationDone(query, elapsed, returned, failed)
	}
}

// fatal reports conditions that abort the whole query spec: configuration
// errors and empty store-derived samples. Everything else is a transient
// iteration failure.
func fatal(err error) bool {
	return errors.Is(err, domain.ErrUnknownParameter) ||
		errors.Is(err, domain.ErrUnknownParameterKind) ||
		errors.Is(err, domain.ErrInvalidPattern) ||
		errors.Is(err, domain.ErrEmptySample) ||
		errors.Is(err, domain.ErrEmptyPool) ||
		errors.Is(err, domain.ErrJoinTooDeep)
}
