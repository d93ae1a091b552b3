// Package join emulates multi-collection joins client-side. A join chain
// is evaluated as an existential match: does at least one path through
// the chained lookups exist for a given primary document. It never
// materializes join results, so cost stays proportional to the branching
// factor along the discovered path.
package join

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
	"github.com/docbench/docbench/internal/params"
)

// Executor resolves join chains against the store. Join-level filters are
// parameterized templates rendered through the query's substitution
// engine, sharing the primary filter's correlation selections.
type Executor struct {
	store  db.Finder
	engine *params.Engine
	log    *zap.Logger
}

// NewExecutor creates an executor. engine may be nil when no join level
// declares its own filter.
func NewExecutor(store db.Finder, engine *params.Engine, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{store: store, engine: engine, log: log}
}

// Resolves reports whether the full join chain resolves for the source
// document. A nil spec resolves trivially. An absent local field resolves
// false without issuing a query. At each level, all documents matched by
// the previous level are tried until one succeeds or all are exhausted.
func (e *Executor) Resolves(ctx context.Context, doc domain.Document, spec *domain.JoinSpec) (bool, error) {
	return e.resolves(ctx, doc, spec, 0)
}

func (e *Executor) resolves(ctx context.Context, doc domain.Document, spec *domain.JoinSpec, depth int) (bool, error) {
	if spec == nil {
		return true, nil
	}
	if depth >= domain.MaxJoinDepth {
		return false, fmt.Errorf("%w: depth %d", domain.ErrJoinTooDeep, depth)
	}

	locals := domain.ExtractValues(doc, spec.LocalField)
	if len(locals) == 0 {
		// Short-circuit: nothing to join on, no round trip.
		return false, nil
	}

	filter := domain.Document{}
	if len(spec.Filter) > 0 {
		if e.engine == nil {
			return false, fmt.Errorf("join filter on %s requires a substitution engine", spec.Collection)
		}
		sub, err := e.engine.SubstituteInCall(ctx, spec.Filter)
		if err != nil {
			return false, err
		}
		for k, v := range sub {
			filter[k] = v
		}
	}
	if len(locals) == 1 {
		filter[spec.ForeignField] = locals[0]
	} else {
		filter[spec.ForeignField] = domain.Document{"$in": locals}
	}

	opts := db.FindOptions{}
	if spec.Join == nil {
		// Existential match at the last level needs a single hit.
		opts.Limit = 1
	}
	matches, err := e.store.Find(ctx, spec.Collection, filter, opts)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}
	if spec.Join == nil {
		return true, nil
	}

	// Disjunction across this level's matches: first success wins.
	for _, match := range matches {
		ok, err := e.resolves(ctx, match, spec.Join, depth+1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
