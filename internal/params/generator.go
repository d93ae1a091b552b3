package params

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/domain"
)

// NoValue marks a parameter that resolved to nothing (a correlated field
// absent from the sampled document). The substitution engine drops the
// enclosing clause when it sees it.
var NoValue = noValue{}

type noValue struct{}

// Generator produces one scalar per parameter spec. It is pure given the
// context's RNG and, for sampled and correlated kinds, the context's
// read-only caches.
type Generator struct {
	exec *ExecContext
}

// NewGenerator creates a generator bound to a run context.
func NewGenerator(exec *ExecContext) *Generator {
	return &Generator{exec: exec}
}

// Generate returns a value for the parameter. Correlated parameters that
// miss their field return NoValue with a warning; everything else either
// yields a value or an error.
func (g *Generator) Generate(ctx context.Context, p *domain.ParameterSpec) (any, error) {
	if p.Group != "" {
		v, ok, err := g.exec.GroupValue(ctx, p.Group, p.Collection, p.Field)
		if err != nil {
			return nil, err
		}
		if !ok {
			g.exec.log.Warn("correlated field absent, clause left unconstrained",
				zap.String("parameter", p.Name),
				zap.String("group", p.Group),
				zap.String("field", p.Field))
			return NoValue, nil
		}
		return v, nil
	}

	switch p.Kind {
	case domain.ParamRange:
		return p.Min + g.exec.rng.Int63n(p.Max-p.Min+1), nil
	case domain.ParamChoice:
		return p.Choices[g.exec.rng.Intn(len(p.Choices))], nil
	case domain.ParamSequence:
		return g.exec.NextSequence(p.Name, p.Min, p.Max), nil
	case domain.ParamFixed:
		return p.Value, nil
	case domain.ParamPattern:
		return RenderPattern(p.Pattern, g.exec.rng)
	case domain.ParamSampled:
		return g.exec.SampleValue(ctx, p.Collection, p.Field)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownParameterKind, p.Kind)
	}
}
