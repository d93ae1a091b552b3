package params

import (
	"context"
	"fmt"
	"regexp"

	"github.com/docbench/docbench/internal/domain"
)

var placeholderRe = regexp.MustCompile(`\$\{param:([^}]+)\}`)

// Engine substitutes ${param:<name>} placeholders in a filter template
// with generated values, recursing into nested documents and lists. One
// Substitute call is one substitution call in the correlation sense:
// every group binds to a single document for its duration.
type Engine struct {
	gen    *Generator
	params map[string]*domain.ParameterSpec
}

// NewEngine builds an engine over a run context and the query's
// parameter specs.
func NewEngine(exec *ExecContext, specs map[string]*domain.ParameterSpec) *Engine {
	return &Engine{
		gen:    NewGenerator(exec),
		params: specs,
	}
}

// Substitute renders one instance of the filter template. Clauses whose
// parameter resolved to NoValue are removed, leaving the filter
// unconstrained at that position.
func (e *Engine) Substitute(ctx context.Context, tmpl domain.Document) (domain.Document, error) {
	e.gen.exec.BeginCall()
	out, _, err := e.substituteDoc(ctx, tmpl)
	return out, err
}

// SubstituteInCall renders a template inside an already-begun
// substitution call, keeping the current correlation selections. The join
// executor uses this so a join filter shares the primary filter's group
// documents.
func (e *Engine) SubstituteInCall(ctx context.Context, tmpl domain.Document) (domain.Document, error) {
	out, _, err := e.substituteDoc(ctx, tmpl)
	return out, err
}

// SubstitutePipeline renders every stage of an aggregation pipeline in
// one substitution call.
func (e *Engine) SubstitutePipeline(ctx context.Context, stages []domain.Document) ([]domain.Document, error) {
	e.gen.exec.BeginCall()
	out := make([]domain.Document, 0, len(stages))
	for _, stage := range stages {
		doc, _, err := e.substituteDoc(ctx, stage)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (e *Engine) substituteDoc(ctx context.Context, tmpl domain.Document) (domain.Document, bool, error) {
	if tmpl == nil {
		return nil, false, nil
	}
	out := make(domain.Document, len(tmpl))
	for key, val := range tmpl {
		nv, drop, err := e.substituteValue(ctx, val)
		if err != nil {
			return nil, false, err
		}
		if drop {
			continue
		}
		out[key] = nv
	}
	// A clause whose every sub-clause dropped is itself unconstrained:
	// {age: {$gt: <no value>}} must not survive as {age: {}}.
	if len(out) == 0 && len(tmpl) > 0 {
		return nil, true, nil
	}
	return out, false, nil
}

func (e *Engine) substituteValue(ctx context.Context, val any) (any, bool, error) {
	switch v := val.(type) {
	case string:
		return e.substituteString(ctx, v)
	case domain.Document:
		return e.substituteDoc(ctx, v)
	case []any:
		out := make([]any, 0, len(v))
		for _, elem := range v {
			nv, drop, err := e.substituteValue(ctx, elem)
			if err != nil {
				return nil, false, err
			}
			if drop {
				continue
			}
			out = append(out, nv)
		}
		// Same rule as documents: a list whose every element dropped
		// drops its enclosing clause, so {$or: [...]} never survives as
		// the {$or: []} the server rejects.
		if len(out) == 0 && len(v) > 0 {
			return nil, true, nil
		}
		return out, false, nil
	default:
		return val, false, nil
	}
}

// substituteString handles the two placeholder forms: a string that is
// exactly one placeholder takes the generated value with its type intact;
// a placeholder embedded in surrounding text interpolates its string form.
func (e *Engine) substituteString(ctx context.Context, s string) (any, bool, error) {
	m := placeholderRe.FindStringSubmatch(s)
	if m == nil {
		return s, false, nil
	}

	if m[0] == s {
		v, err := e.generate(ctx, m[1])
		if err != nil {
			return nil, false, err
		}
		if v == NoValue {
			return nil, true, nil
		}
		return v, false, nil
	}

	var genErr error
	dropped := false
	out := placeholderRe.ReplaceAllStringFunc(s, func(tok string) string {
		name := placeholderRe.FindStringSubmatch(tok)[1]
		v, err := e.generate(ctx, name)
		if err != nil {
			genErr = err
			return tok
		}
		if v == NoValue {
			dropped = true
			return tok
		}
		return fmt.Sprintf("%v", v)
	})
	if genErr != nil {
		return nil, false, genErr
	}
	if dropped {
		return nil, true, nil
	}
	return out, false, nil
}

func (e *Engine) generate(ctx context.Context, name string) (any, error) {
	spec, ok := e.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownParameter, name)
	}
	return e.gen.Generate(ctx, spec)
}
