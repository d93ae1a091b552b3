package domain

import (
	"fmt"
)

// QueryKind selects how a query executes against the store.
type QueryKind string

const (
	// QueryFind runs a filtered find with optional projection/sort/limit.
	QueryFind QueryKind = "find"
	// QueryAggregate runs an aggregation pipeline.
	QueryAggregate QueryKind = "aggregate"
	// QueryCount runs a filtered document count.
	QueryCount QueryKind = "count"
)

// ParameterKind selects how a parameter value is produced.
type ParameterKind string

const (
	// ParamRange draws a uniform integer in [Min, Max].
	ParamRange ParameterKind = "range"
	// ParamChoice draws uniformly from a fixed candidate list.
	ParamChoice ParameterKind = "choice"
	// ParamSequence counts monotonically from Min, wrapping after Max.
	ParamSequence ParameterKind = "sequence"
	// ParamFixed returns a constant.
	ParamFixed ParameterKind = "fixed"
	// ParamPattern renders a character-class mini-template.
	ParamPattern ParameterKind = "pattern"
	// ParamSampled draws from values previously observed in the store.
	ParamSampled ParameterKind = "sampled"
)

// MaxJoinDepth bounds the length of a join chain. Validation rejects
// deeper chains, so the executor's runtime guard is a containment
// measure for specs that bypassed validation.
const MaxJoinDepth = 8

// ParameterSpec describes one named parameter of a query.
// Only the fields relevant to Kind are set. A non-empty Group binds the
// parameter to a correlation group: its value is then extracted from the
// group's shared sampled document instead of being generated.
type ParameterSpec struct {
	Name       string
	Kind       ParameterKind
	Min        int64
	Max        int64
	Choices    []any
	Value      any
	Pattern    string
	Collection string
	Field      string
	Group      string
}

// JoinSpec describes one level of a client-side join chain. Chains are
// simple paths: each level may declare at most one nested level.
type JoinSpec struct {
	Collection   string
	LocalField   string
	ForeignField string
	Filter       Document
	Join         *JoinSpec
}

// Depth returns the number of levels in the chain rooted at j.
func (j *JoinSpec) Depth() int {
	d := 0
	for cur := j; cur != nil; cur = cur.Join {
		d++
	}
	return d
}

// QuerySpec is one benchmarked query: a filter template with
// ${param:<name>} placeholders, parameter specs, and an optional join
// chain. Specs are loaded once from configuration and immutable for the
// run.
type QuerySpec struct {
	Name        string
	Description string
	Collection  string
	Kind        QueryKind
	Filter      Document
	Pipeline    []Document
	Projection  Document
	Sort        Document
	Limit       int64
	Join        *JoinSpec
	Params      map[string]*ParameterSpec
}

// Validate fails fast on configuration errors: unknown kinds, missing
// correlation collection/field, inconsistent group collections, and
// malformed or over-deep join chains. Data-dependent conditions (empty
// samples, absent fields) are not validated here; they surface at run
// time per their own semantics.
func (q *QuerySpec) Validate() error {
	if q.Name == "" {
		return NewSpecError(q.Name, fmt.Errorf("query name is required"))
	}
	if q.Collection == "" {
		return NewSpecError(q.Name, fmt.Errorf("target collection is required"))
	}
	switch q.Kind {
	case QueryFind, QueryCount:
	case QueryAggregate:
		if len(q.Pipeline) == 0 {
			return NewSpecError(q.Name, fmt.Errorf("aggregate query requires a pipeline"))
		}
	default:
		return NewSpecError(q.Name, fmt.Errorf("%w: %q", ErrUnknownQueryKind, q.Kind))
	}

	groupColl := make(map[string]string)
	for name, p := range q.Params {
		if err := p.validate(name, groupColl); err != nil {
			return NewSpecError(q.Name, err)
		}
	}

	if q.Join != nil {
		if q.Kind == QueryCount {
			return NewSpecError(q.Name, fmt.Errorf("%w: count queries return no documents to join on", ErrInvalidJoin))
		}
		if q.Join.Depth() > MaxJoinDepth {
			return NewSpecError(q.Name, fmt.Errorf("%w: %d levels, max %d", ErrJoinTooDeep, q.Join.Depth(), MaxJoinDepth))
		}
		for cur := q.Join; cur != nil; cur = cur.Join {
			if cur.Collection == "" || cur.LocalField == "" || cur.ForeignField == "" {
				return NewSpecError(q.Name, fmt.Errorf("%w: collection, localField and foreignField are required", ErrInvalidJoin))
			}
		}
	}
	return nil
}

func (p *ParameterSpec) validate(name string, groupColl map[string]string) error {
	if p.Name == "" {
		p.Name = name
	}
	if p.Group != "" {
		if p.Collection == "" || p.Field == "" {
			return fmt.Errorf("%w: parameter %q in group %q needs collection and field", ErrInvalidCorrelation, name, p.Group)
		}
		if prev, ok := groupColl[p.Group]; ok && prev != p.Collection {
			return fmt.Errorf("%w: group %q spans collections %q and %q", ErrInvalidCorrelation, p.Group, prev, p.Collection)
		}
		groupColl[p.Group] = p.Collection
		return nil
	}
	switch p.Kind {
	case ParamRange, ParamSequence:
		if p.Min > p.Max {
			return fmt.Errorf("parameter %q: min %d exceeds max %d", name, p.Min, p.Max)
		}
	case ParamChoice:
		if len(p.Choices) == 0 {
			return fmt.Errorf("parameter %q: choice requires candidates", name)
		}
	case ParamFixed:
		if p.Value == nil {
			return fmt.Errorf("parameter %q: fixed requires a value", name)
		}
	case ParamPattern:
		if p.Pattern == "" {
			return fmt.Errorf("parameter %q: pattern requires a template", name)
		}
	case ParamSampled:
		if p.Collection == "" || p.Field == "" {
			return fmt.Errorf("parameter %q: sampled requires collection and field", name)
		}
	default:
		return fmt.Errorf("%w: parameter %q has kind %q", ErrUnknownParameterKind, name, p.Kind)
	}
	return nil
}
