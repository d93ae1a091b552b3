package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownQueryKind signals an unrecognized query kind in a spec.
	ErrUnknownQueryKind = errors.New("unknown query kind")
	// ErrUnknownParameterKind signals an unrecognized parameter kind.
	ErrUnknownParameterKind = errors.New("unknown parameter kind")
	// ErrUnknownParameter signals a placeholder referencing an undeclared parameter.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrInvalidPattern signals a malformed pattern template.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrEmptySample signals a sampled-field cache with no observed values.
	ErrEmptySample = errors.New("empty value sample")
	// ErrEmptyPool signals a correlation collection with no sampled documents.
	ErrEmptyPool = errors.New("empty correlation pool")
	// ErrInvalidCorrelation signals a correlated parameter missing its
	// collection or field, or a group whose members disagree on collection.
	ErrInvalidCorrelation = errors.New("invalid correlation group")
	// ErrInvalidJoin signals a malformed join specification.
	ErrInvalidJoin = errors.New("invalid join spec")
	// ErrJoinTooDeep signals a join chain exceeding the supported depth.
	ErrJoinTooDeep = errors.New("join chain too deep")
)

// SpecError wraps a validation error with the offending query spec name.
type SpecError struct {
	Query string
	Err   error
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("query %q: %s", e.Query, e.Err.Error())
}

func (e *SpecError) Unwrap() error { return e.Err }

// NewSpecError attaches a query name to a validation error.
func NewSpecError(query string, err error) error {
	return &SpecError{Query: query, Err: err}
}
