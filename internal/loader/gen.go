package loader

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/config"
	"github.com/docbench/docbench/internal/domain"
	"github.com/docbench/docbench/internal/params"
)

// docGen synthesizes documents for one collection profile. Scalar fields
// reuse the query parameter generators, so a sequence field yields the
// same dense key space a benchmark's sequence parameter walks; object
// and array fields nest. A single docGen is not safe for concurrent use:
// the loader runs one producer per collection.
type docGen struct {
	gen    *params.Generator
	fields map[string]config.FieldConfig
}

func newDocGen(fields map[string]config.FieldConfig, rng *rand.Rand, log *zap.Logger) *docGen {
	exec := params.NewExecContext(nil, rng, log)
	return &docGen{gen: params.NewGenerator(exec), fields: fields}
}

func (d *docGen) next(ctx context.Context) (domain.Document, error) {
	return d.object(ctx, "", d.fields)
}

func (d *docGen) object(ctx context.Context, path string, fields map[string]config.FieldConfig) (domain.Document, error) {
	doc := make(domain.Document, len(fields))
	for name, fc := range fields {
		v, err := d.value(ctx, childPath(path, name), fc)
		if err != nil {
			return nil, err
		}
		doc[name] = v
	}
	return doc, nil
}

func (d *docGen) value(ctx context.Context, path string, fc config.FieldConfig) (any, error) {
	switch fc.Kind {
	case "object":
		return d.object(ctx, path, fc.Fields)
	case "array":
		if fc.Of == nil {
			return nil, fmt.Errorf("array field %q declares no element", path)
		}
		n := fc.Count
		if n <= 0 {
			n = 1
		}
		arr := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := d.value(ctx, path, *fc.Of)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		// The path keys the sequence counter, so same-named fields in
		// different subtrees count independently.
		return d.gen.Generate(ctx, &domain.ParameterSpec{
			Name:    path,
			Kind:    domain.ParameterKind(fc.Kind),
			Min:     fc.Min,
			Max:     fc.Max,
			Choices: fc.Choices,
			Value:   fc.Value,
			Pattern: fc.Pattern,
		})
	}
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// validateFields rejects field kinds the loader cannot synthesize before
// any collection is touched.
func validateFields(collection, path string, fields map[string]config.FieldConfig) error {
	for name, fc := range fields {
		if err := validateField(collection, childPath(path, name), fc); err != nil {
			return err
		}
	}
	return nil
}

func validateField(collection, p string, fc config.FieldConfig) error {
	switch fc.Kind {
	case "object":
		if len(fc.Fields) == 0 {
			return fmt.Errorf("load collection %q: object field %q declares no fields", collection, p)
		}
		return validateFields(collection, p, fc.Fields)
	case "array":
		if fc.Of == nil {
			return fmt.Errorf("load collection %q: array field %q declares no element", collection, p)
		}
		return validateField(collection, p, *fc.Of)
	case "range", "sequence":
		if fc.Min > fc.Max {
			return fmt.Errorf("load collection %q: field %q min %d exceeds max %d", collection, p, fc.Min, fc.Max)
		}
	case "choice":
		if len(fc.Choices) == 0 {
			return fmt.Errorf("load collection %q: choice field %q has no candidates", collection, p)
		}
	case "fixed":
		if fc.Value == nil {
			return fmt.Errorf("load collection %q: fixed field %q has no value", collection, p)
		}
	case "pattern":
		if fc.Pattern == "" {
			return fmt.Errorf("load collection %q: pattern field %q has no template", collection, p)
		}
	default:
		return fmt.Errorf("load collection %q: field %q has unsupported kind %q", collection, p, fc.Kind)
	}
	return nil
}
