package config

import (
	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

// ToSpecs converts the configured query suite into validated domain
// specs, preserving declaration order.
func (c *Config) ToSpecs() ([]*domain.QuerySpec, error) {
	specs := make([]*domain.QuerySpec, 0, len(c.Queries))
	for _, q := range c.Queries {
		spec := q.toSpec()
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (q *QueryConfig) toSpec() *domain.QuerySpec {
	spec := &domain.QuerySpec{
		Name:        q.Name,
		Description: q.Description,
		Collection:  q.Collection,
		Kind:        domain.QueryKind(q.Kind),
		Filter:      q.Filter,
		Projection:  q.Projection,
		Sort:        q.Sort,
		Limit:       q.Limit,
		Join:        q.Join.toSpec(),
		Params:      make(map[string]*domain.ParameterSpec, len(q.Params)),
	}
	for _, stage := range q.Pipeline {
		spec.Pipeline = append(spec.Pipeline, stage)
	}
	for name, p := range q.Params {
		spec.Params[name] = &domain.ParameterSpec{
			Name:       name,
			Kind:       domain.ParameterKind(p.Kind),
			Min:        p.Min,
			Max:        p.Max,
			Choices:    p.Choices,
			Value:      p.Value,
			Pattern:    p.Pattern,
			Collection: p.Collection,
			Field:      p.Field,
			Group:      p.Group,
		}
	}
	return spec
}

func (j *JoinConfig) toSpec() *domain.JoinSpec {
	if j == nil {
		return nil
	}
	return &domain.JoinSpec{
		Collection:   j.Collection,
		LocalField:   j.LocalField,
		ForeignField: j.ForeignField,
		Filter:       j.Filter,
		Join:         j.Join.toSpec(),
	}
}

// ToIndexSpecs groups the configured indexes by collection in the shape
// the store's index manager accepts.
func (c *Config) ToIndexSpecs() map[string][]db.IndexSpec {
	out := make(map[string][]db.IndexSpec)
	for _, idx := range c.Indexes {
		spec := db.IndexSpec{Name: idx.Name}
		for _, k := range idx.Keys {
			spec.Keys = append(spec.Keys, db.IndexKey{Field: k.Field, Order: k.Order})
		}
		out[idx.Collection] = append(out[idx.Collection], spec)
	}
	return out
}
