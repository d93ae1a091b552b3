package params

import (
	"context"
	"errors"
	"testing"

	"github.com/docbench/docbench/internal/domain"
)

func TestSubstitute_TypedExactToken(t *testing.T) {
	e := NewEngine(newTestContext(nil), map[string]*domain.ParameterSpec{
		"n": {Name: "n", Kind: domain.ParamFixed, Value: int64(42)},
	})
	got, err := e.Substitute(context.Background(), domain.Document{"customerNumber": "${param:n}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["customerNumber"] != int64(42) {
		t.Errorf("customerNumber = %v (%T), want int64 42", got["customerNumber"], got["customerNumber"])
	}
}

func TestSubstitute_EmbeddedToken(t *testing.T) {
	e := NewEngine(newTestContext(nil), map[string]*domain.ParameterSpec{
		"n": {Name: "n", Kind: domain.ParamFixed, Value: int64(7)},
	})
	got, err := e.Substitute(context.Background(), domain.Document{"code": "CUST-${param:n}-X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["code"] != "CUST-7-X" {
		t.Errorf("code = %v, want CUST-7-X", got["code"])
	}
}

func TestSubstitute_NestedAndLists(t *testing.T) {
	e := NewEngine(newTestContext(nil), map[string]*domain.ParameterSpec{
		"a": {Name: "a", Kind: domain.ParamFixed, Value: "x"},
		"b": {Name: "b", Kind: domain.ParamFixed, Value: "y"},
	})
	tmpl := domain.Document{
		"$or": []any{
			domain.Document{"f": "${param:a}"},
			domain.Document{"g": domain.Document{"$in": []any{"${param:b}", "literal"}}},
		},
	}
	got, err := e.Substitute(context.Background(), tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	or := got["$or"].([]any)
	if or[0].(domain.Document)["f"] != "x" {
		t.Errorf("first branch = %v, want f:x", or[0])
	}
	in := or[1].(domain.Document)["g"].(domain.Document)["$in"].([]any)
	if in[0] != "y" || in[1] != "literal" {
		t.Errorf("$in = %v, want [y literal]", in)
	}
}

func TestSubstitute_UnknownParameter(t *testing.T) {
	e := NewEngine(newTestContext(nil), map[string]*domain.ParameterSpec{})
	_, err := e.Substitute(context.Background(), domain.Document{"f": "${param:nope}"})
	if !errors.Is(err, domain.ErrUnknownParameter) {
		t.Errorf("err = %v, want ErrUnknownParameter", err)
	}
}

func TestSubstitute_NoValueDropsClause(t *testing.T) {
	exec := newTestContext(fixedDocs(domain.Document{"name": "acme"}))
	e := NewEngine(exec, map[string]*domain.ParameterSpec{
		"bd": {Name: "bd", Group: "person", Collection: "customers", Field: "birthDate"},
		"nm": {Name: "nm", Group: "person", Collection: "customers", Field: "name"},
	})
	got, err := e.Substitute(context.Background(), domain.Document{
		"birthDate": "${param:bd}",
		"name":      "${param:nm}",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["birthDate"]; ok {
		t.Errorf("birthDate clause survived, want dropped: %v", got)
	}
	if got["name"] != "acme" {
		t.Errorf("name = %v, want acme", got["name"])
	}
}

func TestSubstitute_EmptyNestedClauseDropped(t *testing.T) {
	exec := newTestContext(fixedDocs(domain.Document{"name": "acme"}))
	e := NewEngine(exec, map[string]*domain.ParameterSpec{
		"bd": {Name: "bd", Group: "person", Collection: "customers", Field: "birthDate"},
	})
	got, err := e.Substitute(context.Background(), domain.Document{
		"birthDate": domain.Document{"$gt": "${param:bd}"},
		"kind":      "business",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["birthDate"]; ok {
		t.Errorf("birthDate = %v, want whole clause dropped (not an empty doc)", got["birthDate"])
	}
	if got["kind"] != "business" {
		t.Errorf("kind = %v, want business", got["kind"])
	}
}

func TestSubstitute_EmptiedListClauseDropped(t *testing.T) {
	exec := newTestContext(fixedDocs(domain.Document{"name": "acme"}))
	e := NewEngine(exec, map[string]*domain.ParameterSpec{
		"bd": {Name: "bd", Group: "person", Collection: "customers", Field: "birthDate"},
	})
	got, err := e.Substitute(context.Background(), domain.Document{
		"$or":  []any{domain.Document{"birthDate": "${param:bd}"}},
		"kind": "business",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["$or"]; ok {
		t.Errorf("$or = %v, want whole clause dropped (the server rejects $or: [])", got["$or"])
	}
	if got["kind"] != "business" {
		t.Errorf("kind = %v, want business", got["kind"])
	}
}

func TestSubstitute_PartiallyEmptiedListKeepsSurvivors(t *testing.T) {
	exec := newTestContext(fixedDocs(domain.Document{"name": "acme"}))
	e := NewEngine(exec, map[string]*domain.ParameterSpec{
		"bd": {Name: "bd", Group: "person", Collection: "customers", Field: "birthDate"},
		"nm": {Name: "nm", Group: "person", Collection: "customers", Field: "name"},
	})
	got, err := e.Substitute(context.Background(), domain.Document{
		"$or": []any{
			domain.Document{"birthDate": "${param:bd}"},
			domain.Document{"name": "${param:nm}"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	or, ok := got["$or"].([]any)
	if !ok || len(or) != 1 {
		t.Fatalf("$or = %v, want the one resolvable branch kept", got["$or"])
	}
	if or[0].(domain.Document)["name"] != "acme" {
		t.Errorf("surviving branch = %v, want name:acme", or[0])
	}
}

func TestSubstitute_CorrelatedParamsShareDocument(t *testing.T) {
	exec := newTestContext(fixedDocs(
		domain.Document{"first": "ann", "last": "archer"},
		domain.Document{"first": "bob", "last": "banner"},
		domain.Document{"first": "cal", "last": "cooper"},
	))
	e := NewEngine(exec, map[string]*domain.ParameterSpec{
		"f": {Name: "f", Group: "person", Collection: "people", Field: "first"},
		"l": {Name: "l", Group: "person", Collection: "people", Field: "last"},
	})

	pairs := map[string]string{"ann": "archer", "bob": "banner", "cal": "cooper"}
	for i := 0; i < 50; i++ {
		got, err := e.Substitute(context.Background(), domain.Document{
			"first": "${param:f}",
			"last":  "${param:l}",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := got["first"].(string)
		if pairs[first] != got["last"] {
			t.Fatalf("first=%v last=%v come from different documents", got["first"], got["last"])
		}
	}
}

func TestSubstitutePipeline(t *testing.T) {
	e := NewEngine(newTestContext(nil), map[string]*domain.ParameterSpec{
		"n": {Name: "n", Kind: domain.ParamFixed, Value: int64(3)},
	})
	stages, err := e.SubstitutePipeline(context.Background(), []domain.Document{
		{"$match": domain.Document{"qty": "${param:n}"}},
		{"$limit": int64(10)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(stages))
	}
	match := stages[0]["$match"].(domain.Document)
	if match["qty"] != int64(3) {
		t.Errorf("qty = %v, want 3", match["qty"])
	}
}
