package params

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/db"
	"github.com/docbench/docbench/internal/domain"
)

func newTestContext(store db.Finder) *ExecContext {
	return NewExecContext(store, rand.New(rand.NewSource(42)), zap.NewNop())
}

func TestNextSequence_Wraps(t *testing.T) {
	c := newTestContext(nil)
	var got []int64
	for i := 0; i < 5; i++ {
		got = append(got, c.NextSequence("n", 1, 3))
	}
	want := []int64{1, 2, 3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
}

func TestNextSequence_PerName(t *testing.T) {
	c := newTestContext(nil)
	c.NextSequence("a", 1, 10)
	c.NextSequence("a", 1, 10)
	if v := c.NextSequence("b", 1, 10); v != 1 {
		t.Errorf("counter b = %d, want 1 (independent of a)", v)
	}
}

func TestSampleValue_BuildsCacheOnce(t *testing.T) {
	store := fixedDocs(
		domain.Document{"phone": map[string]any{"number": "111"}},
		domain.Document{"phone": map[string]any{"number": "222"}},
	)
	c := newTestContext(store)

	for i := 0; i < 10; i++ {
		v, err := c.SampleValue(context.Background(), "customers", "phone.number")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "111" && v != "222" {
			t.Fatalf("value = %v, want 111 or 222", v)
		}
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (cache reused)", store.calls)
	}
}

func TestSampleValue_ProjectsRootField(t *testing.T) {
	var gotFilter domain.Document
	var gotOpts db.FindOptions
	store := &mockFinder{
		findFn: func(_ context.Context, _ string, filter domain.Document, opts db.FindOptions) ([]domain.Document, error) {
			gotFilter = filter
			gotOpts = opts
			return []domain.Document{{"phone": map[string]any{"number": "1"}}}, nil
		},
	}
	c := newTestContext(store)
	if _, err := c.SampleValue(context.Background(), "customers", "phone.number"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gotFilter["phone"]; !ok {
		t.Errorf("filter = %v, want $exists check on phone", gotFilter)
	}
	if gotOpts.Projection["phone"] != 1 {
		t.Errorf("projection = %v, want {phone: 1}", gotOpts.Projection)
	}
	if gotOpts.Limit != sampleLimit {
		t.Errorf("limit = %d, want %d", gotOpts.Limit, sampleLimit)
	}
}

func TestSampleValue_EmptyIsFatal(t *testing.T) {
	c := newTestContext(fixedDocs())
	_, err := c.SampleValue(context.Background(), "customers", "phone.number")
	if !errors.Is(err, domain.ErrEmptySample) {
		t.Errorf("err = %v, want ErrEmptySample", err)
	}
}

func TestGroupValue_SameDocumentWithinCall(t *testing.T) {
	store := fixedDocs(
		domain.Document{"id": "a"},
		domain.Document{"id": "b"},
		domain.Document{"id": "c"},
	)
	c := newTestContext(store)

	c.BeginCall()
	first, err := c.groupDocument(context.Background(), "person", "people")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		doc, err := c.groupDocument(context.Background(), "person", "people")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Same instance, not merely equal fields.
		if fmt.Sprintf("%p", doc) != fmt.Sprintf("%p", first) {
			t.Fatal("group document changed within one substitution call")
		}
	}
}

func TestGroupValue_RebindsAcrossCalls(t *testing.T) {
	var pool []domain.Document
	for i := 0; i < 50; i++ {
		pool = append(pool, domain.Document{"id": i})
	}
	store := fixedDocs(pool...)
	c := newTestContext(store)

	seen := map[any]bool{}
	for i := 0; i < 100; i++ {
		c.BeginCall()
		doc, err := c.groupDocument(context.Background(), "g", "people")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[doc["id"]] = true
	}
	if len(seen) < 2 {
		t.Errorf("selections across calls = %d distinct docs, want > 1", len(seen))
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (pool cached)", store.calls)
	}
}

func TestGroupValue_MissingFieldIsNoValue(t *testing.T) {
	c := newTestContext(fixedDocs(domain.Document{"name": "acme corp"}))
	c.BeginCall()
	_, ok, err := c.GroupValue(context.Background(), "person", "customers", "birthDate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("ok = true for absent field, want false")
	}
}

func TestGroupValue_EmptyPool(t *testing.T) {
	c := newTestContext(fixedDocs())
	c.BeginCall()
	_, _, err := c.GroupValue(context.Background(), "g", "empty", "f")
	if !errors.Is(err, domain.ErrEmptyPool) {
		t.Errorf("err = %v, want ErrEmptyPool", err)
	}
}

func TestResetPhase_PreservesStoreCaches(t *testing.T) {
	store := fixedDocs(domain.Document{"v": "x"})
	c := newTestContext(store)

	if _, err := c.SampleValue(context.Background(), "coll", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.NextSequence("s", 1, 10)
	c.NextSequence("s", 1, 10)

	c.ResetPhase()

	if v := c.NextSequence("s", 1, 10); v != 1 {
		t.Errorf("sequence after phase reset = %d, want 1", v)
	}
	if _, err := c.SampleValue(context.Background(), "coll", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (sample cache preserved across phases)", store.calls)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	store := fixedDocs(domain.Document{"v": "x"})
	c := newTestContext(store)
	if _, err := c.SampleValue(context.Background(), "coll", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Reset()

	if _, err := c.SampleValue(context.Background(), "coll", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2 (cache rebuilt after full reset)", store.calls)
	}
}
