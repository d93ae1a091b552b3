package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/docbench/docbench/internal/bench"
)

func sampleResults() []bench.Result {
	return []bench.Result{
		{
			Name:        "phone-lookup",
			Iterations:  100,
			Errors:      2,
			Min:         8 * time.Millisecond,
			P50:         10 * time.Millisecond,
			P95:         25 * time.Millisecond,
			P99:         40 * time.Millisecond,
			Max:         100 * time.Millisecond,
			Mean:        12 * time.Millisecond,
			Throughput:  83.3,
			AvgReturned: 1,
			AvgMatched:  0.4,
			IndexUsage:  bench.IndexUsageIndexed,
		},
		{Name: "broken-query", Failure: "query \"broken-query\": empty sampled value set"},
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"console", FormatConsole, false},
		{"csv", FormatCSV, false},
		{"json", FormatJSON, false},
		{"", FormatConsole, false},
		{"xml", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestConsoleRenderer(t *testing.T) {
	r, err := New(FormatConsole)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"QUERY", "phone-lookup", "10.00ms", "indexed", "FAILED: query \"broken-query\""} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestCSVRenderer(t *testing.T) {
	r, err := New(FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "query" || rows[1][0] != "phone-lookup" {
		t.Errorf("unexpected rows: %v", rows[:2])
	}
	if rows[1][4] != "10.000" {
		t.Errorf("p50_ms = %q, want 10.000", rows[1][4])
	}
	failureCol := len(rows[0]) - 1
	if rows[2][failureCol] == "" {
		t.Error("failed query row carries no failure column")
	}
}

func TestJSONRenderer(t *testing.T) {
	r, err := New(FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		GeneratedAt time.Time      `json:"generated_at"`
		Results     []bench.Result `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(doc.Results))
	}
	if doc.Results[0].Name != "phone-lookup" || doc.Results[0].Iterations != 100 {
		t.Errorf("first result = %+v", doc.Results[0])
	}
	if doc.Results[1].Failure == "" {
		t.Error("failure not serialized")
	}
	if doc.GeneratedAt.IsZero() {
		t.Error("generated_at missing")
	}
}
