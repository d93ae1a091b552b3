// Package report renders benchmark results for humans (console table)
// and for downstream tooling (CSV, JSON).
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/docbench/docbench/internal/bench"
)

// Format selects an output renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
)

// ParseFormat maps a CLI format flag to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatConsole, FormatCSV, FormatJSON:
		return Format(s), nil
	case "":
		return FormatConsole, nil
	default:
		return "", fmt.Errorf("unknown output format %q (console, csv, json)", s)
	}
}

// Renderer writes a result set to an output stream.
type Renderer interface {
	Render(w io.Writer, results []bench.Result) error
}

// New returns the renderer for a format.
func New(format Format) (Renderer, error) {
	switch format {
	case FormatConsole:
		return consoleRenderer{}, nil
	case FormatCSV:
		return csvRenderer{}, nil
	case FormatJSON:
		return jsonRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

type consoleRenderer struct{}

func (consoleRenderer) Render(w io.Writer, results []bench.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tITER\tERR\tMIN\tP50\tP95\tP99\tMAX\tMEAN\tQPS\tRET\tMATCH\tINDEX")
	for _, r := range results {
		if r.Failure != "" {
			fmt.Fprintf(tw, "%s\tFAILED: %s\n", r.Name, r.Failure)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%.2f\t%s\n",
			r.Name, r.Iterations, r.Errors,
			ms(r.Min), ms(r.P50), ms(r.P95), ms(r.P99), ms(r.Max), ms(r.Mean),
			r.Throughput, r.AvgReturned, r.AvgMatched, r.IndexUsage)
	}
	return tw.Flush()
}

// ms formats a duration as fractional milliseconds for the table.
func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64) + "ms"
}

type csvRenderer struct{}

func (csvRenderer) Render(w io.Writer, results []bench.Result) error {
	cw := csv.NewWriter(w)
	header := []string{
		"query", "iterations", "errors",
		"min_ms", "p50_ms", "p95_ms", "p99_ms", "max_ms", "mean_ms",
		"throughput_per_sec", "avg_returned", "avg_matched", "index_usage", "failure",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Name,
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Errors),
			msNumber(r.Min), msNumber(r.P50), msNumber(r.P95), msNumber(r.P99),
			msNumber(r.Max), msNumber(r.Mean),
			strconv.FormatFloat(r.Throughput, 'f', 3, 64),
			strconv.FormatFloat(r.AvgReturned, 'f', 3, 64),
			strconv.FormatFloat(r.AvgMatched, 'f', 3, 64),
			string(r.IndexUsage),
			r.Failure,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func msNumber(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, results []bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		GeneratedAt time.Time      `json:"generated_at"`
		Results     []bench.Result `json:"results"`
	}{GeneratedAt: time.Now().UTC(), Results: results})
}
