package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/bench"
	"github.com/docbench/docbench/internal/domain"
	"github.com/docbench/docbench/internal/metrics"
	"github.com/docbench/docbench/internal/report"
	"github.com/docbench/docbench/internal/version"
)

func runCmd() *cobra.Command {
	var (
		iterations int
		warmup     int
		threads    int
		explain    bool
		seed       int64
		queries    []string
		format     string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark suite and report per-query latency statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			// CLI flags override the config file when set.
			if cmd.Flags().Changed("iterations") {
				cfg.Runner.Iterations = iterations
			}
			if cmd.Flags().Changed("warmup") {
				cfg.Runner.Warmup = warmup
			}
			if cmd.Flags().Changed("threads") {
				cfg.Runner.Threads = threads
			}
			if cmd.Flags().Changed("explain") {
				cfg.Runner.Explain = explain
			}
			if cmd.Flags().Changed("seed") {
				cfg.Runner.Seed = seed
			}

			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			specs, err := cfg.ToSpecs()
			if err != nil {
				return err
			}
			specs, err = filterSpecs(specs, queries)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				return fmt.Errorf("no queries configured")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			log.Info("starting benchmark",
				zap.String("version", version.Version),
				zap.Int("queries", len(specs)),
				zap.Int("warmup", cfg.Runner.Warmup),
				zap.Int("iterations", cfg.Runner.Iterations),
				zap.Int("threads", cfg.Runner.Threads))

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			metrics.Register()
			if cfg.Metrics.Port > 0 {
				srv := metrics.NewServer(cfg.Metrics.Port, log)
				srv.Start()
				defer func() {
					shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutCtx)
				}()
			}

			suite := bench.NewSuite(store, bench.Options{
				Warmup:     cfg.Runner.Warmup,
				Iterations: cfg.Runner.Iterations,
				Explain:    cfg.Runner.Explain,
				Seed:       cfg.Runner.Seed,
			}, cfg.Runner.Threads, log).WithObserver(metrics.Observer{})

			results := suite.Run(ctx, specs)

			if err := writeReport(outFormat, output, results); err != nil {
				return err
			}

			var failed []string
			for _, r := range results {
				if r.Failure != "" {
					failed = append(failed, r.Name)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d queries failed: %s",
					len(failed), len(results), strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 0, "measured iterations per query (overrides config)")
	cmd.Flags().IntVar(&warmup, "warmup", 0, "warmup iterations per query (overrides config)")
	cmd.Flags().IntVar(&threads, "threads", 0, "concurrent query workers (overrides config)")
	cmd.Flags().BoolVar(&explain, "explain", false, "capture query plans before measuring (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for reproducible parameter streams (overrides config)")
	cmd.Flags().StringSliceVar(&queries, "queries", nil, "run only the named queries")
	cmd.Flags().StringVar(&format, "format", "console", "report format: console, csv, json")
	cmd.Flags().StringVar(&output, "output", "", "write the report to a file instead of stdout")
	return cmd
}

// filterSpecs keeps only the named queries, rejecting names that match
// nothing so a typo cannot silently shrink a run.
func filterSpecs(specs []*domain.QuerySpec, names []string) ([]*domain.QuerySpec, error) {
	if len(names) == 0 {
		return specs, nil
	}
	byName := make(map[string]*domain.QuerySpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	out := make([]*domain.QuerySpec, 0, len(names))
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown query %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func writeReport(format report.Format, output string, results []bench.Result) error {
	renderer, err := report.New(format)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return renderer.Render(w, results)
}
