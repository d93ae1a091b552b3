package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/config"
	"github.com/docbench/docbench/internal/db/mongo"
	logpkg "github.com/docbench/docbench/internal/logger"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docbench",
		Short: "docbench benchmarks queries against a MongoDB-compatible document store",
		Long: `docbench runs a declarative query benchmark suite against a
MongoDB-compatible document store. Queries carry parameter generators
(ranges, sequences, patterns, values sampled from live data) and
client-side join chains, so the workload stays realistic on stores
without server-side joins.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "bench.yaml", "path to the benchmark configuration file")

	cmd.AddCommand(
		runCmd(),
		loadCmd(),
		indexCmd(),
		versionCmd(),
	)
	return cmd
}

// setup loads configuration and builds the logger every subcommand
// shares.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logpkg.New(cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openStore connects to the configured database and waits for it to
// accept commands.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (*mongo.Store, error) {
	store, err := mongo.NewStore(ctx, mongo.Config{
		URI:      cfg.Database.URI,
		Database: cfg.Database.Name,
		Timeout:  time.Duration(cfg.Database.ConnectTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Database.Name, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	log.Info("connected to database",
		zap.String("database", cfg.Database.Name))
	return store, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
