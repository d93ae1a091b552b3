package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docbench/docbench/internal/loader"
	"github.com/docbench/docbench/internal/metrics"
)

func loadCmd() *cobra.Command {
	var (
		seed        int64
		withIndexes bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Populate the benchmark collections with synthetic documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if len(cfg.Load.Collections) == 0 {
				return fmt.Errorf("no load profiles configured")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			metrics.Register()

			l := loader.New(store, cfg.Load, seed, log).WithBatchFunc(metrics.BatchDone)
			if err := l.Run(ctx); err != nil {
				return err
			}

			if withIndexes {
				if err := loader.CreateIndexes(ctx, store, cfg.ToIndexSpecs(), log); err != nil {
					return err
				}
			}

			log.Info("load complete", zap.Int("collections", len(cfg.Load.Collections)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for reproducible datasets")
	cmd.Flags().BoolVar(&withIndexes, "with-indexes", false, "create the declared indexes after loading")
	return cmd
}
