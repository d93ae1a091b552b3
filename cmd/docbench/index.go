package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docbench/docbench/internal/loader"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Create the indexes declared in the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			specs := cfg.ToIndexSpecs()
			if len(specs) == 0 {
				return fmt.Errorf("no indexes configured")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			return loader.CreateIndexes(ctx, store, specs, log)
		},
	}
}
