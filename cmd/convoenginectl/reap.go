package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowkit/convoengine/pkg/reaper"
	"github.com/flowkit/convoengine/pkg/storage"
)

func reapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run a single expiry sweep and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runReap()
		},
	}
}

func runReap() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()

	sweeper := reaper.New(&cfg.Retention, store)
	if err := sweeper.RunOnce(ctx); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	fmt.Println("sweep complete")
	return nil
}
