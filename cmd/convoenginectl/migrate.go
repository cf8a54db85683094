package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending storage schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Engine.DBType == config.DBTypeMemory {
		fmt.Println("memory backend has no schema to migrate")
		return nil
	}

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.Engine.DBType, err)
	}
	defer store.Close()

	fmt.Printf("migrations applied (%s)\n", cfg.Engine.DBType)
	return nil
}
