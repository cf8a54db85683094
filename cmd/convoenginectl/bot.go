package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowkit/convoengine/pkg/botregistry"
	"github.com/flowkit/convoengine/pkg/botvalidate"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func botCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Manage bot versions in the registry",
	}
	cmd.AddCommand(botImportCmd(), botListCmd(), botVersionsCmd(), botDeleteCmd())
	return cmd
}

// openRegistry resolves config and wires a botregistry.Registry over it.
// Returns the registry and the storage port so callers can defer Close.
func openRegistry(ctx context.Context) (*botregistry.Registry, storage.Port, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize storage: %w", err)
	}
	seal := crypto.New(cfg.Encryption.Secret)
	return botregistry.New(store, seal), store, nil
}

func botImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <bot.json>",
		Short: "Validate and store a new bot version from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBotImport(args[0])
		},
	}
}

func runBotImport(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var bot models.Bot
	if err := json.Unmarshal(raw, &bot); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	ctx := context.Background()
	reg, store, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	versionID, err := reg.Put(ctx, &bot)
	if err != nil {
		var verrs botvalidate.Errors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			return fmt.Errorf("bot %q failed validation", bot.ID)
		}
		return fmt.Errorf("import %q: %w", bot.ID, err)
	}

	fmt.Printf("imported %s version %s\n", bot.ID, versionID)
	return nil
}

func botListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <bot-id>",
		Short: "Show the latest stored version of a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBotList(args[0])
		},
	}
}

func runBotList(botID string) error {
	ctx := context.Background()
	reg, store, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	bot, ver, err := reg.GetLatest(ctx, botID)
	if err != nil {
		return fmt.Errorf("get latest %q: %w", botID, err)
	}

	fmt.Printf("%s  latest=%s  flows=%d  engine_version=%s  created_at=%s\n",
		bot.ID, ver.VersionID, len(bot.Flows), ver.EngineVersion, ver.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func botVersionsCmd() *cobra.Command {
	var limit int
	var cursor string
	cmd := &cobra.Command{
		Use:   "versions <bot-id>",
		Short: "List stored versions of a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBotVersions(args[0], limit, cursor)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "page size (clamped to 25)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "opaque pagination cursor from a previous page")
	return cmd
}

func runBotVersions(botID string, limit int, cursor string) error {
	ctx := context.Background()
	reg, store, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	page, err := reg.List(ctx, botID, limit, cursor)
	if err != nil {
		return fmt.Errorf("list versions of %q: %w", botID, err)
	}

	for _, v := range page.Items {
		fmt.Printf("%s  %s\n", v.VersionID, v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if page.Cursor != "" {
		fmt.Printf("next cursor: %s\n", page.Cursor)
	}
	return nil
}

func botDeleteCmd() *cobra.Command {
	var versionID string
	var all bool
	cmd := &cobra.Command{
		Use:   "delete <bot-id>",
		Short: "Delete one bot version, or all versions and bot data",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBotDelete(args[0], versionID, all)
		},
	}
	cmd.Flags().StringVar(&versionID, "version", "", "delete only this version")
	cmd.Flags().BoolVar(&all, "all", false, "delete all versions and associated conversations, memories, and state")
	return cmd
}

func runBotDelete(botID, versionID string, all bool) error {
	if !all && versionID == "" {
		return fmt.Errorf("specify --version <id> or --all")
	}

	ctx := context.Background()
	reg, store, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if all {
		if err := reg.DeleteAllBotData(ctx, botID); err != nil {
			return fmt.Errorf("delete all data for %q: %w", botID, err)
		}
		fmt.Printf("deleted all versions and data for %s\n", botID)
		return nil
	}

	if err := reg.DeleteVersion(ctx, botID, versionID); err != nil {
		return fmt.Errorf("delete %s/%s: %w", botID, versionID, err)
	}
	fmt.Printf("deleted %s version %s\n", botID, versionID)
	return nil
}
