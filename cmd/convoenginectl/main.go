// Command convoenginectl is the operator CLI for the conversation engine:
// start the HTTP server, apply storage migrations, sweep expired state, and
// manage bot versions — grounded on clawwork-cli's cobra command layout.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flowkit/convoengine/pkg/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "convoenginectl",
		Short: "convoenginectl — operator CLI for the conversation engine",
		Long:  "convoenginectl manages the conversation engine: serve the HTTP API, run storage migrations, sweep expired state, and publish bot versions.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "operator TOML config file (overlays environment-derived defaults)")

	root.AddCommand(serveCmd(), migrateCmd(), reapCmd(), botCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves Config from the environment (config.Load) and, when
// --config is set, overlays an operator TOML file on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := config.MergeTOML(cfg, configPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
