package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/flowkit/convoengine/pkg/botregistry"
	"github.com/flowkit/convoengine/pkg/callback"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/hold"
	"github.com/flowkit/convoengine/pkg/interpreter/mini"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/orchestrator"
	"github.com/flowkit/convoengine/pkg/reaper"
	"github.com/flowkit/convoengine/pkg/storage"
	"github.com/flowkit/convoengine/pkg/version"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background expiry sweeper",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "8080", "HTTP listen port")
	return cmd
}

func runServe(port string) error {
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

	seal := crypto.New(cfg.Encryption.Secret)
	reg := botregistry.New(store, seal)

	o := orchestrator.New(orchestrator.Deps{
		Store:              store,
		Registry:           reg,
		Hold:               hold.New(store, seal),
		Interpreter:        mini.New(),
		Seal:               seal,
		Callback:           callback.New(&http.Client{Timeout: cfg.Engine.CallbackHTTP.Timeout}),
		DefaultTTL:         cfg.Engine.TTLDuration,
		DefaultLowDataMode: cfg.Engine.LowDataMode,
	})

	sweeper := reaper.New(&cfg.Retention, store)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if !cfg.Engine.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version.Full()})
	})
	router.POST("/bots/:bot_id/events", func(c *gin.Context) {
		var body struct {
			models.Request
			VersionID string `json:"version_id,omitempty"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		body.Request.Client.BotID = c.Param("bot_id")

		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		resp, err := o.Run(reqCtx, body.Request, models.BotSelector{
			BotID:     c.Param("bot_id"),
			VersionID: body.VersionID,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	fmt.Printf("convoenginectl serve — listening on :%s (backend: %s)\n", port, cfg.Engine.DBType)
	return router.Run(":" + port)
}
