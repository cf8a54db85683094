// Command convoengine is a thin reference HTTP entrypoint: it parses a
// Request JSON body, runs it through the orchestrator, and renders the
// resulting Response JSON. It is a worked example of a transport adapter,
// not part of the core's tested contract surface.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowkit/convoengine/pkg/botregistry"
	"github.com/flowkit/convoengine/pkg/callback"
	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/hold"
	"github.com/flowkit/convoengine/pkg/interpreter/mini"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/orchestrator"
	"github.com/flowkit/convoengine/pkg/reaper"
	"github.com/flowkit/convoengine/pkg/storage"
	"github.com/flowkit/convoengine/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		panic("failed to initialize storage: " + err.Error())
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

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version.Full()})
	})
	router.POST("/bots/:bot_id/events", newEventHandler(o))

	if err := router.Run(":" + httpPort); err != nil {
		panic("failed to start server: " + err.Error())
	}
}

type eventRequest struct {
	models.Request
	VersionID string `json:"version_id,omitempty"`
}

func newEventHandler(o *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body eventRequest
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
			status, message := classifyError(err)
			c.JSON(status, gin.H{"error": message})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func classifyError(err error) (int, string) {
	var oerr *orchestrator.Error
	if !errors.As(err, &oerr) {
		return http.StatusInternalServerError, err.Error()
	}

	switch oerr.Kind {
	case orchestrator.KindFormat:
		return http.StatusBadRequest, oerr.Error()
	case orchestrator.KindRouting:
		if errors.Is(oerr, botregistry.ErrNotFound) {
			return http.StatusNotFound, oerr.Error()
		}
		return http.StatusInternalServerError, oerr.Error()
	default:
		return http.StatusInternalServerError, oerr.Error()
	}
}
