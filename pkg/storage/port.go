// Package storage defines the Port: the logical storage operations the
// orchestrator, bot registry, and reaper depend on (spec.md §4.2). Concrete
// backends (pkg/storage/memory, pkg/storage/postgres, pkg/storage/sqlite)
// implement Port; New selects one at process init based on
// config.EngineConfig.DBType, keeping backend polymorphism behind an
// interface rather than compile-time feature flags (spec.md §9).
package storage

import (
	"context"
	"time"

	"github.com/flowkit/convoengine/pkg/models"
)

// MessagesBulkInput is one row of an add_messages_bulk call.
type MessagesBulkInput struct {
	Payload     string // sealed JSON
	ContentType string
	Direction   models.Direction
}

// StateWrite is one row of a write_state_batch call.
type StateWrite struct {
	Key   string
	Value string // sealed JSON
}

// Port is the full set of logical storage operations (spec.md §4.2's table).
// Every method takes a context and returns a storage-specific error
// (ErrNotFound, *PartialError, or a wrapped *Error); none blocks indefinitely
// — a backend that uses async I/O under the hood must present a synchronous
// face per call.
type Port interface {
	// Conversations

	CreateConversation(ctx context.Context, client models.Client, flowID, stepID string, ttl *time.Duration) (string, error)
	CloseConversation(ctx context.Context, id string, client models.Client) error
	CloseAllConversations(ctx context.Context, client models.Client) error
	GetLatestOpen(ctx context.Context, client models.Client) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, id string, flowID, stepID *string) error
	ListClientConversations(ctx context.Context, client models.Client, limit int, cursor string) (models.Page[models.Conversation], error)

	// Messages

	AddMessagesBulk(ctx context.Context, conv *models.Conversation, rows []MessagesBulkInput, interactionOrder int) error
	ListClientMessages(ctx context.Context, client models.Client, limit int, cursor string) (models.Page[models.Message], error)
	ListMessagesBetween(ctx context.Context, client models.Client, from, to time.Time, limit int, cursor string) (models.Page[models.Message], error)

	// Memories

	WriteMemory(ctx context.Context, client models.Client, key, value string, ttl *time.Duration) error
	ReadMemory(ctx context.Context, client models.Client, key string) (string, bool, error)
	ReadAllMemories(ctx context.Context, client models.Client) ([]models.Memory, error)
	DeleteMemory(ctx context.Context, client models.Client, key string) error
	DeleteAllMemories(ctx context.Context, client models.Client) error

	// State

	WriteStateBatch(ctx context.Context, client models.Client, typ string, rows []StateWrite, ttl *time.Duration) error
	ReadState(ctx context.Context, client models.Client, typ, key string) (string, bool, error)
	DeleteState(ctx context.Context, client models.Client, typ, key string) error

	// Bot versions

	PutBotVersion(ctx context.Context, botID, blob, flowsBlob string) (string, error)
	GetLatestBotVersion(ctx context.Context, botID string) (*models.BotVersion, error)
	GetBotByVersion(ctx context.Context, botID, versionID string) (*models.BotVersion, error)
	ListBotVersions(ctx context.Context, botID string, limit int, cursor string) (models.Page[models.BotVersionSummary], error)
	DeleteBotVersion(ctx context.Context, botID, versionID string) error
	DeleteAllBotVersions(ctx context.Context, botID string) error
	DeleteAllBotData(ctx context.Context, botID string) error

	// Expiry

	DeleteExpired(ctx context.Context, now time.Time) error

	// Close releases backend resources (connection pools, files, ...).
	Close() error
}
