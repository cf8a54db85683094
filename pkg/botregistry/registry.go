// Package botregistry is the content-addressed, versioned, append-only bot
// store (spec.md §4.6): every Put validates the bot (pkg/botvalidate),
// serializes and seals it (pkg/crypto), and allocates a new version id; reads
// resolve either the latest version or a pinned one and reverse the seal.
package botregistry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowkit/convoengine/pkg/botvalidate"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

// DefaultListLimit is spec.md §4.6's "limit default 20" for list_bot_versions.
const DefaultListLimit = 20

// Registry is the bot version store over a storage.Port.
type Registry struct {
	store storage.Port
	seal  *crypto.Envelope
}

// New builds a Registry over store, sealing serialized bots with seal.
func New(store storage.Port, seal *crypto.Envelope) *Registry {
	if seal == nil {
		seal = crypto.New("")
	}
	return &Registry{store: store, seal: seal}
}

// Put validates bot and stores a new version of it, returning the allocated
// version id. It returns bot's validation errors unchanged on failure.
//
// The whole bot (metadata and flows) is serialized into the single sealed
// blob PutBotVersion persists; the side-store flowsBlob parameter is left
// empty, since no storage.Port backend currently exposes a read path back
// to it — see DESIGN.md.
func (r *Registry) Put(ctx context.Context, bot *models.Bot) (string, error) {
	if errs := botvalidate.Validate(bot); len(errs) > 0 {
		return "", errs
	}

	plain, err := json.Marshal(bot)
	if err != nil {
		return "", fmt.Errorf("botregistry: encode bot: %w", err)
	}

	sealed, err := r.seal.Seal(plain)
	if err != nil {
		return "", fmt.Errorf("botregistry: seal bot: %w", err)
	}

	return r.store.PutBotVersion(ctx, bot.ID, sealed, "")
}

// GetLatest returns the most recently created version of botID.
func (r *Registry) GetLatest(ctx context.Context, botID string) (*models.Bot, *models.BotVersion, error) {
	rec, err := r.store.GetLatestBotVersion(ctx, botID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrNotFound
	}
	bot, err := r.decode(rec)
	if err != nil {
		return nil, nil, err
	}
	return bot, rec, nil
}

// GetVersion returns exactly the named version of botID.
func (r *Registry) GetVersion(ctx context.Context, botID, versionID string) (*models.Bot, *models.BotVersion, error) {
	rec, err := r.store.GetBotByVersion(ctx, botID, versionID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrNotFound
	}
	bot, err := r.decode(rec)
	if err != nil {
		return nil, nil, err
	}
	return bot, rec, nil
}

// List returns version summaries for botID, reverse-chronological, defaulting
// to DefaultListLimit when limit is 0.
func (r *Registry) List(ctx context.Context, botID string, limit int, cursor string) (models.Page[models.BotVersionSummary], error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.store.ListBotVersions(ctx, botID, limit, cursor)
}

// DeleteVersion removes a single version.
func (r *Registry) DeleteVersion(ctx context.Context, botID, versionID string) error {
	return r.store.DeleteBotVersion(ctx, botID, versionID)
}

// DeleteAllVersions removes every version of botID, keeping its
// conversations/messages/memories/state intact.
func (r *Registry) DeleteAllVersions(ctx context.Context, botID string) error {
	return r.store.DeleteAllBotVersions(ctx, botID)
}

// DeleteAllBotData removes every trace of botID: versions, conversations,
// messages, memories, and state.
func (r *Registry) DeleteAllBotData(ctx context.Context, botID string) error {
	return r.store.DeleteAllBotData(ctx, botID)
}

func (r *Registry) decode(rec *models.BotVersion) (*models.Bot, error) {
	plain, err := r.seal.Open(rec.SerializedBot)
	if err != nil {
		return nil, fmt.Errorf("botregistry: open bot %s/%s: %w", rec.BotID, rec.VersionID, err)
	}

	var bot models.Bot
	if err := json.Unmarshal(plain, &bot); err != nil {
		return nil, fmt.Errorf("botregistry: decode bot %s/%s: %w", rec.BotID, rec.VersionID, err)
	}
	return &bot, nil
}
