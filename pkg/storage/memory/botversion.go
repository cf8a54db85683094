package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func (b *Backend) PutBotVersion(_ context.Context, botID, blob, flowsBlob string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := &botVersionRecord{
		version: models.BotVersion{
			VersionID:     uuid.NewString(),
			BotID:         botID,
			SerializedBot: blob,
			EngineVersion: storage.EngineVersion,
			CreatedAt:     time.Now().UTC(),
		},
		flowsBlob: flowsBlob,
	}
	b.botVersions = append(b.botVersions, rec)
	return rec.version.VersionID, nil
}

func (b *Backend) GetLatestBotVersion(_ context.Context, botID string) (*models.BotVersion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var latest *models.BotVersion
	for _, rec := range b.botVersions {
		if rec.version.BotID != botID {
			continue
		}
		if latest == nil || rec.version.CreatedAt.After(latest.CreatedAt) {
			v := rec.version
			latest = &v
		}
	}
	return latest, nil
}

func (b *Backend) GetBotByVersion(_ context.Context, botID, versionID string) (*models.BotVersion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.botVersions {
		if rec.version.BotID == botID && rec.version.VersionID == versionID {
			v := rec.version
			return &v, nil
		}
	}
	return nil, nil
}

func (b *Backend) ListBotVersions(_ context.Context, botID string, limit int, cursor string) (models.Page[models.BotVersionSummary], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.BotVersionSummary]{}, err
	}

	var all []models.BotVersionSummary
	for _, rec := range b.botVersions {
		if rec.version.BotID != botID {
			continue
		}
		all = append(all, models.BotVersionSummary{
			VersionID:     rec.version.VersionID,
			BotID:         rec.version.BotID,
			EngineVersion: rec.version.EngineVersion,
			CreatedAt:     rec.version.CreatedAt,
		})
	}
	sortSummariesByCreatedDesc(all)
	return paginate(all, offset, limit), nil
}

func (b *Backend) DeleteBotVersion(_ context.Context, botID, versionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.botVersions[:0]
	for _, rec := range b.botVersions {
		if rec.version.BotID == botID && rec.version.VersionID == versionID {
			continue
		}
		kept = append(kept, rec)
	}
	b.botVersions = kept
	return nil
}

func (b *Backend) DeleteAllBotVersions(_ context.Context, botID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.botVersions[:0]
	for _, rec := range b.botVersions {
		if rec.version.BotID == botID {
			continue
		}
		kept = append(kept, rec)
	}
	b.botVersions = kept
	return nil
}

func (b *Backend) DeleteAllBotData(_ context.Context, botID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	keptVersions := b.botVersions[:0]
	for _, rec := range b.botVersions {
		if rec.version.BotID == botID {
			continue
		}
		keptVersions = append(keptVersions, rec)
	}
	b.botVersions = keptVersions

	keptConvs := make(map[string]*models.Conversation, len(b.conversations))
	for id, conv := range b.conversations {
		if conv.Client.BotID == botID {
			continue
		}
		keptConvs[id] = conv
	}
	b.conversations = keptConvs

	keptMsgs := b.messages[:0]
	for _, m := range b.messages {
		if m.Client.BotID == botID {
			continue
		}
		keptMsgs = append(keptMsgs, m)
	}
	b.messages = keptMsgs

	keptMems := b.memories[:0]
	for _, m := range b.memories {
		if m.Client.BotID == botID {
			continue
		}
		keptMems = append(keptMems, m)
	}
	b.memories = keptMems

	for k := range b.state {
		if k.client.BotID == botID {
			delete(b.state, k)
		}
	}
	return nil
}

func sortSummariesByCreatedDesc(items []models.BotVersionSummary) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].CreatedAt.After(items[j-1].CreatedAt); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
