package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
)

func (b *Backend) WriteMemory(_ context.Context, client models.Client, key, value string, ttl *time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	b.memories = append(b.memories, &models.Memory{
		ID:        uuid.NewString(),
		Client:    client,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: expiryOf(now, ttl),
	})
	return nil
}

func (b *Backend) ReadMemory(_ context.Context, client models.Client, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var latest *models.Memory
	for _, m := range b.memories {
		if m.Client != client || m.Key != key {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return "", false, nil
	}
	return latest.Value, true, nil
}

func (b *Backend) ReadAllMemories(_ context.Context, client models.Client) ([]models.Memory, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	latestByKey := make(map[string]models.Memory)
	for _, m := range b.memories {
		if m.Client != client {
			continue
		}
		if existing, ok := latestByKey[m.Key]; !ok || m.CreatedAt.After(existing.CreatedAt) {
			latestByKey[m.Key] = *m
		}
	}

	out := make([]models.Memory, 0, len(latestByKey))
	for _, m := range latestByKey {
		out = append(out, m)
	}
	sortMemoriesByCreatedDesc(out)
	return out, nil
}

func (b *Backend) DeleteMemory(_ context.Context, client models.Client, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.memories[:0]
	for _, m := range b.memories {
		if m.Client == client && m.Key == key {
			continue
		}
		kept = append(kept, m)
	}
	b.memories = kept
	return nil
}

func (b *Backend) DeleteAllMemories(_ context.Context, client models.Client) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.memories[:0]
	for _, m := range b.memories {
		if m.Client == client {
			continue
		}
		kept = append(kept, m)
	}
	b.memories = kept
	return nil
}

func sortMemoriesByCreatedDesc(items []models.Memory) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].CreatedAt.After(items[j-1].CreatedAt); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
