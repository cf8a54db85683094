package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func (b *Backend) WriteStateBatch(_ context.Context, client models.Client, typ string, rows []storage.StateWrite, ttl *time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range rows {
		k := stateKey{client: client, typ: typ, key: row.Key}
		entry, ok := b.state[k]
		if !ok {
			entry = &models.StateEntry{ID: uuid.NewString(), Client: client, Type: typ, Key: row.Key}
			b.state[k] = entry
		}
		entry.Value = row.Value
		entry.ExpiresAt = expiryOf(now, ttl)
	}
	return nil
}

func (b *Backend) ReadState(_ context.Context, client models.Client, typ, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.state[stateKey{client: client, typ: typ, key: key}]
	if !ok {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (b *Backend) DeleteState(_ context.Context, client models.Client, typ, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.state, stateKey{client: client, typ: typ, key: key})
	return nil
}
