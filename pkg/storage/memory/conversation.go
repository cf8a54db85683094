package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func (b *Backend) CreateConversation(_ context.Context, client models.Client, flowID, stepID string, ttl *time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:                uuid.NewString(),
		Client:            client,
		FlowID:            flowID,
		StepID:            stepID,
		Status:            models.ConversationOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
		LastInteractionAt: now,
		ExpiresAt:         expiryOf(now, ttl),
	}
	b.conversations[conv.ID] = conv
	return conv.ID, nil
}

func (b *Backend) CloseConversation(_ context.Context, id string, client models.Client) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conv, ok := b.conversations[id]
	if !ok || conv.Client != client {
		return nil // closing a non-existent row is a no-op, spec.md §8
	}
	if conv.Status == models.ConversationClosed {
		return nil // idempotent, spec.md §4.2
	}
	conv.Status = models.ConversationClosed
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (b *Backend) CloseAllConversations(_ context.Context, client models.Client) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	for _, conv := range b.conversations {
		if conv.Client == client && conv.Status == models.ConversationOpen {
			conv.Status = models.ConversationClosed
			conv.UpdatedAt = now
		}
	}
	return nil
}

func (b *Backend) GetLatestOpen(_ context.Context, client models.Client) (*models.Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var latest *models.Conversation
	for _, conv := range b.conversations {
		if conv.Client != client || conv.Status != models.ConversationOpen {
			continue
		}
		if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (b *Backend) UpdateConversation(_ context.Context, id string, flowID, stepID *string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conv, ok := b.conversations[id]
	if !ok {
		return storage.ErrNotFound
	}
	if flowID != nil {
		conv.FlowID = *flowID
	}
	if stepID != nil {
		conv.StepID = *stepID
	}
	now := time.Now().UTC()
	conv.UpdatedAt = now
	conv.LastInteractionAt = now
	return nil
}

func (b *Backend) ListClientConversations(_ context.Context, client models.Client, limit int, cursor string) (models.Page[models.Conversation], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.Conversation]{}, err
	}

	var all []models.Conversation
	for _, conv := range b.conversations {
		if conv.Client == client {
			all = append(all, *conv)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	return paginate(all, offset, limit), nil
}

func paginate[T any](all []T, offset, limit int) models.Page[T] {
	if offset >= len(all) {
		return models.Page[T]{Items: []T{}}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := models.Page[T]{Items: all[offset:end]}
	if end < len(all) {
		page.Cursor = storage.EncodeOffsetCursor(end)
	}
	return page
}

func expiryOf(now time.Time, ttl *time.Duration) *time.Time {
	if ttl == nil {
		return nil
	}
	at := now.Add(*ttl)
	return &at
}
