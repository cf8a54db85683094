package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func (b *Backend) AddMessagesBulk(_ context.Context, conv *models.Conversation, rows []storage.MessagesBulkInput, interactionOrder int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	for i, row := range rows {
		b.messages = append(b.messages, &models.Message{
			ID:               uuid.NewString(),
			ConversationID:   conv.ID,
			Client:           conv.Client,
			FlowID:           conv.FlowID,
			StepID:           conv.StepID,
			InteractionOrder: interactionOrder,
			MessageOrder:     i,
			Direction:        row.Direction,
			ContentType:      row.ContentType,
			Payload:          row.Payload,
			CreatedAt:        now,
		})
	}
	return nil
}

func (b *Backend) ListClientMessages(_ context.Context, client models.Client, limit int, cursor string) (models.Page[models.Message], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.Message]{}, err
	}

	all := b.messagesForClient(client)
	return paginate(all, offset, limit), nil
}

func (b *Backend) ListMessagesBetween(_ context.Context, client models.Client, from, to time.Time, limit int, cursor string) (models.Page[models.Message], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.Message]{}, err
	}

	var all []models.Message
	for _, m := range b.messagesForClient(client) {
		if !m.CreatedAt.Before(from) && !m.CreatedAt.After(to) {
			all = append(all, m)
		}
	}
	return paginate(all, offset, limit), nil
}

func (b *Backend) messagesForClient(client models.Client) []models.Message {
	var all []models.Message
	for _, m := range b.messages {
		if m.Client == client {
			all = append(all, *m)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].InteractionOrder != all[j].InteractionOrder {
			return all[i].InteractionOrder > all[j].InteractionOrder
		}
		return all[i].MessageOrder > all[j].MessageOrder
	})
	return all
}
