package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func (s *Store) AddMessagesBulk(ctx context.Context, conv *models.Conversation, rows []storage.MessagesBulkInput, interactionOrder int) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("add_messages_bulk", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO messages
		(id, conversation_id, bot_id, channel_id, user_id, flow_id, step_id, interaction_order, message_order, direction, content_type, payload, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
		s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7), s.dialect.Placeholder(8),
		s.dialect.Placeholder(9), s.dialect.Placeholder(10), s.dialect.Placeholder(11), s.dialect.Placeholder(12),
		s.dialect.Placeholder(13))

	committed := 0
	for i, row := range rows {
		_, err := tx.ExecContext(ctx, q,
			uuid.NewString(), conv.ID, conv.Client.BotID, conv.Client.ChannelID, conv.Client.UserID,
			conv.FlowID, conv.StepID, interactionOrder, i, string(row.Direction), row.ContentType,
			row.Payload, formatTime(now))
		if err != nil {
			_ = tx.Rollback()
			if committed > 0 {
				return &storage.PartialError{Committed: committed, Err: err}
			}
			return wrap("add_messages_bulk", err)
		}
		committed++

		// Chunk at storage.BatchSize per spec.md §4.2's batching rule.
		if committed%storage.BatchSize == 0 && committed < len(rows) {
			if err := tx.Commit(); err != nil {
				return wrap("add_messages_bulk", err)
			}
			tx, err = s.db.BeginTx(ctx, nil)
			if err != nil {
				return &storage.PartialError{Committed: committed, Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("add_messages_bulk", err)
	}
	return nil
}

func (s *Store) ListClientMessages(ctx context.Context, client models.Client, limit int, cursor string) (models.Page[models.Message], error) {
	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.Message]{}, err
	}

	q := fmt.Sprintf(`SELECT id, conversation_id, flow_id, step_id, interaction_order, message_order, direction, content_type, payload, created_at
		FROM messages
		WHERE bot_id = %s AND channel_id = %s AND user_id = %s
		ORDER BY interaction_order DESC, message_order DESC
		LIMIT %s OFFSET %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5))

	return s.queryMessages(ctx, q, client, offset, limit, client.BotID, client.ChannelID, client.UserID, limit+1, offset)
}

func (s *Store) ListMessagesBetween(ctx context.Context, client models.Client, from, to time.Time, limit int, cursor string) (models.Page[models.Message], error) {
	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.Message]{}, err
	}

	q := fmt.Sprintf(`SELECT id, conversation_id, flow_id, step_id, interaction_order, message_order, direction, content_type, payload, created_at
		FROM messages
		WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND created_at >= %s AND created_at <= %s
		ORDER BY interaction_order DESC, message_order DESC
		LIMIT %s OFFSET %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7))

	return s.queryMessages(ctx, q, client, offset, limit, client.BotID, client.ChannelID, client.UserID, formatTime(from), formatTime(to), limit+1, offset)
}

// queryMessages runs q with bindArgs and assembles the resulting Page using
// offset/limit (not themselves bind parameters in every caller, but always
// supplied explicitly so the page math never has to reverse-engineer them).
func (s *Store) queryMessages(ctx context.Context, q string, client models.Client, offset, limit int, bindArgs ...any) (models.Page[models.Message], error) {
	rows, err := s.db.QueryContext(ctx, q, bindArgs...)
	if err != nil {
		return models.Page[models.Message]{}, wrap("list_messages", err)
	}
	defer rows.Close()

	var items []models.Message
	for rows.Next() {
		var (
			id, convID, flowID, stepID, direction, contentType, payload, createdAt string
			interactionOrder, messageOrder                                        int
		)
		if err := rows.Scan(&id, &convID, &flowID, &stepID, &interactionOrder, &messageOrder, &direction, &contentType, &payload, &createdAt); err != nil {
			return models.Page[models.Message]{}, wrap("list_messages", err)
		}
		created, err := parseTime(createdAt)
		if err != nil {
			return models.Page[models.Message]{}, wrap("list_messages", err)
		}
		items = append(items, models.Message{
			ID:               id,
			ConversationID:   convID,
			Client:           client,
			FlowID:           flowID,
			StepID:           stepID,
			InteractionOrder: interactionOrder,
			MessageOrder:     messageOrder,
			Direction:        models.Direction(direction),
			ContentType:      contentType,
			Payload:          payload,
			CreatedAt:        created,
		})
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Message]{}, wrap("list_messages", err)
	}

	return pageFromOverfetch(items, offset, limit), nil
}
