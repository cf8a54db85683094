package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

func (s *Store) CreateConversation(ctx context.Context, client models.Client, flowID, stepID string, ttl *time.Duration) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	expires := expiryOf(now, ttl)

	q := fmt.Sprintf(`INSERT INTO conversations
		(id, bot_id, channel_id, user_id, flow_id, step_id, status, created_at, updated_at, last_interaction_at, expires_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
		s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7), s.dialect.Placeholder(8),
		s.dialect.Placeholder(9), s.dialect.Placeholder(10), s.dialect.Placeholder(11))

	_, err := s.db.ExecContext(ctx, q,
		id, client.BotID, client.ChannelID, client.UserID, flowID, stepID, string(models.ConversationOpen),
		formatTime(now), formatTime(now), formatTime(now), nullableTime(expires))
	if err != nil {
		return "", wrap("create_conversation", err)
	}
	return id, nil
}

func (s *Store) CloseConversation(ctx context.Context, id string, client models.Client) error {
	q := fmt.Sprintf(`UPDATE conversations SET status = %s, updated_at = %s
		WHERE id = %s AND bot_id = %s AND channel_id = %s AND user_id = %s AND status = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
		s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7))

	_, err := s.db.ExecContext(ctx, q,
		string(models.ConversationClosed), formatTime(time.Now().UTC()),
		id, client.BotID, client.ChannelID, client.UserID, string(models.ConversationOpen))
	if err != nil {
		return wrap("close_conversation", err)
	}
	return nil // no-op on missing/already-closed rows, spec.md §4.2/§8
}

func (s *Store) CloseAllConversations(ctx context.Context, client models.Client) error {
	q := fmt.Sprintf(`UPDATE conversations SET status = %s, updated_at = %s
		WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND status = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6))

	_, err := s.db.ExecContext(ctx, q,
		string(models.ConversationClosed), formatTime(time.Now().UTC()),
		client.BotID, client.ChannelID, client.UserID, string(models.ConversationOpen))
	return wrap("close_all_conversations", err)
}

func (s *Store) GetLatestOpen(ctx context.Context, client models.Client) (*models.Conversation, error) {
	q := fmt.Sprintf(`SELECT id, flow_id, step_id, status, created_at, updated_at, last_interaction_at, expires_at
		FROM conversations
		WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND status = %s
		ORDER BY updated_at DESC`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4))

	row := s.db.QueryRowContext(ctx, q, client.BotID, client.ChannelID, client.UserID, string(models.ConversationOpen))
	conv, err := scanConversation(row, client)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_latest_open", err)
	}
	return conv, nil
}

func (s *Store) UpdateConversation(ctx context.Context, id string, flowID, stepID *string) error {
	now := time.Now().UTC()

	q := fmt.Sprintf(`UPDATE conversations SET
		flow_id = COALESCE(%s, flow_id),
		step_id = COALESCE(%s, step_id),
		updated_at = %s,
		last_interaction_at = %s
		WHERE id = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5))

	res, err := s.db.ExecContext(ctx, q,
		nullableStringPtr(flowID), nullableStringPtr(stepID), formatTime(now), formatTime(now), id)
	if err != nil {
		return wrap("update_conversation", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullableStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *Store) ListClientConversations(ctx context.Context, client models.Client, limit int, cursor string) (models.Page[models.Conversation], error) {
	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.Conversation]{}, err
	}

	q := fmt.Sprintf(`SELECT id, flow_id, step_id, status, created_at, updated_at, last_interaction_at, expires_at
		FROM conversations
		WHERE bot_id = %s AND channel_id = %s AND user_id = %s
		ORDER BY updated_at DESC
		LIMIT %s OFFSET %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5))

	rows, err := s.db.QueryContext(ctx, q, client.BotID, client.ChannelID, client.UserID, limit+1, offset)
	if err != nil {
		return models.Page[models.Conversation]{}, wrap("list_client_conversations", err)
	}
	defer rows.Close()

	var items []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows, client)
		if err != nil {
			return models.Page[models.Conversation]{}, wrap("list_client_conversations", err)
		}
		items = append(items, *conv)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Conversation]{}, wrap("list_client_conversations", err)
	}

	return pageFromOverfetch(items, offset, limit), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner, client models.Client) (*models.Conversation, error) {
	var (
		id, flowID, stepID, status string
		createdAt, updatedAt, lastInteractionAt string
		expiresAt sql.NullString
	)
	if err := row.Scan(&id, &flowID, &stepID, &status, &createdAt, &updatedAt, &lastInteractionAt, &expiresAt); err != nil {
		return nil, err
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	lastInteraction, err := parseTime(lastInteractionAt)
	if err != nil {
		return nil, err
	}
	expires, err := fromNullableTime(expiresAt)
	if err != nil {
		return nil, err
	}

	return &models.Conversation{
		ID:                id,
		Client:            client,
		FlowID:            flowID,
		StepID:            stepID,
		Status:            models.ConversationStatus(status),
		CreatedAt:         created,
		UpdatedAt:         updated,
		LastInteractionAt: lastInteraction,
		ExpiresAt:         expires,
	}, nil
}

// pageFromOverfetch turns a limit+1-sized result set into a Page, using the
// extra row only to decide whether a next cursor should be emitted.
func pageFromOverfetch[T any](items []T, offset, limit int) models.Page[T] {
	if len(items) == 0 {
		return models.Page[T]{Items: []T{}}
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	page := models.Page[T]{Items: items}
	if hasMore {
		page.Cursor = storage.EncodeOffsetCursor(offset + limit)
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

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("storage: %s: %w", op, err)
}
