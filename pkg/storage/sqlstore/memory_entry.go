package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit/convoengine/pkg/models"
)

func (s *Store) WriteMemory(ctx context.Context, client models.Client, key, value string, ttl *time.Duration) error {
	now := time.Now().UTC()
	q := fmt.Sprintf(`INSERT INTO memories (id, bot_id, channel_id, user_id, key, value, created_at, expires_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
		s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7), s.dialect.Placeholder(8))

	_, err := s.db.ExecContext(ctx, q,
		uuid.NewString(), client.BotID, client.ChannelID, client.UserID, key, value,
		formatTime(now), nullableTime(expiryOf(now, ttl)))
	return wrap("write_memory", err)
}

func (s *Store) ReadMemory(ctx context.Context, client models.Client, key string) (string, bool, error) {
	q := fmt.Sprintf(`SELECT value FROM memories
		WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND key = %s
		ORDER BY created_at DESC LIMIT 1`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4))

	var value string
	err := s.db.QueryRowContext(ctx, q, client.BotID, client.ChannelID, client.UserID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("read_memory", err)
	}
	return value, true, nil
}

func (s *Store) ReadAllMemories(ctx context.Context, client models.Client) ([]models.Memory, error) {
	// Latest row per key: a self-join on MAX(created_at) keeps this portable
	// across postgres and sqlite without relying on window functions.
	q := fmt.Sprintf(`SELECT m.key, m.value, m.created_at, m.expires_at
		FROM memories m
		INNER JOIN (
			SELECT key, MAX(created_at) AS max_created
			FROM memories
			WHERE bot_id = %s AND channel_id = %s AND user_id = %s
			GROUP BY key
		) latest ON m.key = latest.key AND m.created_at = latest.max_created
		WHERE m.bot_id = %s AND m.channel_id = %s AND m.user_id = %s
		ORDER BY m.created_at DESC`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6))

	rows, err := s.db.QueryContext(ctx, q,
		client.BotID, client.ChannelID, client.UserID, client.BotID, client.ChannelID, client.UserID)
	if err != nil {
		return nil, wrap("read_all_memories", err)
	}
	defer rows.Close()

	var out []models.Memory
	for rows.Next() {
		var key, value, createdAt string
		var expiresAt sql.NullString
		if err := rows.Scan(&key, &value, &createdAt, &expiresAt); err != nil {
			return nil, wrap("read_all_memories", err)
		}
		created, err := parseTime(createdAt)
		if err != nil {
			return nil, wrap("read_all_memories", err)
		}
		expires, err := fromNullableTime(expiresAt)
		if err != nil {
			return nil, wrap("read_all_memories", err)
		}
		out = append(out, models.Memory{Client: client, Key: key, Value: value, CreatedAt: created, ExpiresAt: expires})
	}
	return out, wrap("read_all_memories", rows.Err())
}

func (s *Store) DeleteMemory(ctx context.Context, client models.Client, key string) error {
	q := fmt.Sprintf(`DELETE FROM memories WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND key = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4))
	_, err := s.db.ExecContext(ctx, q, client.BotID, client.ChannelID, client.UserID, key)
	return wrap("delete_memory", err)
}

func (s *Store) DeleteAllMemories(ctx context.Context, client models.Client) error {
	q := fmt.Sprintf(`DELETE FROM memories WHERE bot_id = %s AND channel_id = %s AND user_id = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3))
	_, err := s.db.ExecContext(ctx, q, client.BotID, client.ChannelID, client.UserID)
	return wrap("delete_all_memories", err)
}
