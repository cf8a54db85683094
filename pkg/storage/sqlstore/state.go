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

func (s *Store) WriteStateBatch(ctx context.Context, client models.Client, typ string, rows []storage.StateWrite, ttl *time.Duration) error {
	now := time.Now().UTC()
	expires := nullableTime(expiryOf(now, ttl))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("write_state_batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	committed := 0
	for _, row := range rows {
		if err := s.upsertState(ctx, tx, client, typ, row.Key, row.Value, expires); err != nil {
			if committed > 0 {
				return &storage.PartialError{Committed: committed, Err: err}
			}
			return wrap("write_state_batch", err)
		}
		committed++
	}
	return wrap("write_state_batch", tx.Commit())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) upsertState(ctx context.Context, tx execer, client models.Client, typ, key, value string, expires sql.NullString) error {
	del := fmt.Sprintf(`DELETE FROM state_entries WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND type = %s AND key = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4), s.dialect.Placeholder(5))
	if _, err := tx.ExecContext(ctx, del, client.BotID, client.ChannelID, client.UserID, typ, key); err != nil {
		return err
	}

	ins := fmt.Sprintf(`INSERT INTO state_entries (id, bot_id, channel_id, user_id, type, key, value, expires_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
		s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7), s.dialect.Placeholder(8))
	_, err := tx.ExecContext(ctx, ins, uuid.NewString(), client.BotID, client.ChannelID, client.UserID, typ, key, value, expires)
	return err
}

func (s *Store) ReadState(ctx context.Context, client models.Client, typ, key string) (string, bool, error) {
	q := fmt.Sprintf(`SELECT value FROM state_entries WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND type = %s AND key = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4), s.dialect.Placeholder(5))

	var value string
	err := s.db.QueryRowContext(ctx, q, client.BotID, client.ChannelID, client.UserID, typ, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("read_state", err)
	}
	return value, true, nil
}

func (s *Store) DeleteState(ctx context.Context, client models.Client, typ, key string) error {
	q := fmt.Sprintf(`DELETE FROM state_entries WHERE bot_id = %s AND channel_id = %s AND user_id = %s AND type = %s AND key = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4), s.dialect.Placeholder(5))
	_, err := s.db.ExecContext(ctx, q, client.BotID, client.ChannelID, client.UserID, typ, key)
	return wrap("delete_state", err)
}
