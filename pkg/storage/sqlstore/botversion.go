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

func (s *Store) PutBotVersion(ctx context.Context, botID, blob, flowsBlob string) (string, error) {
	versionID := uuid.NewString()
	now := time.Now().UTC()

	q := fmt.Sprintf(`INSERT INTO bot_versions (version_id, bot_id, serialized_bot, flows_blob, engine_version, created_at)
		VALUES (%s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6))

	_, err := s.db.ExecContext(ctx, q, versionID, botID, blob, flowsBlob, storage.EngineVersion, formatTime(now))
	if err != nil {
		return "", wrap("put_bot_version", err)
	}
	return versionID, nil
}

func (s *Store) GetLatestBotVersion(ctx context.Context, botID string) (*models.BotVersion, error) {
	q := fmt.Sprintf(`SELECT version_id, serialized_bot, engine_version, created_at FROM bot_versions
		WHERE bot_id = %s ORDER BY created_at DESC LIMIT 1`, s.dialect.Placeholder(1))
	return s.scanOneBotVersion(ctx, q, botID, botID)
}

func (s *Store) GetBotByVersion(ctx context.Context, botID, versionID string) (*models.BotVersion, error) {
	q := fmt.Sprintf(`SELECT version_id, serialized_bot, engine_version, created_at FROM bot_versions
		WHERE bot_id = %s AND version_id = %s`, s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	return s.scanOneBotVersion(ctx, q, botID, botID, versionID)
}

func (s *Store) scanOneBotVersion(ctx context.Context, q string, botID string, args ...any) (*models.BotVersion, error) {
	var versionID, serialized, engineVersion, createdAt string
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&versionID, &serialized, &engineVersion, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get_bot_version", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, wrap("get_bot_version", err)
	}
	return &models.BotVersion{
		VersionID:     versionID,
		BotID:         botID,
		SerializedBot: serialized,
		EngineVersion: engineVersion,
		CreatedAt:     created,
	}, nil
}

func (s *Store) ListBotVersions(ctx context.Context, botID string, limit int, cursor string) (models.Page[models.BotVersionSummary], error) {
	limit = storage.ClampLimit(limit)
	offset, err := storage.DecodeOffsetCursor(cursor)
	if err != nil {
		return models.Page[models.BotVersionSummary]{}, err
	}

	q := fmt.Sprintf(`SELECT version_id, engine_version, created_at FROM bot_versions
		WHERE bot_id = %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3))

	rows, err := s.db.QueryContext(ctx, q, botID, limit+1, offset)
	if err != nil {
		return models.Page[models.BotVersionSummary]{}, wrap("list_bot_versions", err)
	}
	defer rows.Close()

	var items []models.BotVersionSummary
	for rows.Next() {
		var versionID, engineVersion, createdAt string
		if err := rows.Scan(&versionID, &engineVersion, &createdAt); err != nil {
			return models.Page[models.BotVersionSummary]{}, wrap("list_bot_versions", err)
		}
		created, err := parseTime(createdAt)
		if err != nil {
			return models.Page[models.BotVersionSummary]{}, wrap("list_bot_versions", err)
		}
		items = append(items, models.BotVersionSummary{VersionID: versionID, BotID: botID, EngineVersion: engineVersion, CreatedAt: created})
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.BotVersionSummary]{}, wrap("list_bot_versions", err)
	}

	return pageFromOverfetch(items, offset, limit), nil
}

func (s *Store) DeleteBotVersion(ctx context.Context, botID, versionID string) error {
	q := fmt.Sprintf(`DELETE FROM bot_versions WHERE bot_id = %s AND version_id = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	_, err := s.db.ExecContext(ctx, q, botID, versionID)
	return wrap("delete_bot_version", err)
}

func (s *Store) DeleteAllBotVersions(ctx context.Context, botID string) error {
	q := fmt.Sprintf(`DELETE FROM bot_versions WHERE bot_id = %s`, s.dialect.Placeholder(1))
	_, err := s.db.ExecContext(ctx, q, botID)
	return wrap("delete_all_bot_versions", err)
}

func (s *Store) DeleteAllBotData(ctx context.Context, botID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("delete_all_bot_data", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"bot_versions", "conversations", "messages", "memories", "state_entries"} {
		q := fmt.Sprintf(`DELETE FROM %s WHERE bot_id = %s`, table, s.dialect.Placeholder(1))
		if _, err := tx.ExecContext(ctx, q, botID); err != nil {
			return wrap("delete_all_bot_data", err)
		}
	}
	return wrap("delete_all_bot_data", tx.Commit())
}
