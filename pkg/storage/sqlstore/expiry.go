package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DeleteExpired removes rows whose expires_at is at or before now from every
// entity table (spec.md §4.8). Each table is swept independently so a
// failure on one does not block the others.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) error {
	cutoff := formatTime(now)

	var errs []error
	for _, table := range []string{"conversations", "messages", "memories", "state_entries"} {
		q := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= %s`, table, s.dialect.Placeholder(1))
		if _, err := s.db.ExecContext(ctx, q, cutoff); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
		}
	}
	return wrap("delete_expired", errors.Join(errs...))
}
