package sqlstore

import (
	"database/sql"
	"time"
)

// Timestamps are stored as RFC3339Nano text rather than a native timestamp
// column type, so that the same queries and scan code work unmodified
// against both postgres and sqlite (the two dialects disagree on native
// timestamp handling through database/sql far more than they disagree on
// TEXT).
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func fromNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
