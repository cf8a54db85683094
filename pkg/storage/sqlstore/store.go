// Package sqlstore is the shared database/sql implementation of storage.Port
// behind pkg/storage/postgres and pkg/storage/sqlite. Both backends speak
// the same schema and the same query shapes; only connection setup,
// migrations, and parameter placeholder syntax differ, so that difference is
// isolated behind the small Dialect type and each backend package owns its
// own connection/migration bootstrapping.
package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/flowkit/convoengine/pkg/storage"
)

// Dialect captures the handful of ways postgres and sqlite SQL disagree that
// this package's queries need to know about.
type Dialect struct {
	// Postgres selects numbered placeholders ($1, $2, ...); false selects
	// sqlite's positional "?" placeholders.
	Postgres bool
}

// Placeholder returns the n-th (1-indexed) bind parameter marker for this
// dialect.
func (d Dialect) Placeholder(n int) string {
	if d.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Store implements storage.Port over a *sql.DB shared by both the postgres
// and sqlite backends.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an already-connected, already-migrated *sql.DB.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ storage.Port = (*Store)(nil)
