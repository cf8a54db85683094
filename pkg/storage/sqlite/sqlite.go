// Package sqlite is the sqlite storage.Port backend: mattn/go-sqlite3 over
// database/sql, with golang-migrate applying the same embedded schema
// migrations as pkg/storage/postgres (the schema is written to stay
// portable across both dialects; see pkg/storage/sqlstore).
package sqlite

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver

	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/storage"
	"github.com/flowkit/convoengine/pkg/storage/sqlstore"
)

//go:embed migrations
var migrationsFS embed.FS

// Open opens (creating if necessary) the sqlite database file at cfg.Path,
// applies any pending migrations, and returns a storage.Port over it.
func Open(ctx context.Context, cfg config.SQLiteConfig) (storage.Port, error) {
	path := cfg.Path
	if path == "" {
		path = "convoengine.db"
	}

	db, err := stdsql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage/sqlite: open: %w", err)
	}

	// sqlite only supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors from the pool handing out concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/sqlite: ping: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/sqlite: migrate: %w", err)
	}

	return sqlstore.New(db, sqlstore.Dialect{Postgres: false}), nil
}

func migrateUp(db *stdsql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return sourceDriver.Close()
}
