// Package postgres is the postgres storage.Port backend: pgx/v5 over
// database/sql with golang-migrate-applied, embedded schema migrations.
// Adapted from the teacher's pkg/database/client.go connection-pooling and
// migration-on-startup pattern, with the ent-specific driver wrapping
// removed (see DESIGN.md).
package postgres

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/storage"
	"github.com/flowkit/convoengine/pkg/storage/sqlstore"
)

//go:embed migrations
var migrationsFS embed.FS

// Backend wraps the shared sqlstore.Store and exposes the underlying
// *sql.DB for health checks, mirroring the teacher's Client/DB() pattern.
type Backend struct {
	*sqlstore.Store
	db *stdsql.DB
}

// DB returns the underlying connection pool for health checks.
func (b *Backend) DB() *stdsql.DB {
	return b.db
}

// Open connects to postgres per cfg, applies any pending migrations, and
// returns a storage.Port backed by the connection.
func Open(ctx context.Context, cfg config.PostgresConfig) (storage.Port, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/postgres: ping: %w", err)
	}

	if err := migrateUp(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/postgres: migrate: %w", err)
	}

	return &Backend{Store: sqlstore.New(db, sqlstore.Dialect{Postgres: true}), db: db}, nil
}

func migrateUp(db *stdsql.DB, databaseName string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Only the source driver is closed here; closing the migrate instance
	// would also close db via the shared *sql.DB passed to WithInstance.
	return sourceDriver.Close()
}
