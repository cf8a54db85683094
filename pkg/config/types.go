// Package config resolves process-wide configuration once at startup into an
// explicit value threaded through construction of the storage port, the
// orchestrator, and the reaper. Nothing in the hot request path re-reads the
// environment.
package config

import "time"

// DBType selects a storage backend. It is the Go analogue of the original
// engine's ENGINE_DB_TYPE environment variable.
type DBType string

// Recognized backend selectors. Mongo and Dynamo are accepted values but have
// no driver wired in this build (see storage.New and DESIGN.md).
const (
	DBTypeMemory   DBType = "memory"
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgresql"
	DBTypeMongo    DBType = "mongodb"
	DBTypeDynamo   DBType = "dynamodb"
)

// EngineConfig holds the top-level engine behavior knobs from spec.md §6.
type EngineConfig struct {
	DBType       DBType        `yaml:"db_type"`
	TTLDuration  time.Duration `yaml:"ttl_duration"`
	LowDataMode  bool          `yaml:"low_data_mode"`
	Debug        bool          `yaml:"debug"`
	CallbackHTTP CallbackConfig `yaml:"callback"`
}

// CallbackConfig tunes the best-effort delivery of interpreter messages to
// the request's callback_url (spec.md §4.7, §7: failures are logged, not
// retried).
type CallbackConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PostgresConfig configures the postgres storage backend.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// SQLiteConfig configures the sqlite storage backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Config is the umbrella configuration value returned by Load and threaded
// through every component's constructor.
type Config struct {
	Encryption EncryptionConfig
	Engine     EngineConfig
	Postgres   PostgresConfig
	SQLite     SQLiteConfig
	Retention  RetentionConfig
}

// EncryptionConfig carries the crypto envelope secret. An empty Secret means
// the envelope runs in passthrough mode (spec.md §4.1).
type EncryptionConfig struct {
	Secret string
}
