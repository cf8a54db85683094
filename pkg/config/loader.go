package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load resolves process-wide configuration from the environment, following
// spec.md §6's Configuration list. It is meant to run once, at process init;
// nothing downstream re-reads os.Getenv on the hot path (spec.md §9).
//
// A .env file in the working directory is loaded first, if present, via
// godotenv — missing files are not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := Defaults()

	cfg.Encryption.Secret = os.Getenv("ENCRYPTION_SECRET")

	if v := os.Getenv("ENGINE_DB_TYPE"); v != "" {
		cfg.Engine.DBType = DBType(v)
	}

	if v := os.Getenv("TTL_DURATION"); v != "" {
		days, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, newValidationError("TTL_DURATION", err)
		}
		cfg.Engine.TTLDuration = time.Duration(days) * 24 * time.Hour
	}

	if v := os.Getenv("LOW_DATA_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, newValidationError("LOW_DATA_MODE", err)
		}
		cfg.Engine.LowDataMode = b
	}

	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, newValidationError("DEBUG", err)
		}
		cfg.Engine.Debug = b
	}

	loadPostgresEnv(cfg)
	loadSQLiteEnv(cfg)

	if cfg.Engine.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPostgresEnv(cfg *Config) {
	if v := os.Getenv("POSTGRESQL_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRESQL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = p
		}
	}
	if v := os.Getenv("POSTGRESQL_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("POSTGRESQL_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRESQL_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRESQL_SSL_MODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
}

func loadSQLiteEnv(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
}

func validate(cfg *Config) error {
	switch cfg.Engine.DBType {
	case DBTypeMemory, DBTypeSQLite, DBTypePostgres, DBTypeMongo, DBTypeDynamo:
	default:
		return newValidationError("ENGINE_DB_TYPE", fmt.Errorf("%w: %q", ErrInvalidValue, cfg.Engine.DBType))
	}
	return nil
}

// MergeTOML reads an operator config file (TOML, per cmd/convoenginectl) and
// merges it onto cfg, preferring values present in the file over existing
// defaults. Used by the CLI to layer file-based overrides (retention
// intervals, SQLite path, ...) on top of the environment-derived Config.
//
// The file is passed through ExpandEnv before decoding, so an operator file
// can reference ${POSTGRESQL_PASSWORD}-style secrets instead of inlining
// them, the same expand-before-decode flow the teacher used for its YAML.
func MergeTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	data = ExpandEnv(data)

	var overlay Config
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
		return fmt.Errorf("config: merge %s: %w", path, err)
	}
	return nil
}
