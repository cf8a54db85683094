package config

import "time"

// Defaults returns the built-in configuration, overridden piece by piece by
// environment variables in Load and by an optional operator TOML file merged
// in by the CLI (see cmd/convoenginectl).
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			DBType:      DBTypeMemory,
			TTLDuration: 0,
			LowDataMode: false,
			Debug:       false,
			CallbackHTTP: CallbackConfig{
				Timeout: 5 * time.Second,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "convoengine.db",
		},
		Retention: *DefaultRetentionConfig(),
	}
}
