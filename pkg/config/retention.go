package config

import "time"

// RetentionConfig controls the expiry reaper (spec.md §4.8).
type RetentionConfig struct {
	// CleanupInterval is how often the reaper's own ticker loop scans for
	// expired conversations/messages/memories/state.
	CleanupInterval time.Duration `yaml:"cleanup_interval" toml:"cleanup_interval"`

	// BatchSize is loaded from configuration (default 25). The reaper does
	// not pass it to the store: DeleteExpired removes every expired row of
	// each entity in a single pass, without batching.
	BatchSize int `yaml:"batch_size" toml:"batch_size"`
}

// DefaultRetentionConfig returns the built-in reaper defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CleanupInterval: 1 * time.Hour,
		BatchSize:       25,
	}
}
