package models

import "time"

// BotVersion is an immutable, content-addressed compiled bot. The newest
// version for a bot_id is the one with the greatest CreatedAt.
type BotVersion struct {
	VersionID     string    `json:"version_id"`
	BotID         string    `json:"bot_id"`
	SerializedBot string    `json:"serialized_bot"` // sealed bytes, see pkg/crypto
	EngineVersion string    `json:"engine_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// BotVersionSummary is the listing form of BotVersion: everything but the
// serialized payload, used by list_bot_versions (spec.md §4.2, §4.6).
type BotVersionSummary struct {
	VersionID     string    `json:"version_id"`
	BotID         string    `json:"bot_id"`
	EngineVersion string    `json:"engine_version"`
	CreatedAt     time.Time `json:"created_at"`
}
