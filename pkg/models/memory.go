package models

import "time"

// Memory is a versioned, append-only (client, key) -> value record. The
// store keeps every write; read_memory (spec.md §4.2) returns only the one
// with the greatest CreatedAt per key. LowDataMode requests still write
// memories even though they skip message persistence.
type Memory struct {
	ID        string     `json:"id"`
	Client    Client     `json:"client"`
	Key       string     `json:"key"`
	Value     string     `json:"value"` // sealed JSON, see pkg/crypto
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MemoryKeyPattern is the validation rule from spec.md §7: a memory key must
// match [A-Za-z0-9_]{1,255}, or be pure-numeric.
const MemoryKeyPattern = `^[A-Za-z0-9_]{1,255}$`
