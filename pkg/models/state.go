package models

import "time"

// Well-known StateEntry (type, key) pairs (spec.md §3, §4.4, §4.5).
const (
	StateTypeHold        = "hold"
	StateKeyHoldPosition = "position"

	StateTypeBot        = "bot"
	StateKeyBotPrevious = "previous"
)

// StateEntry is a small upserted (client, type, key) -> value record used for
// hold positions and bot-switch provenance. The tuple is unique; writes
// overwrite in place.
type StateEntry struct {
	ID        string     `json:"id"`
	Client    Client     `json:"client"`
	Type      string     `json:"type"`
	Key       string     `json:"key"`
	Value     string     `json:"value"` // sealed JSON, see pkg/crypto
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HoldPosition is the logical payload of a StateTypeHold/StateKeyHoldPosition
// entry (spec.md §3 "Hold position").
type HoldPosition struct {
	CommandIndex uint64        `json:"command_index"`
	LoopIndices  []uint64      `json:"loop_indices"`
	StepVars     Value         `json:"step_vars"`
	StepHash     string        `json:"step_hash"` // hex-md5
	Previous     *FlowPosition `json:"previous,omitempty"`
	Secure       bool          `json:"secure"`
}

// FlowPosition names a (flow, step) pair, used both for HoldPosition.Previous
// and for the bot-switch provenance record.
type FlowPosition struct {
	Flow string `json:"flow"`
	Step string `json:"step"`
}

// BotPrevious is the logical payload of a StateTypeBot/StateKeyBotPrevious
// entry, recording where a switch_bot transition came from.
type BotPrevious struct {
	BotID    string       `json:"bot_id"`
	Position FlowPosition `json:"position"`
}
