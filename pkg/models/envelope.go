package models

import (
	"encoding/json"
	"time"
)

// BotSelector names which bot/version the orchestrator should run, matching
// the Inline/ByLatest/ByVersion union from spec.md §4.5. Exactly one of Bot,
// or (BotID with VersionID optional), is meaningful for a given request; the
// orchestrator resolves Inline directly and the other two through the bot
// registry.
type BotSelector struct {
	Bot       *Bot   `json:"bot,omitempty"`
	BotID     string `json:"bot_id,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}

// Request is the envelope the core consumes (spec.md §6). Transport adapters
// are responsible for producing one from whatever wire format they speak.
type Request struct {
	RequestID   string          `json:"request_id"`
	Client      Client          `json:"client"`
	CallbackURL string          `json:"callback_url,omitempty"`
	Payload     Event           `json:"payload"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// OutboundMessage is one element of Response.Messages.
type OutboundMessage struct {
	Payload          json.RawMessage `json:"payload"`
	InteractionOrder int             `json:"interaction_order"`
	ConversationID   string          `json:"conversation_id"`
	Direction        Direction       `json:"direction"`
}

// SwitchBot is populated on Response when the interpreter transitioned to a
// different bot (spec.md §4.5's bot-switch behavior).
type SwitchBot struct {
	BotID     string `json:"bot_id"`
	VersionID string `json:"version_id,omitempty"`
	Flow      string `json:"flow,omitempty"`
	Step      string `json:"step"`
}

// Response is the envelope the core returns (spec.md §6).
type Response struct {
	RequestID       string            `json:"request_id"`
	ReceivedAt      time.Time         `json:"received_at"`
	Client          Client            `json:"client"`
	ConversationEnd bool              `json:"conversation_end"`
	Messages        []OutboundMessage `json:"messages"`
	SwitchBot       *SwitchBot        `json:"switch_bot,omitempty"`
}

// Page is a generic paginated result. Cursor is opaque — produced and
// consumed only by the backend that issued it (spec.md §4.2).
type Page[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor,omitempty"`
}

// MaxPageSize is the hard clamp every storage backend applies to requested
// limits (spec.md §8 "Limit clamping").
const MaxPageSize = 25
