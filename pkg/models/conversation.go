package models

import "time"

// ConversationStatus is the lifecycle state of a Conversation (spec.md §3).
type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "OPEN"
	ConversationClosed ConversationStatus = "CLOSED"
)

// Conversation tracks a client's position in a bot's flows across requests.
// At most one OPEN conversation exists per client at a time; the OPEN→CLOSED
// transition is terminal.
type Conversation struct {
	ID                string             `json:"id"`
	Client            Client             `json:"client"`
	FlowID            string             `json:"flow_id"`
	StepID            string             `json:"step_id"`
	Status            ConversationStatus `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	LastInteractionAt time.Time          `json:"last_interaction_at"`
	ExpiresAt         *time.Time         `json:"expires_at,omitempty"`
}

// IsOpen reports whether the conversation can still receive steps.
func (c *Conversation) IsOpen() bool {
	return c.Status == ConversationOpen
}
