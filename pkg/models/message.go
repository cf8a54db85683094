package models

import "time"

// Direction distinguishes the two sides of a conversation's message log.
type Direction string

const (
	DirectionSend    Direction = "SEND"
	DirectionReceive Direction = "RECEIVE"
)

// Message is one line of a conversation's transcript. Replay order within a
// conversation is (InteractionOrder ASC, MessageOrder ASC): InteractionOrder
// increments on each flow transition inside a request, MessageOrder
// increments within a single interaction.
type Message struct {
	ID               string     `json:"id"`
	ConversationID   string     `json:"conversation_id"`
	Client           Client     `json:"client"`
	FlowID           string     `json:"flow_id"`
	StepID           string     `json:"step_id"`
	InteractionOrder int        `json:"interaction_order"`
	MessageOrder     int        `json:"message_order"`
	Direction        Direction  `json:"direction"`
	ContentType      string     `json:"content_type"`
	Payload          string     `json:"payload"` // sealed JSON, see pkg/crypto
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}
