// Package models defines the pure data types of the session model (spec.md
// §3): Client, Event, Conversation, Message, Memory, StateEntry, BotVersion,
// and the bot/flow shape the router, hold state machine, and validator work
// against. Nothing in this package touches storage or the network; it is the
// vocabulary every other package shares.
package models

// Client identifies a conversational endpoint. It is immutable for the
// lifetime of a request and used as the partition key for every
// client-scoped row (conversations, messages, memories, state).
type Client struct {
	BotID     string `json:"bot_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// Key returns a stable string form suitable for map keys and log fields.
func (c Client) Key() string {
	return c.BotID + "/" + c.ChannelID + "/" + c.UserID
}
