// Package memory is the in-memory storage backend: the reference
// implementation of storage.Port used by tests, local development, and the
// CLI's default configuration (ENGINE_DB_TYPE=memory).
package memory

import (
	"sync"

	"github.com/flowkit/convoengine/pkg/models"
)

// Backend implements storage.Port entirely in process memory. It is safe
// for concurrent use; all state lives behind a single mutex since the
// reference backend favors simplicity over fine-grained locking.
type Backend struct {
	mu sync.Mutex

	conversations map[string]*models.Conversation
	messages      []*models.Message
	memories      []*models.Memory
	state         map[stateKey]*models.StateEntry
	botVersions   []*botVersionRecord
}

type stateKey struct {
	client models.Client
	typ    string
	key    string
}

type botVersionRecord struct {
	version   models.BotVersion
	flowsBlob string
}

// New constructs an empty Backend.
func New() *Backend {
	return &Backend{
		conversations: make(map[string]*models.Conversation),
		state:         make(map[stateKey]*models.StateEntry),
	}
}

// Close is a no-op for the in-memory backend.
func (b *Backend) Close() error {
	return nil
}
