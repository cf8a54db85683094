package memory

import (
	"context"
	"time"
)

// DeleteExpired removes every conversation, message, memory, and state row
// whose ExpiresAt is at or before now. The in-memory backend has no native
// TTL, so the reaper's call performs a direct scan (spec.md §4.8).
func (b *Backend) DeleteExpired(_ context.Context, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, conv := range b.conversations {
		if conv.ExpiresAt != nil && !conv.ExpiresAt.After(now) {
			delete(b.conversations, id)
		}
	}

	keptMsgs := b.messages[:0]
	for _, m := range b.messages {
		if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
			continue
		}
		keptMsgs = append(keptMsgs, m)
	}
	b.messages = keptMsgs

	keptMems := b.memories[:0]
	for _, m := range b.memories {
		if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
			continue
		}
		keptMems = append(keptMems, m)
	}
	b.memories = keptMems

	for k, entry := range b.state {
		if entry.ExpiresAt != nil && !entry.ExpiresAt.After(now) {
			delete(b.state, k)
		}
	}

	return nil
}
