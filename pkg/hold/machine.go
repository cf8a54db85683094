// Package hold implements the Running/Held/Resumed/Terminated suspension
// state machine (spec.md §4.4): persisting an interpreter's paused position
// across requests, and validating it against the step's current content hash
// before resuming, so a bot redeploy invalidates in-flight holds rather than
// resuming into a step that no longer matches what was suspended.
package hold

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

// Machine persists and resumes hold positions for a single storage backend,
// sealing values at rest with seal (spec.md §6 "state-row values are sealed
// envelopes").
type Machine struct {
	store storage.Port
	seal  *crypto.Envelope
}

// New builds a Machine over store, sealing position values with seal. A nil
// seal behaves like a passthrough crypto.Envelope.
func New(store storage.Port, seal *crypto.Envelope) *Machine {
	if seal == nil {
		seal = crypto.New("")
	}
	return &Machine{store: store, seal: seal}
}

// Enter persists pos as the client's hold position (Running → Held). Callers
// compute pos.StepHash via StepHash over the currently-executing step before
// calling Enter.
func (m *Machine) Enter(ctx context.Context, client models.Client, pos models.HoldPosition, ttl *time.Duration) error {
	plain, err := json.Marshal(pos)
	if err != nil {
		return err
	}

	sealed, err := m.seal.Seal(plain)
	if err != nil {
		return err
	}

	rows := []storage.StateWrite{{Key: models.StateKeyHoldPosition, Value: sealed}}
	return m.store.WriteStateBatch(ctx, client, models.StateTypeHold, rows, ttl)
}

// Resume reads and deletes the client's hold position (Held → Resumed, or
// Held → dropped). It always deletes the stored row once read, per spec.md
// §4.4's "either way the position state row is deleted". The bool result
// reports whether a valid hold was found: false on no stored position, a
// corrupt entry, or a step_hash mismatch against currentStepBody — in every
// false case the caller should reset to the bot's start step.
func (m *Machine) Resume(ctx context.Context, client models.Client, currentStepBody json.RawMessage) (*models.HoldPosition, bool, error) {
	sealed, ok, err := m.store.ReadState(ctx, client, models.StateTypeHold, models.StateKeyHoldPosition)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	if err := m.store.DeleteState(ctx, client, models.StateTypeHold, models.StateKeyHoldPosition); err != nil {
		return nil, false, err
	}

	plain, err := m.seal.Open(sealed)
	if err != nil {
		slog.Warn("hold: discarding unreadable position", "client", client.Key(), "error", err)
		return nil, false, nil
	}

	var pos models.HoldPosition
	if err := json.Unmarshal(plain, &pos); err != nil {
		slog.Warn("hold: discarding malformed position", "client", client.Key(), "error", err)
		return nil, false, nil
	}

	currentHash, err := StepHash(currentStepBody)
	if err != nil {
		return nil, false, err
	}
	if currentHash != pos.StepHash {
		slog.Info("hold: step hash mismatch, dropping stale position", "client", client.Key())
		return nil, false, nil
	}

	return &pos, true, nil
}
