// Package orchestrator implements the conversation orchestrator: the ten-step
// `Run` entry point (spec.md §4.5) that resolves a bot, routes an inbound
// event, drives the interpreter collaborator through its message protocol
// (spec.md §4.7), and persists the resulting conversation/messages/memories.
package orchestrator

import (
	"context"
	"time"

	"github.com/flowkit/convoengine/pkg/botregistry"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/hold"
	"github.com/flowkit/convoengine/pkg/interpreter"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

// CallbackSink delivers one outbound message to a request's callback_url,
// best-effort (spec.md §6, §7: failures are logged, not retried).
type CallbackSink interface {
	Deliver(ctx context.Context, callbackURL string, msg models.OutboundMessage) error
}

// Deps bundles everything a request-scoped Orchestrator needs. Callback may
// be nil (callbacks are skipped entirely).
type Deps struct {
	Store       storage.Port
	Registry    *botregistry.Registry
	Hold        *hold.Machine
	Interpreter interpreter.Interpreter
	Seal        *crypto.Envelope
	Callback    CallbackSink

	// DefaultTTL and DefaultLowDataMode are the process-wide defaults
	// (config.EngineConfig); a request's Event may override either.
	DefaultTTL         time.Duration
	DefaultLowDataMode bool
}

// Orchestrator runs requests against a fixed set of Deps. One instance is
// safe to reuse across requests (spec.md §5: no cross-request locking lives
// here — that's the storage layer's job).
type Orchestrator struct {
	deps Deps
}

// New builds an Orchestrator over deps.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}
