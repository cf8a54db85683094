// Package interpreter defines the message protocol and collaborator contract
// between the orchestrator and the (out-of-scope) script interpreter
// (spec.md §4.7, SPEC_FULL.md §4.7). The orchestrator treats an Interpreter
// as an opaque producer of a finite, ordered Msg stream; pkg/interpreter/mini
// is a small reference implementation exercising a tiny command subset,
// enough to drive the orchestrator's end-to-end tests without the full
// script parser.
package interpreter

import (
	"context"
	"encoding/json"

	"github.com/flowkit/convoengine/pkg/models"
)

// Context is the interpreter's view of the conversation at the start of a
// step (spec.md §4.5 step 4).
type Context struct {
	Flow     string
	Step     string
	Metadata json.RawMessage
	Env      json.RawMessage
	Current  map[string]models.Value // latest memories, keyed by memory key
	Hold     *models.HoldPosition    // set only when resuming a valid hold
}

// Interpreter runs a bot's script for one step loop iteration and streams
// its decisions back over the returned channel (spec.md §5: one
// single-producer/single-consumer channel per request, no shared mutable
// state beyond it and the immutable bot snapshot). The channel is closed
// when the interpreter has nothing further to say for this iteration.
type Interpreter interface {
	StartInterpretation(ctx context.Context, bot *models.Bot, ictx Context, event models.Event) (<-chan Msg, error)
}
