package models

import (
	"encoding/json"
	"strings"
)

// Bot is a compiled package of flows plus metadata: the shape the router,
// the hold state machine, and the validator operate on (SPEC_FULL.md §3.1,
// recovered from the interpreter's csml_bot since the AST interpreter itself
// is out of scope here).
type Bot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	DefaultFlow     string          `json:"default_flow"`
	Flows           []Flow          `json:"flows"`
	AllowedSwitches []BotRef        `json:"allowed_switches,omitempty"`
	Env             json.RawMessage `json:"env,omitempty"`
}

// FlowByID returns the flow with the given id or name, matched
// case-insensitively, and whether it was found.
func (b *Bot) FlowByID(id string) (*Flow, bool) {
	for i := range b.Flows {
		if strings.EqualFold(b.Flows[i].ID, id) || strings.EqualFold(b.Flows[i].Name, id) {
			return &b.Flows[i], true
		}
	}
	return nil, false
}

// DefaultFlowRef returns the bot's default flow, which must exist for a
// validated bot.
func (b *Bot) DefaultFlowRef() (*Flow, bool) {
	return b.FlowByID(b.DefaultFlow)
}

// AllowsSwitch reports whether target is present in AllowedSwitches,
// matching by id (and version, when target specifies one).
func (b *Bot) AllowsSwitch(target BotRef) bool {
	for _, ref := range b.AllowedSwitches {
		if !strings.EqualFold(ref.ID, target.ID) {
			continue
		}
		if target.Version != nil && (ref.Version == nil || *ref.Version != *target.Version) {
			continue
		}
		return true
	}
	return false
}

// Flow is a named sequence of steps plus the command list the router
// consults for text/regex matching (spec.md §4.3).
type Flow struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Commands []string `json:"commands,omitempty"`
	Steps    []Step   `json:"steps"`
}

// StepByID returns the step with the given id or name, matched
// case-insensitively.
func (f *Flow) StepByID(id string) (*Step, bool) {
	for i := range f.Steps {
		if strings.EqualFold(f.Steps[i].ID, id) || strings.EqualFold(f.Steps[i].Name, id) {
			return &f.Steps[i], true
		}
	}
	return nil, false
}

// Step is the atomic unit of interpreter execution. Body is opaque here:
// the core only hashes it (step_hash, spec.md §3) and hands it to the
// Interpreter collaborator; it never interprets the AST itself.
type Step struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Body json.RawMessage `json:"body"`
}

// BotRef names a bot, optionally pinned to a version, used both for
// AllowedSwitches entries and for switch_bot targets (spec.md §4.5).
type BotRef struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Version *string `json:"version,omitempty"`
}

