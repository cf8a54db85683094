// Package mini is a reference Interpreter implementing a tiny sequential
// command language, grounded in the scripted-step style of
// other_examples' agent-loop fixtures: enough to exercise say, remember,
// forget, hold, goto, goto-bot, and end against the orchestrator's full
// ten-step run loop, without building the real script parser (out of scope).
//
// A Step.Body is a JSON-encoded Script: a flat command list, interpreted in
// order starting from a resumed HoldPosition's CommandIndex when present.
package mini

import "encoding/json"

// Command is one instruction in a Script.
type Command struct {
	Op string `json:"op"`

	// say
	Text string `json:"text,omitempty"`

	// remember / forget
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Keys  []string        `json:"keys,omitempty"`

	// goto / goto_bot
	Flow    string  `json:"flow,omitempty"`
	Step    string  `json:"step,omitempty"`
	BotID   string  `json:"bot_id,omitempty"`
	BotName string  `json:"bot_name,omitempty"`
	Version *string `json:"version,omitempty"`

	// log
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`

	// hold
	Secure bool `json:"secure,omitempty"`
}

// Script is the decoded form of a Step.Body this interpreter understands.
type Script struct {
	Commands []Command `json:"commands"`
}

// ParseScript decodes body as a Script. An empty body is treated as an
// empty (immediately-ending) script.
func ParseScript(body json.RawMessage) (Script, error) {
	if len(body) == 0 {
		return Script{}, nil
	}
	var script Script
	if err := json.Unmarshal(body, &script); err != nil {
		return Script{}, err
	}
	return script, nil
}

const (
	OpSay      = "say"
	OpRemember = "remember"
	OpForget   = "forget"
	OpLog      = "log"
	OpHold     = "hold"
	OpGoto     = "goto"
	OpGotoBot  = "goto_bot"
	OpEnd      = "end"
)
