package interpreter

import "github.com/flowkit/convoengine/pkg/models"

// Msg is one message in the ordered stream an Interpreter emits over its
// channel (spec.md §4.7). Messages observed by the orchestrator occur in the
// production order; the interpreter must not send anything further after a
// Goto, Hold, or Error.
type Msg interface {
	isMsg()
}

// ForgetScope selects how much of a client's memory a Forget message clears.
type ForgetScope string

const (
	ForgetAll    ForgetScope = "all"
	ForgetSingle ForgetScope = "single"
	ForgetList   ForgetScope = "list"
)

// RememberMsg sets a memory key (spec.md §4.7 Remember).
type RememberMsg struct {
	Key   string
	Value models.Value
}

// ForgetMsg drops one, several, or all memory keys (spec.md §4.7 Forget).
type ForgetMsg struct {
	Scope ForgetScope
	Keys  []string // unused when Scope is ForgetAll
}

// MessageMsg is an end-user-facing output message (spec.md §4.7 Message).
type MessageMsg struct {
	Payload models.Value
}

// LogMsg is a diagnostic emitted via the host logger (spec.md §4.7 Log).
type LogMsg struct {
	Flow    string
	Line    int
	Message string
	Level   string
}

// HoldMsg suspends the interpretation (spec.md §4.4, §4.7 Hold).
type HoldMsg struct {
	CommandIndex uint64
	LoopIndices  []uint64
	StepVars     models.Value
	Previous     *models.FlowPosition
	Secure       bool
}

// GotoMsg transitions to another step, flow, or bot (spec.md §4.5 step 8,
// §4.7 Goto). A nil Flow/Step/Bot means "stay", consistent with
// `Goto(None, None)` signaling an end-of-flow terminal transition when all
// three are nil.
type GotoMsg struct {
	Flow *string
	Step *string
	Bot  *models.BotRef
}

// ErrorMsg is a fatal interpreter error (spec.md §4.7 Error): the
// orchestrator pushes it as an outbound message and closes the conversation.
type ErrorMsg struct {
	Message string
}

func (RememberMsg) isMsg() {}
func (ForgetMsg) isMsg()   {}
func (MessageMsg) isMsg()  {}
func (LogMsg) isMsg()      {}
func (HoldMsg) isMsg()     {}
func (GotoMsg) isMsg()     {}
func (ErrorMsg) isMsg()    {}
