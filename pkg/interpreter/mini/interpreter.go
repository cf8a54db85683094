package mini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowkit/convoengine/pkg/interpreter"
	"github.com/flowkit/convoengine/pkg/models"
)

// Interpreter is the reference interpreter.Interpreter implementation.
type Interpreter struct{}

// New returns a ready-to-use reference interpreter.
func New() *Interpreter {
	return &Interpreter{}
}

var _ interpreter.Interpreter = (*Interpreter)(nil)

// StartInterpretation locates ictx.Flow/ictx.Step in bot, decodes its Script,
// and runs it in its own goroutine, streaming Msg values over the returned
// channel until a Hold, Goto, or Error, or the script runs out of commands
// (treated as an implicit end).
func (i *Interpreter) StartInterpretation(ctx context.Context, bot *models.Bot, ictx interpreter.Context, event models.Event) (<-chan interpreter.Msg, error) {
	flow, ok := bot.FlowByID(ictx.Flow)
	if !ok {
		return nil, fmt.Errorf("mini: flow %q not found", ictx.Flow)
	}
	step, ok := flow.StepByID(ictx.Step)
	if !ok {
		return nil, fmt.Errorf("mini: step %q not found in flow %q", ictx.Step, ictx.Flow)
	}

	script, err := ParseScript(step.Body)
	if err != nil {
		return nil, fmt.Errorf("mini: decode script: %w", err)
	}

	start := 0
	if ictx.Hold != nil {
		start = int(ictx.Hold.CommandIndex)
	}

	ch := make(chan interpreter.Msg)
	logger := slog.With("flow", ictx.Flow, "step", ictx.Step)

	go i.run(ctx, ch, logger, script, start)

	return ch, nil
}

func (i *Interpreter) run(ctx context.Context, ch chan<- interpreter.Msg, logger *slog.Logger, script Script, start int) {
	defer close(ch)

	for idx := start; idx < len(script.Commands); idx++ {
		cmd := script.Commands[idx]

		msg, terminal, err := i.execute(cmd, idx)
		if err != nil {
			logger.Error("mini: command failed", "op", cmd.Op, "index", idx, "error", err)
			i.send(ctx, ch, interpreter.ErrorMsg{Message: err.Error()})
			return
		}

		if !i.send(ctx, ch, msg) {
			return
		}
		if terminal {
			return
		}
	}

	// Script exhausted without an explicit end/goto: treat as end-of-flow.
	i.send(ctx, ch, interpreter.GotoMsg{})
}

// execute maps one Command to the Msg it produces, and whether that Msg ends
// the step loop iteration (Hold, Goto, Error never have anything sent after
// them, per spec.md §4.7's ordering guarantee).
func (i *Interpreter) execute(cmd Command, index int) (interpreter.Msg, bool, error) {
	switch cmd.Op {
	case OpSay:
		payload, err := models.ValueOf(map[string]string{"text": cmd.Text})
		if err != nil {
			return nil, false, err
		}
		return interpreter.MessageMsg{Payload: payload}, false, nil

	case OpRemember:
		return interpreter.RememberMsg{Key: cmd.Key, Value: models.NewValue(cmd.Value)}, false, nil

	case OpForget:
		switch {
		case cmd.Key != "":
			return interpreter.ForgetMsg{Scope: interpreter.ForgetSingle, Keys: []string{cmd.Key}}, false, nil
		case len(cmd.Keys) > 0:
			return interpreter.ForgetMsg{Scope: interpreter.ForgetList, Keys: cmd.Keys}, false, nil
		default:
			return interpreter.ForgetMsg{Scope: interpreter.ForgetAll}, false, nil
		}

	case OpLog:
		return interpreter.LogMsg{Line: index, Message: cmd.Message, Level: cmd.Level}, false, nil

	case OpHold:
		return interpreter.HoldMsg{CommandIndex: uint64(index + 1), Secure: cmd.Secure}, true, nil

	case OpGoto:
		msg := interpreter.GotoMsg{}
		if cmd.Flow != "" {
			msg.Flow = &cmd.Flow
		}
		if cmd.Step != "" {
			msg.Step = &cmd.Step
		}
		return msg, true, nil

	case OpGotoBot:
		ref := &models.BotRef{ID: cmd.BotID, Name: cmd.BotName, Version: cmd.Version}
		msg := interpreter.GotoMsg{Bot: ref}
		if cmd.Flow != "" {
			msg.Flow = &cmd.Flow
		}
		if cmd.Step != "" {
			msg.Step = &cmd.Step
		}
		return msg, true, nil

	case OpEnd:
		return interpreter.GotoMsg{}, true, nil

	default:
		return nil, false, fmt.Errorf("unknown op %q", cmd.Op)
	}
}

// send delivers msg, respecting ctx cancellation. It returns false if ctx
// was cancelled before delivery, signaling the caller to stop producing.
func (i *Interpreter) send(ctx context.Context, ch chan<- interpreter.Msg, msg interpreter.Msg) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
