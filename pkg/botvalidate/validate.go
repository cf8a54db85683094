// Package botvalidate implements static bot validation and optional flow
// folding (spec.md §4.9), operating purely over models.Bot — it never
// invokes the real expression interpreter, since that stays out of scope
// (SPEC_FULL.md §4.9). Goto-target checks understand the one concrete step
// body format this repo ships, pkg/interpreter/mini's command list; a step
// body in any other shape is left unchecked rather than rejected, since the
// real script format is opaque to the core by design.
package botvalidate

import (
	"github.com/flowkit/convoengine/pkg/interpreter/mini"
	"github.com/flowkit/convoengine/pkg/models"
)

// Validate runs every static check against bot and returns every failure
// found (possibly none). A non-nil, empty Errors is never returned; check
// len(result) == 0 or use Validate's error-typed nil check.
func Validate(bot *models.Bot) Errors {
	var errs Errors

	if _, ok := bot.DefaultFlowRef(); !ok {
		errs = append(errs, &Error{Flow: bot.DefaultFlow, Index: -1, Message: "default flow not found"})
	}

	for _, flow := range bot.Flows {
		errs = append(errs, validateFlow(bot, flow)...)
	}

	return errs
}

func validateFlow(bot *models.Bot, flow models.Flow) Errors {
	var errs Errors

	seen := make(map[string]bool, len(flow.Steps))
	for _, step := range flow.Steps {
		if seen[step.ID] {
			errs = append(errs, &Error{Flow: flow.ID, Step: step.ID, Index: -1, Message: "duplicate step id"})
		}
		seen[step.ID] = true

		errs = append(errs, validateStep(bot, flow, step)...)
	}

	return errs
}

func validateStep(bot *models.Bot, flow models.Flow, step models.Step) Errors {
	script, err := mini.ParseScript(step.Body)
	if err != nil {
		// Not in the one concrete format this repo understands; nothing
		// further to check without the real interpreter.
		return nil
	}

	var errs Errors
	for idx, cmd := range script.Commands {
		switch cmd.Op {
		case mini.OpGoto:
			errs = append(errs, validateGotoTarget(bot, flow, step, idx, cmd)...)
		case mini.OpGotoBot:
			errs = append(errs, validateGotoBotTarget(bot, flow, step, idx, cmd)...)
		}
	}
	return errs
}

func validateGotoTarget(bot *models.Bot, flow models.Flow, step models.Step, idx int, cmd mini.Command) Errors {
	if cmd.Flow == "" && cmd.Step == "" {
		return nil // end-of-flow terminal goto, always valid
	}

	targetFlow := &flow
	if cmd.Flow != "" {
		f, ok := bot.FlowByID(cmd.Flow)
		if !ok {
			return Errors{{Flow: flow.ID, Step: step.ID, Index: idx, Message: "goto targets unknown flow " + cmd.Flow}}
		}
		targetFlow = f
	}

	if cmd.Step != "" {
		if _, ok := targetFlow.StepByID(cmd.Step); !ok {
			return Errors{{Flow: flow.ID, Step: step.ID, Index: idx, Message: "goto targets unknown step " + targetFlow.ID + "/" + cmd.Step}}
		}
	}

	return nil
}

func validateGotoBotTarget(bot *models.Bot, flow models.Flow, step models.Step, idx int, cmd mini.Command) Errors {
	target := models.BotRef{ID: cmd.BotID, Version: cmd.Version}
	if !bot.AllowsSwitch(target) {
		return Errors{{Flow: flow.ID, Step: step.ID, Index: idx, Message: "goto_bot targets a bot not in allowed_switches: " + cmd.BotID}}
	}
	return nil
}
