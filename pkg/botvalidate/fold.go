package botvalidate

import (
	"encoding/json"
	"fmt"

	"github.com/flowkit/convoengine/pkg/interpreter/mini"
	"github.com/flowkit/convoengine/pkg/models"
)

// foldedFlowID is the single synthetic flow Fold produces.
const foldedFlowID = "_folded"

// Fold rewrites bot into an equivalent bot with every flow merged into one
// synthetic flow: step names become globally unique as "{flow}_{step}",
// intra-bot goto targets are rewritten to match, and the default flow's
// "start" step keeps its name (spec.md §4.9). goto_bot commands are left
// untouched — they name another bot entirely and fold has no bearing on
// cross-bot transitions.
func Fold(bot *models.Bot) (*models.Bot, error) {
	names := foldedStepNames(bot)

	folded := &models.Flow{ID: foldedFlowID, Name: foldedFlowID}
	for _, flow := range bot.Flows {
		for _, step := range flow.Steps {
			newBody, err := rewriteStepBody(bot, flow, step.Body, names)
			if err != nil {
				return nil, fmt.Errorf("botvalidate: fold %s/%s: %w", flow.ID, step.ID, err)
			}
			folded.Steps = append(folded.Steps, models.Step{
				ID:   names[flowStep{flow.ID, step.ID}],
				Name: step.Name,
				Body: newBody,
			})
		}
	}

	return &models.Bot{
		ID:              bot.ID,
		Name:            bot.Name,
		DefaultFlow:     foldedFlowID,
		Flows:           []models.Flow{*folded},
		AllowedSwitches: bot.AllowedSwitches,
		Env:             bot.Env,
	}, nil
}

type flowStep struct {
	flow string
	step string
}

// foldedStepNames maps every (flow, step) pair to its post-fold step id. The
// default flow's "start" step keeps its name; everything else becomes
// "{flow}_{step}".
func foldedStepNames(bot *models.Bot) map[flowStep]string {
	names := make(map[flowStep]string)
	for _, flow := range bot.Flows {
		for _, step := range flow.Steps {
			key := flowStep{flow.ID, step.ID}
			if flow.ID == bot.DefaultFlow && step.ID == "start" {
				names[key] = "start"
				continue
			}
			names[key] = fmt.Sprintf("%s_%s", flow.ID, step.ID)
		}
	}
	return names
}

func rewriteStepBody(bot *models.Bot, flow models.Flow, body json.RawMessage, names map[flowStep]string) (json.RawMessage, error) {
	script, err := mini.ParseScript(body)
	if err != nil {
		// Not this repo's concrete format; pass the body through unchanged.
		return body, nil
	}

	for i, cmd := range script.Commands {
		if cmd.Op != mini.OpGoto {
			continue
		}
		if cmd.Flow == "" && cmd.Step == "" {
			continue // terminal goto, nothing to rewrite
		}

		targetFlowID := flow.ID
		if cmd.Flow != "" {
			if target, ok := bot.FlowByID(cmd.Flow); ok {
				targetFlowID = target.ID
			}
		}
		targetStepID := cmd.Step
		if targetStepID == "" {
			targetStepID = "start"
		}

		if newName, ok := names[flowStep{targetFlowID, targetStepID}]; ok {
			script.Commands[i].Flow = ""
			script.Commands[i].Step = newName
		}
	}

	return json.Marshal(script)
}
