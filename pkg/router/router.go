// Package router resolves an inbound event to a (flow, step) pair within a
// bot (spec.md §4.3). Flow triggers name a flow explicitly; regex and text
// events match against each flow's command list; anything else is left to
// the orchestrator's fallback (the current conversation's position, or the
// bot's default flow).
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"regexp"

	"golang.org/x/text/cases"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

var fold = cases.Fold()

func foldEqual(a, b string) bool {
	return fold.String(a) == fold.String(b)
}

// DefaultStep is the conventional entry step name every flow exposes.
const DefaultStep = "start"

// Result is the router's decision.
type Result struct {
	Flow string
	Step string
}

// Route resolves event against bot for client, clearing any stale hold
// position whenever a decision is actually made (spec.md §4.3's "side
// effect" on every branch but a miss).
func Route(ctx context.Context, store storage.Port, client models.Client, bot *models.Bot, event models.Event) (Result, error) {
	switch event.ContentType {
	case models.ContentFlowTrigger:
		return routeTrigger(ctx, store, client, bot, event)
	case models.ContentRegex:
		return routeRegex(ctx, store, client, bot, event)
	default:
		return routeText(ctx, store, client, bot, event)
	}
}

func routeTrigger(ctx context.Context, store storage.Port, client models.Client, bot *models.Bot, event models.Event) (Result, error) {
	var trigger models.FlowTrigger
	if err := json.Unmarshal([]byte(event.ContentValue), &trigger); err != nil {
		return Result{}, fmt.Errorf("router: decode flow_trigger: %w", err)
	}

	if flow, ok := bot.FlowByID(trigger.FlowID); ok {
		step := trigger.StepID
		if step == "" {
			step = DefaultStep
		}
		if err := clearHold(ctx, store, client); err != nil {
			return Result{}, err
		}
		return Result{Flow: flow.ID, Step: step}, nil
	}

	flow, ok := bot.DefaultFlowRef()
	if !ok {
		return Result{}, ErrNoDefaultFlow
	}
	if err := clearHold(ctx, store, client); err != nil {
		return Result{}, err
	}
	return Result{Flow: flow.ID, Step: DefaultStep}, nil
}

func routeRegex(ctx context.Context, store storage.Port, client models.Client, bot *models.Bot, event models.Event) (Result, error) {
	pattern, err := regexp.Compile(event.ContentValue)
	if err != nil {
		return Result{}, fmt.Errorf("router: compile regex: %w", err)
	}

	var matches []models.Flow
	for _, flow := range bot.Flows {
		for _, cmd := range flow.Commands {
			if pattern.MatchString(cmd) {
				matches = append(matches, flow)
				break
			}
		}
	}
	return pickMatch(ctx, store, client, matches)
}

func routeText(ctx context.Context, store storage.Port, client models.Client, bot *models.Bot, event models.Event) (Result, error) {
	var matches []models.Flow
	for _, flow := range bot.Flows {
		for _, cmd := range flow.Commands {
			if foldEqual(cmd, event.ContentValue) {
				matches = append(matches, flow)
				break
			}
		}
	}
	return pickMatch(ctx, store, client, matches)
}

func pickMatch(ctx context.Context, store storage.Port, client models.Client, matches []models.Flow) (Result, error) {
	if len(matches) == 0 {
		return Result{}, ErrNoMatch
	}

	chosen := matches[0]
	if len(matches) > 1 {
		chosen = matches[rand.IntN(len(matches))]
	}

	if err := clearHold(ctx, store, client); err != nil {
		return Result{}, err
	}
	return Result{Flow: chosen.ID, Step: DefaultStep}, nil
}

func clearHold(ctx context.Context, store storage.Port, client models.Client) error {
	return store.DeleteState(ctx, client, models.StateTypeHold, models.StateKeyHoldPosition)
}
