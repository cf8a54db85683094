package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/router"
)

// resolvePosition implements spec.md §4.5 step 5: route the event, and on a
// miss fall back to an existing OPEN conversation's position, or the bot's
// default flow. conv is non-nil only when an existing OPEN conversation was
// found (whether or not its position ends up being the one used).
func (o *Orchestrator) resolvePosition(ctx context.Context, client models.Client, bot *models.Bot, event models.Event) (flow, step string, conv *models.Conversation, err error) {
	result, rerr := router.Route(ctx, o.deps.Store, client, bot, event)
	switch {
	case rerr == nil:
		flow, step = result.Flow, result.Step
		conv, err = o.deps.Store.GetLatestOpen(ctx, client)
		if err != nil {
			err = wrap(KindStorage, err)
			return
		}
		return

	case errors.Is(rerr, router.ErrNoMatch):
		conv, err = o.deps.Store.GetLatestOpen(ctx, client)
		if err != nil {
			err = wrap(KindStorage, err)
			return
		}
		if conv == nil {
			flow, step = bot.DefaultFlow, router.DefaultStep
			return
		}

		flow, step = conv.FlowID, conv.StepID
		if _, ok := bot.FlowByID(flow); ok {
			return
		}

		// The stored flow no longer exists in this bot version: close the
		// stale conversation and start fresh (spec.md §4.5 step 5).
		if cerr := o.deps.Store.CloseConversation(ctx, conv.ID, client); cerr != nil {
			err = wrap(KindStorage, cerr)
			return
		}
		conv = nil
		flow, step = bot.DefaultFlow, router.DefaultStep
		return

	default:
		kind := KindFormat
		if errors.Is(rerr, router.ErrNoDefaultFlow) {
			kind = KindRouting
		}
		err = wrap(kind, rerr)
		return
	}
}

// ensureConversation returns an OPEN conversation positioned at (flow, step),
// creating one if conv is nil or updating conv in place otherwise.
func (o *Orchestrator) ensureConversation(ctx context.Context, client models.Client, flow, step string, conv *models.Conversation, ttl *time.Duration) (*models.Conversation, error) {
	if conv == nil {
		id, err := o.deps.Store.CreateConversation(ctx, client, flow, step, ttl)
		if err != nil {
			return nil, wrap(KindStorage, err)
		}
		return &models.Conversation{ID: id, Client: client, FlowID: flow, StepID: step, Status: models.ConversationOpen}, nil
	}

	if conv.FlowID != flow || conv.StepID != step {
		f, s := flow, step
		if err := o.deps.Store.UpdateConversation(ctx, conv.ID, &f, &s); err != nil {
			return nil, wrap(KindStorage, err)
		}
		conv.FlowID, conv.StepID = flow, step
	}
	return conv, nil
}
