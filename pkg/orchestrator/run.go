package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/flowkit/convoengine/pkg/botregistry"
	"github.com/flowkit/convoengine/pkg/hold"
	"github.com/flowkit/convoengine/pkg/interpreter"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage"
)

var memoryKeyRe = regexp.MustCompile(models.MemoryKeyPattern)

// maxSteps bounds the step loop within a single Run: a bot whose gotos cycle
// forever would otherwise hang a request indefinitely.
const maxSteps = 1000

// pendingMessage is one message produced during the step loop, tagged with
// the flow/step/interaction it was produced under so persistence can build
// an accurate per-interaction conversation snapshot (spec.md §4.5 step 9).
type pendingMessage struct {
	InteractionOrder int
	Flow, Step       string
	Direction        models.Direction
	ContentType      string
	Payload          []byte
}

// Run executes the ten-step request lifecycle (spec.md §4.5): resolve the
// bot, route the event, drive the interpreter collaborator through its
// message protocol, and persist the resulting conversation/messages/memories.
func (o *Orchestrator) Run(ctx context.Context, req models.Request, selector models.BotSelector) (*models.Response, error) {
	receivedAt := time.Now()

	if !validContentType(req.Payload.ContentType) {
		return nil, wrap(KindFormat, fmt.Errorf("%w: %q", ErrUnknownContentType, req.Payload.ContentType))
	}

	bot, err := o.resolveBot(ctx, selector)
	if err != nil {
		return nil, err
	}

	memories, err := o.loadMemories(ctx, req.Client)
	if err != nil {
		return nil, err
	}

	flow, step, existing, err := o.resolvePosition(ctx, req.Client, bot, req.Payload)
	if err != nil {
		return nil, err
	}

	ttl := o.resolveTTL(req.Payload.TTLDuration)
	lowDataMode := o.resolveLowDataMode(req.Payload.LowDataMode)

	conv, err := o.ensureConversation(ctx, req.Client, flow, step, existing, ttl)
	if err != nil {
		return nil, err
	}

	var pending []pendingMessage
	interactionOrder := 0

	pending = append(pending, pendingMessage{
		InteractionOrder: interactionOrder,
		Flow:             flow,
		Step:             step,
		Direction:        models.DirectionReceive,
		ContentType:      string(req.Payload.ContentType),
		Payload:          req.Payload.Content,
	})

	botFlow, ok := bot.FlowByID(flow)
	if !ok {
		return nil, wrap(KindRouting, fmt.Errorf("orchestrator: flow %q not found on bot %q", flow, bot.ID))
	}
	curStep, ok := botFlow.StepByID(step)
	if !ok {
		return nil, wrap(KindRouting, fmt.Errorf("orchestrator: step %q not found in flow %q", step, flow))
	}

	resumed, found, err := o.deps.Hold.Resume(ctx, req.Client, curStep.Body)
	if err != nil {
		return nil, wrap(KindStorage, err)
	}
	var holdPos *models.HoldPosition
	if found {
		holdPos = resumed
	}

	conversationEnd := false
	var switchBot *models.SwitchBot

stepLoop:
	for i := 0; i < maxSteps; i++ {
		ictx := interpreter.Context{
			Flow:     flow,
			Step:     step,
			Metadata: req.Metadata,
			Env:      bot.Env,
			Current:  memories,
			Hold:     holdPos,
		}
		holdPos = nil // only the first iteration can resume a hold

		ch, err := o.deps.Interpreter.StartInterpretation(ctx, bot, ictx, req.Payload)
		if err != nil {
			return nil, wrap(KindInterpreter, err)
		}

		var next *interpreter.GotoMsg
		var held *interpreter.HoldMsg
		var stepErr *interpreter.ErrorMsg

	drain:
		for msg := range ch {
			switch m := msg.(type) {
			case interpreter.RememberMsg:
				if !memoryKeyRe.MatchString(m.Key) {
					return nil, wrap(KindFormat, fmt.Errorf("%w: %q", ErrInvalidMemoryKey, m.Key))
				}
				memories[m.Key] = m.Value
				sealed, err := o.deps.Seal.Seal(m.Value.Raw())
				if err != nil {
					return nil, wrap(KindCrypto, err)
				}
				if err := o.deps.Store.WriteMemory(ctx, req.Client, m.Key, sealed, ttl); err != nil {
					return nil, wrap(KindStorage, err)
				}

			case interpreter.ForgetMsg:
				if err := o.applyForget(ctx, req.Client, memories, m); err != nil {
					return nil, err
				}

			case interpreter.MessageMsg:
				pending = append(pending, pendingMessage{
					InteractionOrder: interactionOrder,
					Flow:             flow,
					Step:             step,
					Direction:        models.DirectionSend,
					ContentType:      "payload",
					Payload:          m.Payload.Raw(),
				})

			case interpreter.LogMsg:
				logInterpreterMessage(req.Client, m)

			case interpreter.HoldMsg:
				h := m
				held = &h

			case interpreter.GotoMsg:
				g := m
				next = &g

			case interpreter.ErrorMsg:
				e := m
				stepErr = &e

			default:
				return nil, wrap(KindInterpreter, fmt.Errorf("orchestrator: unknown interpreter message %T", msg))
			}

			if held != nil || next != nil || stepErr != nil {
				break drain
			}
		}

		switch {
		case stepErr != nil:
			pending = append(pending, pendingMessage{
				InteractionOrder: interactionOrder,
				Flow:             flow,
				Step:             step,
				Direction:        models.DirectionSend,
				ContentType:      "error",
				Payload:          []byte(fmt.Sprintf("%q", stepErr.Message)),
			})
			conversationEnd = true
			if err := o.deps.Store.CloseConversation(ctx, conv.ID, req.Client); err != nil {
				return nil, wrap(KindStorage, err)
			}
			break stepLoop

		case held != nil:
			pos := models.HoldPosition{
				CommandIndex: held.CommandIndex,
				LoopIndices:  held.LoopIndices,
				StepVars:     held.StepVars,
				Previous:     held.Previous,
				Secure:       held.Secure,
			}
			pos.StepHash, err = hold.StepHash(curStep.Body)
			if err != nil {
				return nil, wrap(KindInterpreter, err)
			}
			if err := o.deps.Hold.Enter(ctx, req.Client, pos, ttl); err != nil {
				return nil, wrap(KindStorage, err)
			}
			break stepLoop

		case next != nil:
			done, sb, err := o.applyGoto(ctx, req.Client, bot, *next, &flow, &step)
			if err != nil {
				return nil, err
			}
			if sb != nil {
				if sb.Flow == "" {
					newBot, err := o.resolveBot(ctx, models.BotSelector{BotID: sb.BotID, VersionID: sb.VersionID})
					if err != nil {
						return nil, err
					}
					sb.Flow = newBot.DefaultFlow
				}
				switchBot = sb
				conversationEnd = true
				if err := o.deps.Store.CloseConversation(ctx, conv.ID, req.Client); err != nil {
					return nil, wrap(KindStorage, err)
				}
				break stepLoop
			}
			if done {
				conversationEnd = true
				if err := o.deps.Store.CloseConversation(ctx, conv.ID, req.Client); err != nil {
					return nil, wrap(KindStorage, err)
				}
				break stepLoop
			}

			interactionOrder++
			botFlow, ok = bot.FlowByID(flow)
			if !ok {
				return nil, wrap(KindRouting, fmt.Errorf("orchestrator: flow %q not found on bot %q", flow, bot.ID))
			}
			curStep, ok = botFlow.StepByID(step)
			if !ok {
				return nil, wrap(KindRouting, fmt.Errorf("orchestrator: step %q not found in flow %q", step, flow))
			}
			if err := o.updateConversationPosition(ctx, conv, flow, step); err != nil {
				return nil, err
			}

		default:
			// Channel closed with no terminal message: treat as an implicit
			// end-of-script transition, identical to Goto(nil, nil).
			conversationEnd = true
			if err := o.deps.Store.CloseConversation(ctx, conv.ID, req.Client); err != nil {
				return nil, wrap(KindStorage, err)
			}
			break stepLoop
		}
	}

	if err := o.persistMessages(ctx, conv, pending, lowDataMode); err != nil {
		return nil, err
	}

	outbound := make([]models.OutboundMessage, 0, len(pending))
	for _, p := range pending {
		if p.Direction != models.DirectionSend {
			continue
		}
		outbound = append(outbound, models.OutboundMessage{
			Payload:          json.RawMessage(p.Payload),
			InteractionOrder: p.InteractionOrder,
			ConversationID:   conv.ID,
			Direction:        p.Direction,
		})
	}

	resp := &models.Response{
		RequestID:       req.RequestID,
		ReceivedAt:      receivedAt,
		Client:          req.Client,
		ConversationEnd: conversationEnd,
		Messages:        outbound,
		SwitchBot:       switchBot,
	}

	if o.deps.Callback != nil && req.CallbackURL != "" {
		o.deliverCallbacks(ctx, req.CallbackURL, outbound)
	}

	return resp, nil
}

func validContentType(ct models.ContentType) bool {
	switch ct {
	case models.ContentText, models.ContentPayload, models.ContentImage, models.ContentAudio,
		models.ContentVideo, models.ContentFile, models.ContentURL, models.ContentRegex, models.ContentFlowTrigger:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) resolveBot(ctx context.Context, selector models.BotSelector) (*models.Bot, error) {
	switch {
	case selector.Bot != nil:
		return selector.Bot, nil
	case selector.VersionID != "":
		bot, _, err := o.deps.Registry.GetVersion(ctx, selector.BotID, selector.VersionID)
		if err != nil {
			return nil, classifyRegistryErr(err)
		}
		return bot, nil
	default:
		bot, _, err := o.deps.Registry.GetLatest(ctx, selector.BotID)
		if err != nil {
			return nil, classifyRegistryErr(err)
		}
		return bot, nil
	}
}

func classifyRegistryErr(err error) error {
	if errors.Is(err, botregistry.ErrNotFound) {
		return wrap(KindRouting, err)
	}
	return wrap(KindStorage, err)
}

func (o *Orchestrator) loadMemories(ctx context.Context, client models.Client) (map[string]models.Value, error) {
	rows, err := o.deps.Store.ReadAllMemories(ctx, client)
	if err != nil {
		return nil, wrap(KindStorage, err)
	}

	out := make(map[string]models.Value, len(rows))
	for _, row := range rows {
		plain, err := o.deps.Seal.Open(row.Value)
		if err != nil {
			return nil, wrap(KindCrypto, err)
		}
		out[row.Key] = models.NewValue(plain)
	}
	return out, nil
}

func (o *Orchestrator) resolveTTL(override *int64) *time.Duration {
	if override != nil {
		d := time.Duration(*override) * 24 * time.Hour
		return &d
	}
	if o.deps.DefaultTTL <= 0 {
		return nil
	}
	d := o.deps.DefaultTTL
	return &d
}

func (o *Orchestrator) resolveLowDataMode(override *bool) bool {
	if override != nil {
		return *override
	}
	return o.deps.DefaultLowDataMode
}

func (o *Orchestrator) applyForget(ctx context.Context, client models.Client, memories map[string]models.Value, m interpreter.ForgetMsg) error {
	switch m.Scope {
	case interpreter.ForgetAll:
		for k := range memories {
			delete(memories, k)
		}
		if err := o.deps.Store.DeleteAllMemories(ctx, client); err != nil {
			return wrap(KindStorage, err)
		}
	case interpreter.ForgetSingle, interpreter.ForgetList:
		for _, key := range m.Keys {
			delete(memories, key)
			if err := o.deps.Store.DeleteMemory(ctx, client, key); err != nil {
				return wrap(KindStorage, err)
			}
		}
	}
	return nil
}

// applyGoto resolves one Goto message. done reports a terminal transition
// (nil flow, step, and bot); sb is non-nil only on a bot switch.
func (o *Orchestrator) applyGoto(ctx context.Context, client models.Client, bot *models.Bot, g interpreter.GotoMsg, flow, step *string) (done bool, sb *models.SwitchBot, err error) {
	if g.Bot != nil {
		if !bot.AllowsSwitch(*g.Bot) {
			return false, nil, wrap(KindInterpreter, fmt.Errorf("orchestrator: bot %q does not allow switching to %q", bot.ID, g.Bot.ID))
		}

		prev := models.BotPrevious{BotID: bot.ID, Position: models.FlowPosition{Flow: *flow, Step: *step}}
		plain, merr := json.Marshal(prev)
		if merr != nil {
			return false, nil, wrap(KindFormat, merr)
		}
		sealed, serr := o.deps.Seal.Seal(plain)
		if serr != nil {
			return false, nil, wrap(KindCrypto, serr)
		}
		rows := []storage.StateWrite{{Key: models.StateKeyBotPrevious, Value: sealed}}
		// spec.md §8 scenario 5: the provenance row is keyed under the
		// client as it will appear on the next request — scoped to the
		// bot being switched to, not the one switching away.
		nextClient := client
		nextClient.BotID = g.Bot.ID
		if err := o.deps.Store.WriteStateBatch(ctx, nextClient, models.StateTypeBot, rows, nil); err != nil {
			return false, nil, wrap(KindStorage, err)
		}

		targetFlow := ""
		if g.Flow != nil {
			targetFlow = *g.Flow
		}
		targetStep := "start"
		if g.Step != nil {
			targetStep = *g.Step
		}
		*flow, *step = targetFlow, targetStep
		return false, &models.SwitchBot{BotID: g.Bot.ID, VersionID: derefStr(g.Bot.Version), Flow: targetFlow, Step: targetStep}, nil
	}

	if g.Flow == nil && g.Step == nil {
		return true, nil, nil
	}

	if g.Flow != nil {
		*flow = *g.Flow
	}
	if g.Step != nil {
		*step = *g.Step
	} else {
		*step = "start"
	}
	return false, nil, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (o *Orchestrator) updateConversationPosition(ctx context.Context, conv *models.Conversation, flow, step string) error {
	f, s := flow, step
	if err := o.deps.Store.UpdateConversation(ctx, conv.ID, &f, &s); err != nil {
		return wrap(KindStorage, err)
	}
	conv.FlowID, conv.StepID = flow, step
	return nil
}

// persistMessages writes the request's buffered messages grouped by
// interaction_order, each against a conversation snapshot carrying that
// interaction's own flow/step (spec.md §4.5 step 9). Skipped entirely under
// low_data_mode; memory persistence (handled inline above) is never gated on
// it.
func (o *Orchestrator) persistMessages(ctx context.Context, conv *models.Conversation, pending []pendingMessage, lowDataMode bool) error {
	if lowDataMode || len(pending) == 0 {
		return nil
	}

	groups := make(map[int][]pendingMessage)
	var order []int
	for _, p := range pending {
		if _, ok := groups[p.InteractionOrder]; !ok {
			order = append(order, p.InteractionOrder)
		}
		groups[p.InteractionOrder] = append(groups[p.InteractionOrder], p)
	}

	for _, interactionOrder := range order {
		group := groups[interactionOrder]
		rows := make([]storage.MessagesBulkInput, 0, len(group))
		for _, p := range group {
			sealed, err := o.deps.Seal.Seal(p.Payload)
			if err != nil {
				return wrap(KindCrypto, err)
			}
			rows = append(rows, storage.MessagesBulkInput{
				Payload:     sealed,
				ContentType: p.ContentType,
				Direction:   p.Direction,
			})
		}

		snapshot := *conv
		snapshot.FlowID, snapshot.StepID = group[0].Flow, group[0].Step
		if err := o.deps.Store.AddMessagesBulk(ctx, &snapshot, rows, interactionOrder); err != nil {
			return wrap(KindStorage, err)
		}
	}
	return nil
}

func (o *Orchestrator) deliverCallbacks(ctx context.Context, callbackURL string, outbound []models.OutboundMessage) {
	for _, msg := range outbound {
		if err := o.deps.Callback.Deliver(ctx, callbackURL, msg); err != nil {
			slog.Warn("orchestrator: callback delivery failed", "callback_url", callbackURL, "error", err)
		}
	}
}

func logInterpreterMessage(client models.Client, m interpreter.LogMsg) {
	attrs := []any{"client", client.Key(), "flow", m.Flow, "line", m.Line}
	switch m.Level {
	case "warn", "warning":
		slog.Warn(m.Message, attrs...)
	case "error":
		slog.Error(m.Message, attrs...)
	default:
		slog.Info(m.Message, attrs...)
	}
}
