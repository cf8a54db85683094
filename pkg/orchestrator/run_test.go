package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/convoengine/pkg/botregistry"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/hold"
	"github.com/flowkit/convoengine/pkg/interpreter/mini"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage/memory"
)

func script(t *testing.T, cmds ...mini.Command) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(mini.Script{Commands: cmds})
	require.NoError(t, err)
	return body
}

func newTestOrchestrator(t *testing.T, bot *models.Bot) (*Orchestrator, *botregistry.Registry) {
	t.Helper()
	store := memory.New()
	seal := crypto.New("")
	reg := botregistry.New(store, seal)

	_, err := reg.Put(context.Background(), bot)
	require.NoError(t, err)

	o := New(Deps{
		Store:       store,
		Registry:    reg,
		Hold:        hold.New(store, seal),
		Interpreter: mini.New(),
		Seal:        seal,
	})
	return o, reg
}

func testClient() models.Client {
	return models.Client{BotID: "greeter", ChannelID: "web", UserID: "u1"}
}

func textRequest(content string) models.Request {
	return models.Request{
		RequestID: "req-1",
		Client:    testClient(),
		Payload: models.Event{
			ContentType:  models.ContentText,
			ContentValue: content,
			Content:      json.RawMessage(`{"text":"` + content + `"}`),
		},
	}
}

func TestRunSayThenEndClosesConversation(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID: "start",
				Body: script(t,
					mini.Command{Op: mini.OpSay, Text: "hi"},
					mini.Command{Op: mini.OpEnd},
				),
			}},
		}},
	}
	o, _ := newTestOrchestrator(t, bot)

	resp, err := o.Run(context.Background(), textRequest("hello"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.True(t, resp.ConversationEnd)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, models.DirectionSend, resp.Messages[0].Direction)
}

func TestRunHoldThenResumeContinuesAtSameStep(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID: "start",
				Body: script(t,
					mini.Command{Op: mini.OpSay, Text: "part one"},
					mini.Command{Op: mini.OpHold},
					mini.Command{Op: mini.OpSay, Text: "part two"},
					mini.Command{Op: mini.OpEnd},
				),
			}},
		}},
	}
	o, _ := newTestOrchestrator(t, bot)
	ctx := context.Background()

	first, err := o.Run(ctx, textRequest("hello"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.False(t, first.ConversationEnd)
	require.Len(t, first.Messages, 1)

	second, err := o.Run(ctx, textRequest("continue"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.True(t, second.ConversationEnd)
	require.Len(t, second.Messages, 1)
}

func TestRunRememberPersistsMemoryAcrossRequests(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID: "start",
				Body: script(t,
					mini.Command{Op: mini.OpRemember, Key: "name", Value: json.RawMessage(`"ada"`)},
					mini.Command{Op: mini.OpEnd},
				),
			}},
		}},
	}
	o, _ := newTestOrchestrator(t, bot)
	ctx := context.Background()

	_, err := o.Run(ctx, textRequest("hi"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)

	memories, err := o.loadMemories(ctx, testClient())
	require.NoError(t, err)
	require.Contains(t, memories, "name")
	assert.Equal(t, `"ada"`, memories["name"].String())
}

func TestRunErrorMessageClosesConversation(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID:   "start",
				Body: script(t, mini.Command{Op: "not_a_real_op"}),
			}},
		}},
	}
	o, _ := newTestOrchestrator(t, bot)

	resp, err := o.Run(context.Background(), textRequest("hi"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.True(t, resp.ConversationEnd)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, string(resp.Messages[0].Payload), "unknown op")
}

func TestRunGotoTransitionsToAnotherFlow(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{
			{
				ID: "Default",
				Steps: []models.Step{{
					ID:   "start",
					Body: script(t, mini.Command{Op: mini.OpGoto, Flow: "Next", Step: "start"}),
				}},
			},
			{
				ID: "Next",
				Steps: []models.Step{{
					ID:   "start",
					Body: script(t, mini.Command{Op: mini.OpSay, Text: "elsewhere"}, mini.Command{Op: mini.OpEnd}),
				}},
			},
		},
	}
	o, _ := newTestOrchestrator(t, bot)

	resp, err := o.Run(context.Background(), textRequest("hi"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.True(t, resp.ConversationEnd)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, 1, resp.Messages[0].InteractionOrder)
}

func TestRunLowDataModeSkipsMessagePersistenceButKeepsMemory(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID: "start",
				Body: script(t,
					mini.Command{Op: mini.OpRemember, Key: "seen", Value: json.RawMessage(`true`)},
					mini.Command{Op: mini.OpSay, Text: "hi"},
					mini.Command{Op: mini.OpEnd},
				),
			}},
		}},
	}
	o, _ := newTestOrchestrator(t, bot)
	ctx := context.Background()

	req := textRequest("hi")
	low := true
	req.Payload.LowDataMode = &low

	_, err := o.Run(ctx, req, models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)

	page, err := o.deps.Store.ListClientMessages(ctx, testClient(), 25, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	memories, err := o.loadMemories(ctx, testClient())
	require.NoError(t, err)
	assert.Contains(t, memories, "seen")
}

func TestRunUnknownContentTypeIsFormatError(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows:       []models.Flow{{ID: "Default", Steps: []models.Step{{ID: "start"}}}},
	}
	o, _ := newTestOrchestrator(t, bot)

	req := textRequest("hi")
	req.Payload.ContentType = "bogus"

	_, err := o.Run(context.Background(), req, models.BotSelector{BotID: "greeter"})
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, KindFormat, oerr.Kind)
}

// TestRunHoldInvalidatedByBotRepublish covers spec.md §8 scenario 3: after a
// hold, the bot is republished with the same flow/step id but edited start
// content, and the second event drops the stale hold and restarts at start.
func TestRunHoldInvalidatedByBotRepublish(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID: "start",
				Body: script(t,
					mini.Command{Op: mini.OpSay, Text: "before"},
					mini.Command{Op: mini.OpHold},
					mini.Command{Op: mini.OpSay, Text: "after"},
					mini.Command{Op: mini.OpEnd},
				),
			}},
		}},
	}
	o, reg := newTestOrchestrator(t, bot)
	ctx := context.Background()

	first, err := o.Run(ctx, textRequest("hello"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.False(t, first.ConversationEnd)
	require.Len(t, first.Messages, 1)
	assert.Contains(t, string(first.Messages[0].Payload), "before")

	republished := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID:   "start",
				Body: script(t, mini.Command{Op: mini.OpSay, Text: "before"}, mini.Command{Op: mini.OpEnd}),
			}},
		}},
	}
	_, err = reg.Put(ctx, republished)
	require.NoError(t, err)

	second, err := o.Run(ctx, textRequest("continue"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.True(t, second.ConversationEnd)
	require.Len(t, second.Messages, 1)
	assert.Contains(t, string(second.Messages[0].Payload), "before")
}

// TestRunFlowTriggerRoutesToNamedFlowPreservingConversation covers spec.md
// §8 scenario 4: a flow_trigger event starts the interpreter at the named
// flow/step, and any prior OPEN conversation on a different flow is
// preserved (not closed) but advanced to the new position.
func TestRunFlowTriggerRoutesToNamedFlowPreservingConversation(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{
			{
				ID: "Default",
				Steps: []models.Step{{
					ID:   "start",
					Body: script(t, mini.Command{Op: mini.OpSay, Text: "waiting"}, mini.Command{Op: mini.OpHold}),
				}},
			},
			{
				ID: "Sales",
				Steps: []models.Step{{
					ID:   "greet",
					Body: script(t, mini.Command{Op: mini.OpSay, Text: "hi from sales"}, mini.Command{Op: mini.OpEnd}),
				}},
			},
		},
	}
	o, _ := newTestOrchestrator(t, bot)
	ctx := context.Background()

	first, err := o.Run(ctx, textRequest("hello"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	assert.False(t, first.ConversationEnd)
	require.Len(t, first.Messages, 1)
	firstConvID := first.Messages[0].ConversationID

	conv, err := o.deps.Store.GetLatestOpen(ctx, testClient())
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, "Default", conv.FlowID)

	trigger := models.Request{
		RequestID: "req-2",
		Client:    testClient(),
		Payload: models.Event{
			ContentType:  models.ContentFlowTrigger,
			ContentValue: `{"flow_id":"Sales","step_id":"greet"}`,
		},
	}

	second, err := o.Run(ctx, trigger, models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	assert.Contains(t, string(second.Messages[0].Payload), "hi from sales")
	assert.Equal(t, firstConvID, second.Messages[0].ConversationID)
}

// TestRunBotSwitchClosesConversationAndReturnsSwitchBot covers spec.md §8
// scenario 5: a goto_bot to an allowed bot closes the current conversation,
// records state[bot/previous] under the client for the new bot, and
// returns a SwitchBot coordinate instead of continuing execution in-process.
func TestRunBotSwitchClosesConversationAndReturnsSwitchBot(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		AllowedSwitches: []models.BotRef{
			{ID: "other"},
		},
		Flows: []models.Flow{{
			ID: "Default",
			Steps: []models.Step{{
				ID: "start",
				Body: script(t, mini.Command{
					Op:    mini.OpGotoBot,
					BotID: "other",
					Flow:  "welcome",
					Step:  "start",
				}),
			}},
		}},
	}
	other := &models.Bot{
		ID:          "other",
		DefaultFlow: "welcome",
		Flows: []models.Flow{{
			ID: "welcome",
			Steps: []models.Step{{
				ID:   "start",
				Body: script(t, mini.Command{Op: mini.OpSay, Text: "welcome over here"}, mini.Command{Op: mini.OpEnd}),
			}},
		}},
	}

	o, reg := newTestOrchestrator(t, bot)
	ctx := context.Background()
	_, err := reg.Put(ctx, other)
	require.NoError(t, err)

	resp, err := o.Run(ctx, textRequest("switch please"), models.BotSelector{BotID: "greeter"})
	require.NoError(t, err)

	assert.True(t, resp.ConversationEnd)
	require.NotNil(t, resp.SwitchBot)
	assert.Equal(t, "other", resp.SwitchBot.BotID)
	assert.Equal(t, "welcome", resp.SwitchBot.Flow)
	assert.Equal(t, "start", resp.SwitchBot.Step)

	// The current bot's conversation is closed.
	conv, err := o.deps.Store.GetLatestOpen(ctx, testClient())
	require.NoError(t, err)
	assert.Nil(t, conv)

	// The provenance row is scoped to the client as it will appear under
	// the new bot, not the one that switched away.
	nextClient := testClient()
	nextClient.BotID = "other"
	_, found, err := o.deps.Store.ReadState(ctx, nextClient, models.StateTypeBot, models.StateKeyBotPrevious)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRunResolvesBotByVersion(t *testing.T) {
	bot := &models.Bot{
		ID:          "greeter",
		DefaultFlow: "Default",
		Flows: []models.Flow{{
			ID:    "Default",
			Steps: []models.Step{{ID: "start", Body: script(t, mini.Command{Op: mini.OpEnd})}},
		}},
	}
	o, reg := newTestOrchestrator(t, bot)

	versionID, err := reg.Put(context.Background(), bot)
	require.NoError(t, err)

	resp, err := o.Run(context.Background(), textRequest("hi"), models.BotSelector{BotID: "greeter", VersionID: versionID})
	require.NoError(t, err)
	assert.True(t, resp.ConversationEnd)
}
