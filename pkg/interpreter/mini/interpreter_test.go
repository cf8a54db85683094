package mini

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/convoengine/pkg/interpreter"
	"github.com/flowkit/convoengine/pkg/models"
)

func scriptBody(t *testing.T, commands ...Command) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(Script{Commands: commands})
	require.NoError(t, err)
	return body
}

func drain(t *testing.T, ch <-chan interpreter.Msg) []interpreter.Msg {
	t.Helper()
	var msgs []interpreter.Msg
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for interpreter messages")
		}
	}
}

func TestStartInterpretationSayThenEnd(t *testing.T) {
	bot := &models.Bot{
		ID: "bot-1",
		Flows: []models.Flow{
			{ID: "Default", Steps: []models.Step{
				{ID: "start", Body: scriptBody(t, Command{Op: OpSay, Text: "hi"}, Command{Op: OpEnd})},
			}},
		},
	}

	ch, err := New().StartInterpretation(context.Background(), bot, interpreter.Context{Flow: "Default", Step: "start"}, models.Event{})
	require.NoError(t, err)

	msgs := drain(t, ch)
	require.Len(t, msgs, 2)
	msg, ok := msgs[0].(interpreter.MessageMsg)
	require.True(t, ok)
	assert.Equal(t, "hi", msg.Payload.Get("text").String())

	gotoMsg, ok := msgs[1].(interpreter.GotoMsg)
	require.True(t, ok)
	assert.Nil(t, gotoMsg.Flow)
	assert.Nil(t, gotoMsg.Step)
	assert.Nil(t, gotoMsg.Bot)
}

func TestStartInterpretationRememberForgetThenHold(t *testing.T) {
	bot := &models.Bot{
		ID: "bot-1",
		Flows: []models.Flow{
			{ID: "Default", Steps: []models.Step{
				{ID: "start", Body: scriptBody(t,
					Command{Op: OpRemember, Key: "x", Value: json.RawMessage(`5`)},
					Command{Op: OpForget, Key: "x"},
					Command{Op: OpHold},
					Command{Op: OpSay, Text: "never reached"},
				)},
			}},
		},
	}

	ch, err := New().StartInterpretation(context.Background(), bot, interpreter.Context{Flow: "Default", Step: "start"}, models.Event{})
	require.NoError(t, err)

	msgs := drain(t, ch)
	require.Len(t, msgs, 3)

	remember, ok := msgs[0].(interpreter.RememberMsg)
	require.True(t, ok)
	assert.Equal(t, "x", remember.Key)

	forget, ok := msgs[1].(interpreter.ForgetMsg)
	require.True(t, ok)
	assert.Equal(t, interpreter.ForgetSingle, forget.Scope)
	assert.Equal(t, []string{"x"}, forget.Keys)

	hold, ok := msgs[2].(interpreter.HoldMsg)
	require.True(t, ok)
	assert.Equal(t, uint64(3), hold.CommandIndex)
}

func TestStartInterpretationResumesFromHoldPosition(t *testing.T) {
	bot := &models.Bot{
		ID: "bot-1",
		Flows: []models.Flow{
			{ID: "Default", Steps: []models.Step{
				{ID: "start", Body: scriptBody(t,
					Command{Op: OpSay, Text: "first"},
					Command{Op: OpSay, Text: "second"},
				)},
			}},
		},
	}

	ictx := interpreter.Context{Flow: "Default", Step: "start", Hold: &models.HoldPosition{CommandIndex: 1}}
	ch, err := New().StartInterpretation(context.Background(), bot, ictx, models.Event{})
	require.NoError(t, err)

	msgs := drain(t, ch)
	require.Len(t, msgs, 2)
	msg, ok := msgs[0].(interpreter.MessageMsg)
	require.True(t, ok)
	assert.Equal(t, "second", msg.Payload.Get("text").String())
}

func TestStartInterpretationGotoBot(t *testing.T) {
	bot := &models.Bot{
		ID: "bot-1",
		Flows: []models.Flow{
			{ID: "Default", Steps: []models.Step{
				{ID: "start", Body: scriptBody(t, Command{Op: OpGotoBot, BotID: "other-bot"})},
			}},
		},
	}

	ch, err := New().StartInterpretation(context.Background(), bot, interpreter.Context{Flow: "Default", Step: "start"}, models.Event{})
	require.NoError(t, err)

	msgs := drain(t, ch)
	require.Len(t, msgs, 1)
	gotoMsg, ok := msgs[0].(interpreter.GotoMsg)
	require.True(t, ok)
	require.NotNil(t, gotoMsg.Bot)
	assert.Equal(t, "other-bot", gotoMsg.Bot.ID)
}

func TestStartInterpretationUnknownOpEmitsError(t *testing.T) {
	bot := &models.Bot{
		ID: "bot-1",
		Flows: []models.Flow{
			{ID: "Default", Steps: []models.Step{
				{ID: "start", Body: scriptBody(t, Command{Op: "nonsense"})},
			}},
		},
	}

	ch, err := New().StartInterpretation(context.Background(), bot, interpreter.Context{Flow: "Default", Step: "start"}, models.Event{})
	require.NoError(t, err)

	msgs := drain(t, ch)
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(interpreter.ErrorMsg)
	assert.True(t, ok)
}

func TestStartInterpretationUnknownFlowErrors(t *testing.T) {
	bot := &models.Bot{ID: "bot-1"}
	_, err := New().StartInterpretation(context.Background(), bot, interpreter.Context{Flow: "Missing", Step: "start"}, models.Event{})
	assert.Error(t, err)
}
