package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBot() *Bot {
	return &Bot{
		ID:          "bot-1",
		Name:        "Default",
		DefaultFlow: "Default",
		Flows: []Flow{
			{
				ID:       "Default",
				Name:     "Default",
				Commands: []string{"hello"},
				Steps: []Step{
					{ID: "start", Name: "start"},
					{ID: "greet", Name: "greet"},
				},
			},
		},
		AllowedSwitches: []BotRef{{ID: "sales-bot"}},
	}
}

func TestBotFlowByID(t *testing.T) {
	bot := testBot()

	flow, ok := bot.FlowByID("default")
	require.True(t, ok)
	assert.Equal(t, "Default", flow.ID)

	_, ok = bot.FlowByID("missing")
	assert.False(t, ok)
}

func TestBotDefaultFlowRef(t *testing.T) {
	bot := testBot()
	flow, ok := bot.DefaultFlowRef()
	require.True(t, ok)
	assert.Equal(t, "Default", flow.Name)
}

func TestBotAllowsSwitch(t *testing.T) {
	bot := testBot()

	assert.True(t, bot.AllowsSwitch(BotRef{ID: "Sales-Bot"}))
	assert.False(t, bot.AllowsSwitch(BotRef{ID: "other"}))

	pinned := "v2"
	assert.False(t, bot.AllowsSwitch(BotRef{ID: "sales-bot", Version: &pinned}))
}

func TestFlowStepByID(t *testing.T) {
	bot := testBot()
	flow, _ := bot.FlowByID("Default")

	step, ok := flow.StepByID("START")
	require.True(t, ok)
	assert.Equal(t, "start", step.ID)

	_, ok = flow.StepByID("missing")
	assert.False(t, ok)
}
