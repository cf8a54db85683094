package hold

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage/memory"
)

func testClient() models.Client {
	return models.Client{BotID: "bot-1", ChannelID: "web", UserID: "user-1"}
}

func TestStepHashStableUnderKeyReordering(t *testing.T) {
	a := json.RawMessage(`{"b":1,"a":2}`)
	b := json.RawMessage(`{"a":2,"b":1}`)

	hashA, err := StepHash(a)
	require.NoError(t, err)
	hashB, err := StepHash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestStepHashDiffersOnContentChange(t *testing.T) {
	a := json.RawMessage(`{"a":1}`)
	b := json.RawMessage(`{"a":2}`)

	hashA, err := StepHash(a)
	require.NoError(t, err)
	hashB, err := StepHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestEnterThenResumeRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, crypto.New("test-secret"))
	client := testClient()
	step := json.RawMessage(`{"say":"hi"}`)

	hash, err := StepHash(step)
	require.NoError(t, err)

	pos := models.HoldPosition{
		CommandIndex: 3,
		LoopIndices:  []uint64{1},
		StepHash:     hash,
	}
	require.NoError(t, m.Enter(ctx, client, pos, nil))

	got, ok, err := m.Resume(ctx, client, step)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pos.CommandIndex, got.CommandIndex)
	assert.Equal(t, pos.LoopIndices, got.LoopIndices)

	// Row is deleted regardless of outcome.
	_, ok, err = store.ReadState(ctx, client, models.StateTypeHold, models.StateKeyHoldPosition)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResumeDropsOnStepHashMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, crypto.New(""))
	client := testClient()

	pos := models.HoldPosition{CommandIndex: 1, StepHash: "stale-hash"}
	require.NoError(t, m.Enter(ctx, client, pos, nil))

	got, ok, err := m.Resume(ctx, client, json.RawMessage(`{"say":"changed"}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestResumeWithNoStoredPositionReturnsFalse(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := New(store, crypto.New(""))

	got, ok, err := m.Resume(ctx, testClient(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestResumeDiscardsUndecryptableEntryWithoutError(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	client := testClient()

	writer := New(store, crypto.New("secret-a"))
	pos := models.HoldPosition{CommandIndex: 1, StepHash: "anything"}
	require.NoError(t, writer.Enter(ctx, client, pos, nil))

	reader := New(store, crypto.New("secret-b"))
	got, ok, err := reader.Resume(ctx, client, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
