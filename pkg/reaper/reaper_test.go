package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage/memory"
)

func testClient() models.Client {
	return models.Client{BotID: "bot-1", ChannelID: "web", UserID: "u1"}
}

func TestSweepRemovesExpiredMemory(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	past := -1 * time.Hour
	require.NoError(t, store.WriteMemory(ctx, testClient(), "k", "v", &past))

	svc := New(&config.RetentionConfig{CleanupInterval: time.Hour}, store)
	svc.sweep(ctx)

	_, ok, err := store.ReadMemory(ctx, testClient(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepPreservesUnexpiredMemory(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	future := time.Hour
	require.NoError(t, store.WriteMemory(ctx, testClient(), "k", "v", &future))

	svc := New(&config.RetentionConfig{CleanupInterval: time.Hour}, store)
	svc.sweep(ctx)

	_, ok, err := store.ReadMemory(ctx, testClient(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStartStopRunsSweepLoop(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	past := -1 * time.Hour
	require.NoError(t, store.WriteMemory(ctx, testClient(), "k", "v", &past))

	svc := New(&config.RetentionConfig{CleanupInterval: time.Hour}, store)
	svc.Start(ctx)
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		_, ok, err := store.ReadMemory(context.Background(), testClient(), "k")
		return err == nil && !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStartIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := New(&config.RetentionConfig{CleanupInterval: time.Hour}, store)

	svc.Start(context.Background())
	firstCancel := svc.cancel
	svc.Start(context.Background())

	assert.NotNil(t, svc.cancel)
	svc.Stop()
	assert.NotNil(t, firstCancel)
}
