package botregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/convoengine/pkg/botvalidate"
	"github.com/flowkit/convoengine/pkg/crypto"
	"github.com/flowkit/convoengine/pkg/models"
	"github.com/flowkit/convoengine/pkg/storage/memory"
)

func validBot(id string) *models.Bot {
	return &models.Bot{
		ID:          id,
		Name:        id,
		DefaultFlow: "Default",
		Flows: []models.Flow{
			{ID: "Default", Steps: []models.Step{{ID: "start"}}},
		},
	}
}

func TestPutRejectsInvalidBot(t *testing.T) {
	r := New(memory.New(), crypto.New(""))
	bot := &models.Bot{ID: "bot-1", DefaultFlow: "Missing"}

	_, err := r.Put(context.Background(), bot)
	require.Error(t, err)

	var validationErrs botvalidate.Errors
	assert.True(t, errors.As(err, &validationErrs))
}

func TestPutThenGetLatestRoundTrips(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), crypto.New("secret"))
	bot := validBot("bot-1")

	versionID, err := r.Put(ctx, bot)
	require.NoError(t, err)
	assert.NotEmpty(t, versionID)

	got, rec, err := r.GetLatest(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, versionID, rec.VersionID)
	assert.Equal(t, bot.DefaultFlow, got.DefaultFlow)
	require.Len(t, got.Flows, 1)
}

func TestGetLatestReturnsLatestVersion(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), crypto.New(""))
	bot := validBot("bot-1")

	first, err := r.Put(ctx, bot)
	require.NoError(t, err)

	bot.Name = "bot-1-renamed"
	second, err := r.Put(ctx, bot)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, rec, err := r.GetLatest(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, second, rec.VersionID)
}

func TestGetLatestUnknownBotReturnsErrNotFound(t *testing.T) {
	r := New(memory.New(), crypto.New(""))
	_, _, err := r.GetLatest(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetVersionPinsExactVersion(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), crypto.New(""))
	bot := validBot("bot-1")

	versionID, err := r.Put(ctx, bot)
	require.NoError(t, err)

	got, rec, err := r.GetVersion(ctx, "bot-1", versionID)
	require.NoError(t, err)
	assert.Equal(t, versionID, rec.VersionID)
	assert.Equal(t, bot.ID, got.ID)
}

func TestListDefaultsLimitTo20(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), crypto.New(""))
	bot := validBot("bot-1")
	_, err := r.Put(ctx, bot)
	require.NoError(t, err)

	page, err := r.List(ctx, "bot-1", 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestDeleteAllBotDataRemovesVersions(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New(), crypto.New(""))
	bot := validBot("bot-1")
	_, err := r.Put(ctx, bot)
	require.NoError(t, err)

	require.NoError(t, r.DeleteAllBotData(ctx, "bot-1"))

	_, _, err = r.GetLatest(ctx, "bot-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
