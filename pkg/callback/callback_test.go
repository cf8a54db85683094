package callback

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/convoengine/pkg/models"
)

func testMessage() models.OutboundMessage {
	return models.OutboundMessage{
		Payload:          json.RawMessage(`{"text":"hi"}`),
		InteractionOrder: 0,
		ConversationID:   "conv-1",
		Direction:        models.DirectionSend,
	}
}

func TestDeliverPostsJSONBody(t *testing.T) {
	var gotBody models.OutboundMessage
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := New(nil)
	err := sink.Deliver(t.Context(), server.URL, testMessage())
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "conv-1", gotBody.ConversationID)
}

func TestDeliverReturnsErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := New(nil)
	err := sink.Deliver(t.Context(), server.URL, testMessage())
	assert.Error(t, err)
}

func TestDeliverReturnsErrorOnUnreachableURL(t *testing.T) {
	sink := New(nil)
	err := sink.Deliver(t.Context(), "http://127.0.0.1:0", testMessage())
	assert.Error(t, err)
}
