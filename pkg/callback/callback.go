// Package callback implements a best-effort HTTP delivery sink for outbound
// messages (spec.md §6, §7: callback failures are logged, never retried, and
// never fail the request that produced them).
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flowkit/convoengine/pkg/models"
)

// DefaultTimeout bounds a single callback POST so a slow or unreachable
// client endpoint can't stall request processing.
const DefaultTimeout = 5 * time.Second

// Sink posts each outbound message as a JSON body to a request's
// callback_url. It implements orchestrator.CallbackSink without importing
// pkg/orchestrator, keeping the dependency direction one-way.
type Sink struct {
	client *http.Client
}

// New builds a Sink with DefaultTimeout. Pass a *http.Client with its own
// Timeout/Transport to override it.
func New(client *http.Client) *Sink {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Sink{client: client}
}

// Deliver POSTs msg as a JSON body to callbackURL. A non-2xx response is
// reported as an error; the caller (pkg/orchestrator) logs and moves on —
// Deliver never retries.
func (s *Sink) Deliver(ctx context.Context, callbackURL string, msg models.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("callback: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("callback: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback: post to %s: %w", callbackURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback: %s returned %s", callbackURL, resp.Status)
	}
	return nil
}
