// Package reaper runs the expiry sweep (spec.md §4.8): a ticker-driven
// background loop that periodically removes conversations, messages,
// memories, and state rows past their expires_at.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/storage"
)

// Service periodically sweeps expired rows from a storage.Port. All sweeps
// are idempotent and safe to run from multiple processes against the same
// backend.
type Service struct {
	config *config.RetentionConfig
	store  storage.Port

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a reaper Service over store, using cfg for its sweep interval.
func New(cfg *config.RetentionConfig, store storage.Port) *Service {
	return &Service{config: cfg, store: store}
}

// Start launches the background sweep loop. Calling Start on an
// already-started Service is a no-op.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("reaper: started", "interval", s.config.CleanupInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("reaper: stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// RunOnce performs a single sweep without starting the background loop, for
// callers that trigger expiry cleanup on demand (e.g. a CLI reap command).
func (s *Service) RunOnce(ctx context.Context) error {
	return s.store.DeleteExpired(ctx, time.Now())
}

func (s *Service) sweep(ctx context.Context) {
	if err := s.store.DeleteExpired(ctx, time.Now()); err != nil {
		slog.Error("reaper: sweep failed", "error", err)
		return
	}
	slog.Debug("reaper: sweep complete")
}
