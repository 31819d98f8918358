// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverrun/agentstream/pkg/config"
)

// registrySweeper is the subset of pkg/registry.Registry the cleanup loop
// drives.
type registrySweeper interface {
	CleanupOlderThan(maxAge time.Duration) int
}

// eventExpirer is the subset of pkg/eventstore.Store the cleanup loop
// drives.
type eventExpirer interface {
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Service periodically enforces retention policies:
//   - Sweeps completed, unwatched agent tasks out of the in-memory registry
//   - Deletes event rows past their TTL
//
// Both operations are idempotent and safe to run from multiple instances:
// the registry sweep only ever touches this process's own in-memory table,
// and the event delete is a plain bounded DELETE.
type Service struct {
	config         *config.RetentionConfig
	registryMaxAge time.Duration
	registry       registrySweeper
	events         eventExpirer
	log            *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. registryMaxAge is the threshold
// a completed, unwatched agent task must exceed before the sweep removes it
// (pkg/config.DriverConfig's RegistryMaxAge).
func NewService(cfg *config.RetentionConfig, registryMaxAge time.Duration, registry registrySweeper, events eventExpirer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{config: cfg, registryMaxAge: registryMaxAge, registry: registry, events: events, log: log}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.log.Info("cleanup service started",
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.log.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.sweepRegistry()
	s.deleteExpiredEvents(ctx)
}

func (s *Service) sweepRegistry() {
	if s.registry == nil {
		return
	}
	count := s.registry.CleanupOlderThan(s.registryMaxAge)
	if count > 0 {
		s.log.Info("retention: swept completed agent tasks", "count", count)
	}
}

func (s *Service) deleteExpiredEvents(ctx context.Context) {
	if s.events == nil || s.config.EventTTL <= 0 {
		return
	}
	count, err := s.events.DeleteExpired(ctx, s.config.EventTTL)
	if err != nil {
		s.log.Error("retention: event cleanup failed", "error", err)
		return
	}
	if count > 0 {
		s.log.Info("retention: deleted expired events", "count", count)
	}
}
