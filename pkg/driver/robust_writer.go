package driver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/events"
)

// appender is the persistence operation the robust writer retries. It is
// the pkg/eventstore Append method, narrowed so tests can substitute a
// fake.
type appender interface {
	Append(ctx context.Context, messageID, chatID string, ev events.Event) (events.Event, error)
}

// robustEventWriter wraps an appender with its own linear-backoff retry,
// distinct from pkg/eventstore's internal exponential-backoff retry: this
// is the driver's last line of defense, run after persistence's own
// retries have already been exhausted once per call. On exhaustion it
// queues the event instead of raising, and exposes flushFailed for the
// driver's terminal cleanup pass to try once more.
type robustEventWriter struct {
	store    appender
	attempts int
	delay    time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	failed []queuedEvent
}

type queuedEvent struct {
	messageID string
	chatID    string
	ev        events.Event
}

func newRobustEventWriter(store appender, cfg *config.DriverConfig, log *slog.Logger) *robustEventWriter {
	if log == nil {
		log = slog.Default()
	}
	attempts := cfg.RobustWriterRetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &robustEventWriter{
		store:    store,
		attempts: attempts,
		delay:    cfg.RobustWriterRetryDelay,
		log:      log,
	}
}

// write persists ev, retrying up to w.attempts times with flat linear
// backoff. Returns false (never an error) on exhaustion, after queuing ev
// for a later flushFailed attempt — the driver must keep running either
// way.
func (w *robustEventWriter) write(ctx context.Context, messageID, chatID string, ev events.Event) bool {
	var lastErr error
	for attempt := 0; attempt < w.attempts; attempt++ {
		_, err := w.store.Append(ctx, messageID, chatID, ev)
		if err == nil {
			return true
		}
		lastErr = err
		if attempt < w.attempts-1 {
			select {
			case <-time.After(w.delay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = w.attempts
			}
		}
	}

	w.log.Warn("driver: robust writer exhausted retries, queuing event",
		"message_id", messageID, "type", ev.Type, "error", lastErr)
	w.mu.Lock()
	w.failed = append(w.failed, queuedEvent{messageID: messageID, chatID: chatID, ev: ev})
	w.mu.Unlock()
	return false
}

// flushFailed makes one more attempt at every queued event, used from the
// driver's terminal cleanup path. Events that fail again are dropped —
// this is already the last line of defense.
func (w *robustEventWriter) flushFailed(ctx context.Context) {
	w.mu.Lock()
	pending := w.failed
	w.failed = nil
	w.mu.Unlock()

	for _, q := range pending {
		if _, err := w.store.Append(ctx, q.messageID, q.chatID, q.ev); err != nil {
			w.log.Error("driver: robust writer flush failed permanently",
				"message_id", q.messageID, "type", q.ev.Type, "error", err)
		}
	}
}
