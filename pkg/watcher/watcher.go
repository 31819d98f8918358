// Package watcher implements one polling loop per connected SSE client:
// it reads the durable event log, dedups and pushes new events to the
// client, and terminates on an explicit END, a registry-reported
// completion, a cooperative timeout, or the caller's context being done
// (client disconnect, handled by the transport layer above this package).
package watcher

import (
	"container/list"
	"context"
	"log/slog"
	"time"

	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/events"
)

// pollBatchSize caps how many events are fetched from persistence per
// round, per §4.6.
const pollBatchSize = 100

// dedupCapacity bounds the in-memory "already delivered" id set.
const dedupCapacity = 1024

// EventSource is the subset of pkg/eventstore.Store the watcher reads.
type EventSource interface {
	GetEvents(ctx context.Context, messageID, sinceID string, limit int) ([]events.Event, error)
}

// RegistryChecker is the subset of pkg/registry.Registry the watcher
// consults advisorily.
type RegistryChecker interface {
	IsRunning(messageID string) bool
}

// WakeSource lets the watcher skip the remainder of a poll-interval sleep
// when a wake hint (§4.9) arrives for messageID. Purely a latency
// optimization: a Watcher built with a nil WakeSource still converges
// correctly on the timer alone.
type WakeSource interface {
	Subscribe(messageID string) (ch <-chan struct{}, unsubscribe func())
}

// Watcher drives the poll loop for one connected client.
type Watcher struct {
	events   EventSource
	registry RegistryChecker
	wake     WakeSource
	cfg      *config.DriverConfig
	log      *slog.Logger
}

// New constructs a Watcher. wake may be nil.
func New(events EventSource, registry RegistryChecker, wake WakeSource, cfg *config.DriverConfig, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{events: events, registry: registry, wake: wake, cfg: cfg, log: log}
}

// Push delivers one event to the connected client. A non-nil error is
// treated as the transport having failed (broken pipe, etc.); Watch
// returns it immediately.
type Push func(ctx context.Context, ev events.Event) error

// Watch runs the poll loop for messageID starting after sinceID (empty
// means "from the beginning"), until a terminal condition or ctx is done.
func (w *Watcher) Watch(ctx context.Context, messageID, sinceID string, push Push) error {
	log := w.log.With("message_id", messageID)

	var wakeCh <-chan struct{}
	if w.wake != nil {
		var unsubscribe func()
		wakeCh, unsubscribe = w.wake.Subscribe(messageID)
		defer unsubscribe()
	}

	maxWait := w.cfg.WatcherMaxWait
	if maxWait <= 0 {
		maxWait = time.Hour
	}
	deadline := time.Now().Add(maxWait)

	seen := newDedupSet(dedupCapacity)
	delivered := 0
	cursor := sinceID

	for {
		if time.Now().After(deadline) {
			log.Warn("watcher: max wait exceeded, closing stream")
			return nil
		}

		running := w.registry.IsRunning(messageID)

		batch, err := w.events.GetEvents(ctx, messageID, cursor, pollBatchSize)
		if err != nil {
			return err
		}

		terminal := false
		for _, ev := range batch {
			if seen.contains(ev.ID) {
				continue
			}
			seen.add(ev.ID)
			cursor = ev.ID
			delivered++

			if err := push(ctx, ev); err != nil {
				return err
			}
			if ev.Type == events.TypeEnd {
				terminal = true
			}
		}

		if terminal {
			w.finalDrain(ctx, messageID, &cursor, seen, push)
			return nil
		}

		if !running && delivered > 0 {
			w.finalDrain(ctx, messageID, &cursor, seen, push)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.WatcherPollInterval):
		case <-wakeOrNever(wakeCh):
		}
	}
}

// finalDrain does one more fetch-and-push pass to catch any tail events
// written after the registry flipped to not-running or after the terminal
// event was observed, per §4.6 steps 4-5.
func (w *Watcher) finalDrain(ctx context.Context, messageID string, cursor *string, seen *dedupSet, push Push) {
	batch, err := w.events.GetEvents(ctx, messageID, *cursor, pollBatchSize)
	if err != nil {
		w.log.Warn("watcher: final drain fetch failed", "message_id", messageID, "error", err)
		return
	}
	for _, ev := range batch {
		if seen.contains(ev.ID) {
			continue
		}
		seen.add(ev.ID)
		*cursor = ev.ID
		if err := push(ctx, ev); err != nil {
			return
		}
	}
}

func wakeOrNever(ch <-chan struct{}) <-chan struct{} {
	if ch != nil {
		return ch
	}
	return nil
}

// dedupSet is a bounded FIFO set of delivered event ids.
type dedupSet struct {
	capacity int
	members  map[string]*list.Element
	order    *list.List
}

func newDedupSet(capacity int) *dedupSet {
	return &dedupSet{capacity: capacity, members: make(map[string]*list.Element), order: list.New()}
}

func (d *dedupSet) contains(id string) bool {
	_, ok := d.members[id]
	return ok
}

func (d *dedupSet) add(id string) {
	if d.contains(id) {
		return
	}
	el := d.order.PushBack(id)
	d.members[id] = el
	if d.order.Len() > d.capacity {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.members, oldest.Value.(string))
	}
}
