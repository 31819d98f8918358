// Package emitter implements the per-request bounded event queue described
// in the streaming substrate's event model. One Emitter exists per running
// agent: it is the sole producer-facing surface the driver and any
// tool-instrumentation middleware write to, and the driver's drain loop is
// its sole consumer.
package emitter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riverrun/agentstream/pkg/events"
)

// DefaultCapacity is the default bounded queue size.
const DefaultCapacity = 1000

// Emitter is safe for concurrent Emit calls (multi-producer) but assumes a
// single consumer draining via GetNext, matching the MPSC contract the
// driver relies on.
type Emitter struct {
	messageID string
	chatID    string

	queue chan events.Event

	mu       sync.Mutex
	active   bool
	buffer   []events.Event
	localSeq int64

	droppedStatus int64
	startedAt     time.Time

	log *slog.Logger
}

// New constructs an Emitter with the given bounded queue capacity. Use
// DefaultCapacity when the caller has no specific reason to override it.
func New(messageID, chatID string, capacity int, log *slog.Logger) *Emitter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{
		messageID: messageID,
		chatID:    chatID,
		queue:     make(chan events.Event, capacity),
		log:       log,
	}
}

// Start marks the emitter active and records the start time used by
// EmitEnd's ms_total computation.
func (e *Emitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
	e.startedAt = time.Now()
}

// Stop marks the emitter inactive. Emit after Stop is a silent no-op: by the
// time the driver stops the emitter it has already transitioned to a
// terminal state and nothing should still be producing.
func (e *Emitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
}

// Emit enqueues a payload, stamping it with a placeholder id and timestamp.
// The persistence layer re-mints the id once it knows the real seq (see
// pkg/eventstore). Emit always appends to the in-memory buffer first; only
// the bounded queue enforces the drop policy.
//
// Returns false when the event was dropped because the queue was full. Only
// STATUS events are dropped silently (logged at Warn); any other dropped
// type is logged at Error since non-STATUS drops should not happen by
// construction.
func (e *Emitter) Emit(p events.Payload) bool {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return false
	}
	e.localSeq++
	seq := e.localSeq
	ev := events.New(p)
	ev.ID = events.MintID(time.Now(), seq)
	ev.TS = time.Now().UTC()
	e.buffer = append(e.buffer, ev)
	e.mu.Unlock()

	select {
	case e.queue <- ev:
		return true
	default:
		if ev.Type == events.TypeStatus {
			e.mu.Lock()
			e.droppedStatus++
			e.mu.Unlock()
			e.log.Warn("emitter queue full, dropping status event", "message_id", e.messageID)
			return false
		}
		e.log.Error("emitter queue full, dropping non-status event", "message_id", e.messageID, "type", ev.Type)
		return false
	}
}

// GetNext waits up to timeout for the next queued event. ok is false on
// timeout or if ctx is done first, not an error: the driver's drain loop
// treats both as "nothing more right now".
func (e *Emitter) GetNext(ctx context.Context, timeout time.Duration) (events.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-e.queue:
		return ev, true
	case <-timer.C:
		return events.Event{}, false
	case <-ctx.Done():
		return events.Event{}, false
	}
}

// Buffered returns a snapshot of every event emitted so far, in emission
// order. The buffer holds every emitted event, including those the bounded
// queue dropped.
func (e *Emitter) Buffered() []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]events.Event, len(e.buffer))
	copy(out, e.buffer)
	return out
}

// DroppedStatusCount reports how many STATUS events have been silently
// dropped since Start, for tests and observability.
func (e *Emitter) DroppedStatusCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.droppedStatus
}

// ElapsedSince returns the duration since Start was called, used to compute
// the final END event's ms_total.
func (e *Emitter) ElapsedSince() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startedAt.IsZero() {
		return 0
	}
	return time.Since(e.startedAt)
}
