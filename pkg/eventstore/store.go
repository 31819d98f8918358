// Package eventstore is the durable per-message event log described by the
// streaming substrate's persistence component: atomic per-message sequence
// allocation, unique (message_id, seq) rows, and seq-based resume lookups.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/events"
)

// ErrEventNotFound is returned by operations that look up a single event.
var ErrEventNotFound = errors.New("eventstore: event not found")

// DefaultGetLimit and MaxGetLimit bound GetEvents per the spec's default of
// 1000 and practical cap of 10000.
const (
	DefaultGetLimit = 1000
	MaxGetLimit     = 10000
)

// Store is the PostgreSQL-backed implementation of the event log. A Store is
// safe for concurrent use by any number of drivers and watchers.
type Store struct {
	pool    *pgxpool.Pool
	retry   int
	baseDly time.Duration
	log     *slog.Logger

	// notify is called after every successful append, best-effort, used by
	// pkg/wake to publish a latency-cache hint. Nil until SetNotify is called.
	notify func(messageID string)
}

// New constructs a Store backed by pool, using cfg's retry/backoff knobs.
func New(pool *pgxpool.Pool, cfg *config.DriverConfig, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:    pool,
		retry:   cfg.PersistenceRetryAttempts,
		baseDly: cfg.PersistenceRetryBaseDelay,
		log:     log,
	}
}

// SetNotify registers a best-effort hook invoked with messageID after each
// successful Append. Used to wire pkg/wake without eventstore depending on
// it directly.
func (s *Store) SetNotify(fn func(messageID string)) {
	s.notify = fn
}

// Append allocates the next seq for ev's message, re-mints its id against
// that seq, and inserts it, all inside one transaction: the counter
// increment and the row insert commit together, so a failed insert can
// never strand an incremented counter against a missing row.
//
// Retries up to s.retry times with exponential backoff (s.baseDly, doubling)
// on transient failures. Returns the persisted event (with its final id,
// which embeds the allocated seq) on success.
func (s *Store) Append(ctx context.Context, messageID, chatID string, ev events.Event) (events.Event, error) {
	var (
		persisted events.Event
		lastErr   error
	)

	attempts := s.retry
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		persisted, lastErr = s.appendOnce(ctx, messageID, chatID, ev)
		if lastErr == nil {
			if attempt > 0 {
				s.log.Info("eventstore: append succeeded after retry", "message_id", messageID, "attempt", attempt+1)
			}
			if s.notify != nil {
				s.notify(messageID)
			}
			return persisted, nil
		}

		if attempt < attempts-1 {
			delay := s.baseDly << uint(attempt)
			s.log.Warn("eventstore: append failed, retrying",
				"message_id", messageID, "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return events.Event{}, ctx.Err()
			}
		}
	}

	s.log.Error("eventstore: append exhausted retries", "message_id", messageID, "attempts", attempts, "error", lastErr)
	return events.Event{}, fmt.Errorf("eventstore: append failed after %d attempts: %w", attempts, lastErr)
}

func (s *Store) appendOnce(ctx context.Context, messageID, chatID string, ev events.Event) (events.Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return events.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var nextSeq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO message_counters (message_id, next_seq)
		VALUES ($1, 1)
		ON CONFLICT (message_id) DO UPDATE SET next_seq = message_counters.next_seq + 1
		RETURNING next_seq
	`, messageID).Scan(&nextSeq)
	if err != nil {
		return events.Event{}, fmt.Errorf("allocate seq: %w", err)
	}
	seq := nextSeq - 1

	now := time.Now().UTC()
	ev.ID = events.MintID(now, seq)
	ev.TS = now

	payload, err := json.Marshal(ev)
	if err != nil {
		return events.Event{}, fmt.Errorf("marshal event: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO message_events (message_id, chat_id, seq, id, ts, type, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, messageID, chatID, seq, ev.ID, ev.TS, string(ev.Type), payload)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return events.Event{}, fmt.Errorf("commit tx: %w", err)
	}

	return ev, nil
}

// GetEvents returns events for messageID with seq greater than the seq
// embedded in sinceID, ascending by seq, capped at limit. A malformed or
// empty sinceID means "from the beginning", logged at Warn only when sinceID
// was non-empty (an empty sinceID is the normal first-connect case, not a
// malformed input).
func (s *Store) GetEvents(ctx context.Context, messageID, sinceID string, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = DefaultGetLimit
	}
	if limit > MaxGetLimit {
		limit = MaxGetLimit
	}

	sinceSeq := int64(-1)
	if sinceID != "" {
		seq, ok := events.ParseSeq(sinceID)
		if !ok {
			s.log.Warn("eventstore: malformed since_id, replaying from the beginning", "message_id", messageID, "since_id", sinceID)
		} else {
			sinceSeq = seq
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM message_events
		WHERE message_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`, messageID, sinceSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev events.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// GetEventCount returns the total number of persisted events for messageID.
func (s *Store) GetEventCount(ctx context.Context, messageID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM message_events WHERE message_id = $1`, messageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// DeleteEvents removes every persisted event (and the sequence counter) for
// messageID. Administrative; not used on any read-path.
func (s *Store) DeleteEvents(ctx context.Context, messageID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM message_events WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM message_counters WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("delete counter: %w", err)
	}
	return tx.Commit(ctx)
}

// DeleteExpired removes events older than olderThan, for the cleanup
// service's TTL sweep (§4.10). Returns the number of rows deleted.
func (s *Store) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM message_events WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired events: %w", err)
	}
	return tag.RowsAffected(), nil
}
