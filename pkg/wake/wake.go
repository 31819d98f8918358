// Package wake provides the optional Redis pub/sub wake hint (§4.9): a pure
// latency optimization that lets a watcher skip the remainder of its poll
// interval when an event is appended for the message it is watching. No
// correctness property depends on this package — every Watcher also polls
// on a fixed interval and converges on its own if Redis is slow, partitioned,
// or never configured at all.
package wake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/riverrun/agentstream/pkg/config"
)

const channelPrefix = "agentstream:wake:"

// Hub publishes and subscribes to per-message wake channels over Redis
// pub/sub. A nil *Hub is valid and behaves as fully disabled: Publish is a
// no-op and Subscribe returns a nil channel, which callers treat as "no wake
// hint available" (pkg/watcher falls back to pure polling).
type Hub struct {
	client *redis.Client
	log    *slog.Logger
}

// New constructs a Hub from cfg. If cfg is disabled (no Addr configured) it
// returns (nil, nil): callers should treat a nil *Hub as present-but-inert,
// not as an error.
func New(cfg *config.WakeConfig, log *slog.Logger) (*Hub, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Hub{client: client, log: log}, nil
}

// Ping verifies connectivity at startup. Safe to call on a nil Hub.
func (h *Hub) Ping(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection. Safe to call on a nil Hub.
func (h *Hub) Close() error {
	if h == nil {
		return nil
	}
	return h.client.Close()
}

// Publish notifies any subscriber waiting on messageID that a new event was
// appended. Best-effort: a publish failure is logged, never returned, since
// the driver must never block or fail on the wake hint's account. Safe to
// call on a nil Hub (becomes a no-op). Its signature differs from
// pkg/eventstore's SetNotify hook, so callers wrap it in a func(string).
func (h *Hub) Publish(ctx context.Context, messageID string) {
	if h == nil {
		return
	}
	if err := h.client.Publish(ctx, channelName(messageID), "1").Err(); err != nil {
		h.log.Warn("wake: publish failed", "message_id", messageID, "error", err)
	}
}

// Subscribe returns a channel that receives one signal per wake for
// messageID, and an unsubscribe func the caller must call exactly once when
// done. Satisfies pkg/watcher.WakeSource. Safe to call on a nil Hub, which
// returns (nil, func(){}) — the watcher's select treats a nil channel as
// "never fires", so this degrades to pure polling.
func (h *Hub) Subscribe(messageID string) (<-chan struct{}, func()) {
	if h == nil {
		return nil, func() {}
	}

	pubsub := h.client.Subscribe(context.Background(), channelName(messageID))
	signal := make(chan struct{}, 1)

	var once sync.Once
	done := make(chan struct{})

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case signal <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	unsubscribe := func() {
		once.Do(func() { close(done) })
		if err := pubsub.Close(); err != nil {
			h.log.Warn("wake: unsubscribe failed", "message_id", messageID, "error", err)
		}
	}
	return signal, unsubscribe
}

func channelName(messageID string) string {
	return fmt.Sprintf("%s%s", channelPrefix, messageID)
}
