package watcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/events"
	"github.com/riverrun/agentstream/pkg/watcher"
)

type fakeEvents struct {
	mu   sync.Mutex
	rows []events.Event
}

func (f *fakeEvents) append(id string, typ events.Type, p events.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, events.Event{ID: id, Type: typ, Payload: p})
}

func (f *fakeEvents) GetEvents(_ context.Context, _ string, sinceID string, limit int) ([]events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := 0
	if sinceID != "" {
		for i, ev := range f.rows {
			if ev.ID == sinceID {
				start = i + 1
				break
			}
		}
	}
	end := len(f.rows)
	if end-start > limit {
		end = start + limit
	}
	if start >= end {
		return nil, nil
	}
	out := make([]events.Event, end-start)
	copy(out, f.rows[start:end])
	return out, nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	running bool
}

func (f *fakeRegistry) IsRunning(string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeRegistry) setRunning(v bool) {
	f.mu.Lock()
	f.running = v
	f.mu.Unlock()
}

func testConfig() *config.DriverConfig {
	cfg := config.DefaultDriverConfig()
	cfg.WatcherPollInterval = 5 * time.Millisecond
	cfg.WatcherMaxWait = time.Second
	return cfg
}

func TestWatchStopsOnEndEvent(t *testing.T) {
	src := &fakeEvents{}
	src.append("id-1", events.TypeStart, events.Start{})
	src.append("id-2", events.TypeEnd, events.End{Status: events.EndCompleted})
	reg := &fakeRegistry{running: true}

	w := watcher.New(src, reg, nil, testConfig(), nil)

	var delivered []string
	err := w.Watch(context.Background(), "msg-1", "", func(_ context.Context, ev events.Event) error {
		delivered = append(delivered, ev.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"id-1", "id-2"}, delivered)
}

func TestWatchStopsWhenRegistryReportsDone(t *testing.T) {
	src := &fakeEvents{}
	src.append("id-1", events.TypeStatus, events.Status{Text: "tick"})
	reg := &fakeRegistry{running: false}

	w := watcher.New(src, reg, nil, testConfig(), nil)

	var delivered []string
	err := w.Watch(context.Background(), "msg-2", "", func(_ context.Context, ev events.Event) error {
		delivered = append(delivered, ev.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"id-1"}, delivered)
}

func TestWatchResumesFromSinceID(t *testing.T) {
	src := &fakeEvents{}
	src.append("id-1", events.TypeStatus, events.Status{Text: "a"})
	src.append("id-2", events.TypeEnd, events.End{Status: events.EndCompleted})
	reg := &fakeRegistry{running: true}

	w := watcher.New(src, reg, nil, testConfig(), nil)

	var delivered []string
	err := w.Watch(context.Background(), "msg-3", "id-1", func(_ context.Context, ev events.Event) error {
		delivered = append(delivered, ev.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"id-2"}, delivered)
}

func TestWatchStopsOnContextCancellation(t *testing.T) {
	src := &fakeEvents{}
	reg := &fakeRegistry{running: true}
	w := watcher.New(src, reg, nil, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := w.Watch(ctx, "msg-4", "", func(_ context.Context, _ events.Event) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWatchPropagatesPushError(t *testing.T) {
	src := &fakeEvents{}
	src.append("id-1", events.TypeStatus, events.Status{Text: "a"})
	reg := &fakeRegistry{running: true}
	w := watcher.New(src, reg, nil, testConfig(), nil)

	boom := require.New(t)
	err := w.Watch(context.Background(), "msg-5", "", func(_ context.Context, _ events.Event) error {
		return errBroken
	})
	boom.ErrorIs(err, errBroken)
}

var errBroken = &brokenPipeError{}

type brokenPipeError struct{}

func (*brokenPipeError) Error() string { return "broken pipe" }
