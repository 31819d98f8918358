package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverrun/agentstream/pkg/config"
)

type fakeRegistry struct {
	mu       sync.Mutex
	calls    int
	maxAges  []time.Duration
	toRemove int
}

func (f *fakeRegistry) CleanupOlderThan(maxAge time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.maxAges = append(f.maxAges, maxAge)
	return f.toRemove
}

type fakeEvents struct {
	mu          sync.Mutex
	calls       int
	olderThans  []time.Duration
	deleteCount int64
	err         error
}

func (f *fakeEvents) DeleteExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.olderThans = append(f.olderThans, olderThan)
	return f.deleteCount, f.err
}

func testRetentionConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		EventTTL:        time.Hour,
		CleanupInterval: time.Hour,
	}
}

func TestRunAllSweepsRegistryAndEvents(t *testing.T) {
	reg := &fakeRegistry{toRemove: 3}
	ev := &fakeEvents{deleteCount: 5}

	svc := NewService(testRetentionConfig(), 24*time.Hour, reg, ev, nil)
	svc.runAll(context.Background())

	require.Equal(t, 1, reg.calls)
	require.Equal(t, []time.Duration{24 * time.Hour}, reg.maxAges)
	require.Equal(t, 1, ev.calls)
	require.Equal(t, []time.Duration{time.Hour}, ev.olderThans)
}

func TestRunAllSkipsEventDeletionWhenTTLDisabled(t *testing.T) {
	reg := &fakeRegistry{}
	ev := &fakeEvents{}

	cfg := testRetentionConfig()
	cfg.EventTTL = 0
	svc := NewService(cfg, time.Hour, reg, ev, nil)
	svc.runAll(context.Background())

	assert.Equal(t, 1, reg.calls)
	assert.Equal(t, 0, ev.calls)
}

func TestStartRunsImmediatelyThenOnTicker(t *testing.T) {
	reg := &fakeRegistry{}
	ev := &fakeEvents{}

	cfg := &config.RetentionConfig{EventTTL: time.Hour, CleanupInterval: 10 * time.Millisecond}
	svc := NewService(cfg, time.Hour, reg, ev, nil)

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		return reg.calls >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestStopWaitsForLoopExit(t *testing.T) {
	reg := &fakeRegistry{}
	ev := &fakeEvents{}

	cfg := &config.RetentionConfig{EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, time.Hour, reg, ev, nil)

	svc.Start(context.Background())
	svc.Stop()

	select {
	case <-svc.done:
	default:
		t.Fatal("expected done channel to be closed after Stop")
	}
}
