// Package registry tracks background agent tasks: one goroutine per
// in-flight message, watcher accounting for fan-out streams, and the
// cancellation-shielding spawn wrapper described in SPEC_FULL.md §4.4.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AgentTask tracks a single running (or just-completed) agent.
type AgentTask struct {
	MessageID string
	ChatID    string
	StartedAt time.Time

	mu        sync.Mutex
	watchers  map[string]struct{}
	completed bool
	err       error
	cancel    context.CancelFunc
}

// Completed reports whether the task's goroutine has finished.
func (t *AgentTask) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Err returns the terminal error recorded for the task, if any.
func (t *AgentTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *AgentTask) watcherCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watchers)
}

// Registry is a process-wide map from message_id to AgentTask, guarded by a
// single coarse mutex: contention is low and every operation is an O(map
// lookup), so a finer-grained scheme would add complexity for no benefit.
type Registry struct {
	log *slog.Logger

	mu      sync.Mutex
	tasks   map[string]*AgentTask
	wg      sync.WaitGroup
	stopped bool
}

// New constructs an empty Registry.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:   log,
		tasks: make(map[string]*AgentTask),
	}
}

// StartAgent starts fn as a background agent for messageID, shielded from
// the caller's context: fn runs under context.Background() (cancellable
// only by the registry itself), so an HTTP request ending never kills the
// agent. Idempotent — a second call for the same messageID while the first
// is still running returns the existing task unchanged.
func (r *Registry) StartAgent(messageID, chatID string, fn func(ctx context.Context)) *AgentTask {
	r.mu.Lock()
	if existing, ok := r.tasks[messageID]; ok {
		r.mu.Unlock()
		r.log.Warn("registry: agent already running", "message_id", messageID)
		return existing
	}
	if r.stopped {
		r.mu.Unlock()
		r.log.Warn("registry: refusing to start agent, registry stopped", "message_id", messageID)
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	task := &AgentTask{
		MessageID: messageID,
		ChatID:    chatID,
		StartedAt: time.Now().UTC(),
		watchers:  make(map[string]struct{}),
		cancel:    cancel,
	}
	r.tasks[messageID] = task
	r.wg.Add(1)
	r.mu.Unlock()

	go r.runAgentWrapper(runCtx, task, fn)

	r.log.Info("registry: started background agent", "message_id", messageID, "chat_id", chatID)
	return task
}

// runAgentWrapper is the terminal boundary of the agent goroutine: it never
// re-panics or re-raises, and it always marks the task completed, matching
// the "finally"-equivalent semantics required by §4.4.
func (r *Registry) runAgentWrapper(ctx context.Context, task *AgentTask, fn func(ctx context.Context)) {
	defer r.wg.Done()

	var runErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("registry: agent panicked", "message_id", task.MessageID, "panic", rec)
				runErr = panicError{rec}
			}
		}()
		fn(ctx)
	}()

	task.mu.Lock()
	task.completed = true
	task.err = runErr
	task.mu.Unlock()

	if runErr != nil {
		r.log.Error("registry: agent failed", "message_id", task.MessageID, "error", runErr)
	} else {
		r.log.Info("registry: agent completed", "message_id", task.MessageID)
	}
}

type panicError struct{ v any }

func (p panicError) Error() string { return "agent panicked: " + errString(p.v) }

func errString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// IsRunning reports whether messageID is present and not yet completed.
func (r *Registry) IsRunning(messageID string) bool {
	r.mu.Lock()
	task, ok := r.tasks[messageID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return !task.Completed()
}

// GetTask returns the task tracking messageID, if any.
func (r *Registry) GetTask(messageID string) (*AgentTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[messageID]
	return task, ok
}

// RegisterWatcher adds watcherID to messageID's watcher set.
func (r *Registry) RegisterWatcher(messageID, watcherID string) {
	r.mu.Lock()
	task, ok := r.tasks[messageID]
	r.mu.Unlock()
	if !ok {
		return
	}
	task.mu.Lock()
	task.watchers[watcherID] = struct{}{}
	task.mu.Unlock()
	r.log.Debug("registry: watcher registered", "message_id", messageID, "watcher_id", watcherID)
}

// UnregisterWatcher removes watcherID from messageID's watcher set. If the
// task is completed and left with no watchers, it is removed from the
// registry — the removal is idempotent.
func (r *Registry) UnregisterWatcher(messageID, watcherID string) {
	r.mu.Lock()
	task, ok := r.tasks[messageID]
	if !ok {
		r.mu.Unlock()
		return
	}
	task.mu.Lock()
	delete(task.watchers, watcherID)
	shouldRemove := task.completed && len(task.watchers) == 0
	task.mu.Unlock()

	if shouldRemove {
		delete(r.tasks, messageID)
	}
	r.mu.Unlock()

	r.log.Debug("registry: watcher unregistered", "message_id", messageID, "watcher_id", watcherID, "removed", shouldRemove)
}

// ListRunning returns the running tasks, optionally filtered to chatID.
func (r *Registry) ListRunning(chatID string) []*AgentTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*AgentTask
	for _, task := range r.tasks {
		if task.Completed() {
			continue
		}
		if chatID != "" && task.ChatID != chatID {
			continue
		}
		out = append(out, task)
	}
	return out
}

// ActiveCount returns the number of currently running agents.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, task := range r.tasks {
		if !task.Completed() {
			count++
		}
	}
	return count
}

// CleanupOlderThan removes completed, watcher-less tasks started more than
// maxAge ago. Returns the number of tasks removed.
func (r *Registry) CleanupOlderThan(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, task := range r.tasks {
		if task.Completed() && task.watcherCount() == 0 && task.StartedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.Info("registry: swept old tasks", "removed", removed)
	}
	return removed
}

// Stop prevents further StartAgent calls and waits for all in-flight agent
// goroutines to reach their terminal state. It does not cancel them — an
// agent's lifetime is shielded even from registry shutdown except through
// each task's own cancel func, which callers may invoke via Cancel.
func (r *Registry) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Cancel requests cooperative cancellation of messageID's agent context.
// Not used by normal shutdown (see Stop); exposed for administrative abort.
func (r *Registry) Cancel(messageID string) bool {
	r.mu.Lock()
	task, ok := r.tasks[messageID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	task.cancel()
	return true
}
