// Package driver runs one agent turn end to end: it drives an
// agentgraph.Graph, drains the bound emitter, persists every event through
// a retrying writer, and mutates the message record at the well-defined
// state transitions Start → Running → {Interrupted, Completed, Failed}.
//
// A Driver's Run method is the function the registry spawns: it is the
// cancellation-shielded entry point, so Run's ctx is always
// context.Background()-derived, never an HTTP request's context.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverrun/agentstream/pkg/agentgraph"
	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/emitter"
	"github.com/riverrun/agentstream/pkg/events"
	"github.com/riverrun/agentstream/pkg/eventstore"
	"github.com/riverrun/agentstream/pkg/messagestore"
)

// Driver runs agent turns against graph, persisting through events and
// mutating message through messages.
type Driver struct {
	events   *eventstore.Store
	messages *messagestore.Store
	graph    agentgraph.Graph
	scope    ScopeChecker
	cfg      *config.DriverConfig
	log      *slog.Logger
}

// New constructs a Driver. scope may be nil, in which case tender-scope
// enforcement is disabled (NoopScopeChecker).
func New(store *eventstore.Store, messages *messagestore.Store, graph agentgraph.Graph, scope ScopeChecker, cfg *config.DriverConfig, log *slog.Logger) *Driver {
	if scope == nil {
		scope = NoopScopeChecker{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Driver{events: store, messages: messages, graph: graph, scope: scope, cfg: cfg, log: log}
}

// Input is one agent turn's parameters, matching §4.5's inputs.
type Input struct {
	ChatID    string
	MessageID string
	Query     string
	TenderID  string
}

// Run executes one full agent turn. It never returns an error: every
// failure path is reflected in the event log and the message record
// instead, per §7's propagation policy — anything after spawning is
// recorded, not raised.
func (d *Driver) Run(ctx context.Context, in Input) {
	log := d.log.With("message_id", in.MessageID, "chat_id", in.ChatID)

	em := emitter.New(in.MessageID, in.ChatID, d.cfg.EmitterQueueCapacity, log)
	em.Start()
	defer em.Stop()
	ctx = emitter.WithEmitter(ctx, em)

	writer := newRobustEventWriter(d.events, d.cfg, log)
	defer writer.flushFailed(context.Background())

	if err := d.messages.SetStatus(ctx, in.MessageID, messagestore.StatusProcessing); err != nil {
		log.Error("driver: failed to mark message processing", "error", err)
	}
	writer.write(ctx, in.MessageID, in.ChatID, events.New(events.Start{}))

	if err := d.scope.Check(in.ChatID, in.TenderID); err != nil {
		log.Warn("driver: scope violation", "error", err)
		d.fail(ctx, in, em, writer, err.Error(), 0)
		return
	}

	d.runRunning(ctx, in, em, writer)
}

// runRunning drives the agent graph's step stream, implementing the
// Running state (§4.5 step 3) through to one of Interrupted/Completed/
// Failed.
func (d *Driver) runRunning(ctx context.Context, in Input, em *emitter.Emitter, writer *robustEventWriter) {
	stream, err := d.graph.Run(ctx, agentgraph.Input{
		ChatID: in.ChatID, MessageID: in.MessageID, Query: in.Query, TenderID: in.TenderID,
	})
	if err != nil {
		d.fail(ctx, in, em, writer, err.Error(), 0)
		return
	}
	defer stream.Close()

	started := time.Now()
	lastEmit := started
	toolCalls := 0
	seenMessages := make(map[string]struct{})

	drain := func() {
		for {
			ev, ok := em.GetNext(ctx, 10*time.Millisecond)
			if !ok {
				return
			}
			writer.write(ctx, in.MessageID, in.ChatID, ev)
			if ev.Type == events.TypeToolEnd {
				toolCalls++
			}
			lastEmit = time.Now()
		}
	}

	for {
		step, more, err := stream.Next(ctx)
		if err != nil {
			drain()
			d.fail(ctx, in, em, writer, err.Error(), toolCalls)
			return
		}
		if !more {
			break
		}

		if step.Interrupt != nil {
			drain()
			d.interrupted(ctx, in, em, writer, step.Interrupt, toolCalls)
			return
		}

		if msg := step.LastAssistantMessage; msg != nil && msg.Text != "" {
			if _, seen := seenMessages[msg.ID]; !seen {
				seenMessages[msg.ID] = struct{}{}
				em.EmitThinking(msg.Text, events.AgentMain, "", "")
			}
		}

		drain()

		if time.Since(lastEmit) > d.cfg.HeartbeatInterval {
			em.EmitStatus(fmt.Sprintf("Processing... %ds elapsed", int(time.Since(lastEmit).Seconds())))
			drain()
		}

		if step.Final {
			d.completed(ctx, in, em, writer, step.FinalContent, toolCalls, started)
			return
		}
	}

	// Stream ended without an explicit final step: treat whatever content
	// was produced (none) as a no-op completion rather than a failure —
	// this only happens with a misbehaving Graph implementation.
	d.completed(ctx, in, em, writer, "", toolCalls, started)
}

// completed implements §4.5 step 5.
func (d *Driver) completed(ctx context.Context, in Input, em *emitter.Emitter, writer *robustEventWriter, content string, toolCalls int, started time.Time) {
	if content != "" {
		em.EmitContentStart()
		for _, chunk := range chunkWords(content, d.cfg.ContentChunkWords) {
			em.EmitContent(chunk)
			if d.cfg.ContentChunkDelay > 0 {
				select {
				case <-time.After(d.cfg.ContentChunkDelay):
				case <-ctx.Done():
				}
			}
		}
		em.EmitContentEnd()
	}
	em.EmitEnd(events.EndCompleted, toolCalls)
	drainFinal(ctx, em, writer, in)

	processingMS := time.Since(started).Milliseconds()
	if err := d.messages.Complete(ctx, in.MessageID, content, processingMS); err != nil {
		d.log.Error("driver: failed to mark message completed", "error", err, "message_id", in.MessageID)
	}
}

// interrupted implements §4.5 step 4.
func (d *Driver) interrupted(ctx context.Context, in Input, em *emitter.Emitter, writer *robustEventWriter, interrupt *agentgraph.Interrupt, toolCalls int) {
	payload, err := json.Marshal(map[string]any{
		"interrupt": true,
		"tool":      interrupt.Tool,
		"question":  interrupt.Question,
		"thread_id": interrupt.ThreadID,
	})
	if err != nil {
		payload = []byte(`{"interrupt":true}`)
	}
	em.EmitStatusMD(fmt.Sprintf("Agent needs human input: %s", interrupt.Question), string(payload))
	em.EmitEnd(events.EndInterrupted, toolCalls)
	drainFinal(ctx, em, writer, in)

	if err := d.messages.Interrupted(ctx, in.MessageID, messagestore.Interrupt{
		Question: interrupt.Question, ThreadID: interrupt.ThreadID,
	}); err != nil {
		d.log.Error("driver: failed to record interrupt", "error", err, "message_id", in.MessageID)
	}
}

// fail implements §4.5 step 6 / §7's AgentFatal and ScopeViolation paths.
func (d *Driver) fail(ctx context.Context, in Input, em *emitter.Emitter, writer *robustEventWriter, msg string, toolCalls int) {
	em.EmitError(msg)
	em.EmitEnd(events.EndFailed, toolCalls)
	drainFinal(ctx, em, writer, in)

	if err := d.messages.Fail(ctx, in.MessageID, events.SanitizeError(msg)); err != nil {
		d.log.Error("driver: failed to mark message failed", "error", err, "message_id", in.MessageID)
	}
}

// drainFinal drains every event still waiting in the emitter's queue after a
// terminal emission and hands each one to the robust writer. Events the
// writer itself had queued after failed writes are flushed separately by
// writer.flushFailed, deferred in Run.
func drainFinal(ctx context.Context, em *emitter.Emitter, writer *robustEventWriter, in Input) {
	for {
		ev, ok := em.GetNext(ctx, 50*time.Millisecond)
		if !ok {
			return
		}
		writer.write(ctx, in.MessageID, in.ChatID, ev)
	}
}

// chunkWords splits content into chunks of approximately wordsPerChunk
// words, for the completed path's paced CONTENT emission. Words are joined
// with single spaces, so runs of whitespace (including newlines) in content
// are collapsed.
func chunkWords(content string, wordsPerChunk int) []string {
	if wordsPerChunk <= 0 {
		wordsPerChunk = 10
	}
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(fields); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(fields) {
			end = len(fields)
		}
		chunks = append(chunks, strings.Join(fields[i:end], " "))
	}
	return chunks
}
