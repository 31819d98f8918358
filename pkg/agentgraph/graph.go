// Package agentgraph defines the opaque agent-graph collaborator the driver
// runs: a value that, given an initial state, yields a sequence of step
// snapshots and eventually a final one. The graph itself (planner, tools,
// sub-agents, middleware) is out of scope; this package only fixes the
// contract and ships two illustrative implementations so the driver always
// runs against something real.
package agentgraph

import "context"

// Input is the initial state handed to a Graph run.
type Input struct {
	ChatID    string
	MessageID string
	Query     string
	// TenderID, when non-empty, pins this conversation to a single tender
	// scope; a Graph implementation may ignore it.
	TenderID string
}

// Message is an assistant message snapshot as seen by the driver. ID is
// stable across steps that refer to the same underlying message so the
// driver can deduplicate THINKING emission by ID.
type Message struct {
	ID          string
	Text        string
	HasToolCall bool
}

// Interrupt is a human-in-the-loop pause surfaced by the graph.
type Interrupt struct {
	Question string
	ThreadID string
	Tool     string
	Args     map[string]any
}

// Step is one snapshot yielded by a Graph run.
type Step struct {
	// LastAssistantMessage is the most recent assistant message known as of
	// this step, or nil if none has appeared yet.
	LastAssistantMessage *Message

	// Interrupt is set when this step represents an interrupt; the driver
	// halts the Running loop on the first step where this is non-nil.
	Interrupt *Interrupt

	// Final marks the terminal step of a successful (non-interrupted,
	// non-failed) run. FinalContent is the complete assistant response
	// extracted from it.
	Final        bool
	FinalContent string
}

// StepStream yields the sequence of Steps produced by one Graph run. Next
// returns (step, true, nil) for each step, then (_, false, nil) once the
// stream is exhausted, or a non-nil error if the run failed.
type StepStream interface {
	Next(ctx context.Context) (Step, bool, error)
	Close() error
}

// Graph runs one agent turn given in, returning a StepStream of state
// snapshots. Implementations may emit TOOL_START/TOOL_END/PLAN/SUBAGENT_*
// events directly through the emitter bound into ctx (see pkg/emitter) as
// they execute tools; Step itself only carries what the driver needs to
// detect THINKING text, interrupts, and the final response.
type Graph interface {
	Run(ctx context.Context, in Input) (StepStream, error)
}
