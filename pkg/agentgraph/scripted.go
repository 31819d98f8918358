package agentgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/riverrun/agentstream/pkg/emitter"
	"github.com/riverrun/agentstream/pkg/events"
)

// ScriptedToolCall describes one tool invocation a ScriptedStep performs.
// When set, the scripted stream emits TOOL_START/TOOL_END directly through
// the emitter bound into the run's context, the way a real graph's tool
// node would.
type ScriptedToolCall struct {
	CallID        string
	Name          string
	Args          map[string]any
	ResultOK      bool
	ResultSummary string
	Delay         time.Duration
}

// ScriptedStep is one entry of a Scripted graph's fixed sequence.
type ScriptedStep struct {
	// MessageID, when non-empty, makes this step's assistant message text
	// dedup-visible to the driver the same way a repeated graph-state
	// message ID would. Defaults to a per-step synthetic ID when Thinking
	// is non-empty and MessageID is empty.
	MessageID string
	Thinking  string

	Tool *ScriptedToolCall

	Interrupt *Interrupt

	Final        bool
	FinalContent string
}

// Scripted is a deterministic, in-process Graph that replays a fixed or
// caller-supplied sequence of steps. It never calls out to a network and
// is the default Graph used by the binary and by all driver tests,
// preferring an explicit, inspectable fake over a mocking framework.
type Scripted struct {
	Steps []ScriptedStep
}

// NewScripted builds a Scripted graph from steps.
func NewScripted(steps []ScriptedStep) *Scripted {
	return &Scripted{Steps: steps}
}

// Run implements Graph.
func (s *Scripted) Run(ctx context.Context, in Input) (StepStream, error) {
	return &scriptedStream{steps: s.Steps}, nil
}

type scriptedStream struct {
	steps []ScriptedStep
	idx   int
}

func (s *scriptedStream) Next(ctx context.Context) (Step, bool, error) {
	if s.idx >= len(s.steps) {
		return Step{}, false, nil
	}
	spec := s.steps[s.idx]
	s.idx++

	if spec.Tool != nil {
		if err := s.runTool(ctx, spec.Tool); err != nil {
			return Step{}, false, err
		}
	}

	step := Step{
		Interrupt:    spec.Interrupt,
		Final:        spec.Final,
		FinalContent: spec.FinalContent,
	}
	if spec.Thinking != "" {
		id := spec.MessageID
		if id == "" {
			id = fmt.Sprintf("scripted-msg-%d", s.idx)
		}
		step.LastAssistantMessage = &Message{ID: id, Text: spec.Thinking}
	}
	return step, true, nil
}

func (s *scriptedStream) runTool(ctx context.Context, tc *ScriptedToolCall) error {
	em, ok := emitter.FromContext(ctx)
	if !ok {
		return nil
	}
	argsSummary := events.SanitizeArgs(tc.Name, tc.Args)
	em.EmitToolStart(tc.CallID, tc.Name, argsSummary, "")

	if tc.Delay > 0 {
		select {
		case <-time.After(tc.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	status := events.ToolOK
	if !tc.ResultOK {
		status = events.ToolError
	}
	em.EmitToolEnd(tc.CallID, tc.Name, status, tc.Delay.Milliseconds(), tc.ResultSummary)
	return nil
}

func (s *scriptedStream) Close() error { return nil }
