// Package events defines the closed set of stream event variants emitted by
// a running agent and persisted to the event log.
//
// Each variant is its own Go type implementing the unexported marker method
// so the set stays closed: callers outside this package cannot add a new
// variant, only construct one of the ones declared here. An Event envelope
// carries the variant alongside the schema version, sortable id and
// timestamp needed to persist and replay it.
package events

import "time"

// SchemaVersion is the `v` field stamped on every encoded event. Consumers
// must tolerate unknown fields and ignore events carrying a higher version
// than they understand.
const SchemaVersion = 2

// Type identifies which variant an Event carries.
type Type string

const (
	TypeStart         Type = "START"
	TypePlan          Type = "PLAN"
	TypeThinking      Type = "THINKING"
	TypeToolStart     Type = "TOOL_START"
	TypeToolEnd       Type = "TOOL_END"
	TypeSubagentStart Type = "SUBAGENT_START"
	TypeSubagentEnd   Type = "SUBAGENT_END"
	TypeContentStart  Type = "CONTENT_START"
	TypeContent       Type = "CONTENT"
	TypeContentEnd    Type = "CONTENT_END"
	TypeStatus        Type = "STATUS"
	// TypeRationale is a deprecated alias of TypeThinking. Accepted on
	// decode; never produced by this package's emitters.
	TypeRationale Type = "RATIONALE"
	TypeEnd       Type = "END"
	TypeError     Type = "ERROR"
)

// PlanItemStatus is the status of one item within a PLAN event.
type PlanItemStatus string

const (
	PlanItemPending    PlanItemStatus = "pending"
	PlanItemInProgress PlanItemStatus = "in_progress"
	PlanItemCompleted  PlanItemStatus = "completed"
)

// PlanItem is one row of a PLAN event's checklist.
type PlanItem struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Status PlanItemStatus `json:"status"`
}

// AgentType distinguishes the main agent from a delegated sub-agent in a
// THINKING event.
type AgentType string

const (
	AgentMain     AgentType = "main"
	AgentSubagent AgentType = "subagent"
)

// ToolStatus is the outcome recorded on a TOOL_END event.
type ToolStatus string

const (
	ToolOK    ToolStatus = "ok"
	ToolError ToolStatus = "error"
)

// EndStatus is the terminal status recorded on an END event.
type EndStatus string

const (
	EndCompleted   EndStatus = "completed"
	EndInterrupted EndStatus = "interrupted"
	EndFailed      EndStatus = "failed"
)

// Payload is implemented by every event variant. The method is unexported so
// the variant set stays closed to this package.
type Payload interface {
	eventType() Type
}

type Start struct{}

func (Start) eventType() Type { return TypeStart }

type Plan struct {
	Items []PlanItem `json:"items"`
}

func (Plan) eventType() Type { return TypePlan }

type Thinking struct {
	Text         string    `json:"text"`
	AgentType    AgentType `json:"agent_type"`
	AgentID      string    `json:"agent_id,omitempty"`
	ParentCallID string    `json:"parent_call_id,omitempty"`
}

func (Thinking) eventType() Type { return TypeThinking }

type ToolStart struct {
	CallID      string `json:"call_id"`
	Name        string `json:"name"`
	ArgsSummary string `json:"args_summary"`
	ArgsDisplay string `json:"args_display,omitempty"`
}

func (ToolStart) eventType() Type { return TypeToolStart }

type ToolEnd struct {
	CallID        string     `json:"call_id"`
	Name          string     `json:"name"`
	Status        ToolStatus `json:"status"`
	MS            int64      `json:"ms"`
	ResultSummary string     `json:"result_summary"`
}

func (ToolEnd) eventType() Type { return TypeToolEnd }

type SubagentStart struct {
	AgentID      string `json:"agent_id"`
	ParentCallID string `json:"parent_call_id"`
	Description  string `json:"description,omitempty"`
}

func (SubagentStart) eventType() Type { return TypeSubagentStart }

type SubagentEnd struct {
	AgentID      string `json:"agent_id"`
	ParentCallID string `json:"parent_call_id"`
	MS           int64  `json:"ms,omitempty"`
}

func (SubagentEnd) eventType() Type { return TypeSubagentEnd }

type ContentStart struct{}

func (ContentStart) eventType() Type { return TypeContentStart }

type Content struct {
	MD string `json:"md"`
}

func (Content) eventType() Type { return TypeContent }

type ContentEnd struct{}

func (ContentEnd) eventType() Type { return TypeContentEnd }

// Status is a heartbeat or structured-interrupt carrier. It is the only
// variant the emitter's drop policy is allowed to discard under backpressure.
type Status struct {
	Text string `json:"text"`
	// MD carries a JSON-encoded structured payload (e.g. an interrupt
	// request) when this status event is not a plain heartbeat.
	MD string `json:"md,omitempty"`
}

func (Status) eventType() Type { return TypeStatus }

type End struct {
	Status    EndStatus `json:"status"`
	MSTotal   int64     `json:"ms_total"`
	ToolCalls int       `json:"tool_calls"`
}

func (End) eventType() Type { return TypeEnd }

type Error struct {
	Error string `json:"error"`
}

func (Error) eventType() Type { return TypeError }

// Event is the envelope persisted and replayed for every observation. The
// final ID, which embeds the event's seq, is assigned by the persistence
// layer (pkg/eventstore), not by the emitter, since the emitter only
// pre-assigns a placeholder.
type Event struct {
	V       int       `json:"v"`
	Type    Type      `json:"type"`
	ID      string    `json:"id"`
	TS      time.Time `json:"ts"`
	Payload Payload   `json:"-"`
}

// New wraps a payload into an envelope with the current schema version. ID
// and TS are left zero; the emitter or persistence layer fills them in.
func New(p Payload) Event {
	return Event{V: SchemaVersion, Type: p.eventType(), Payload: p}
}
