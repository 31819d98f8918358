package emitter

import "github.com/riverrun/agentstream/pkg/events"

// The methods below are thin wrappers over Emit for the variants the driver
// and tool-instrumentation middleware construct most often. They exist so
// call sites read as what happened, not how an Event envelope is built.

func (e *Emitter) EmitStart() bool {
	return e.Emit(events.Start{})
}

func (e *Emitter) EmitPlan(items []events.PlanItem) bool {
	return e.Emit(events.Plan{Items: items})
}

func (e *Emitter) EmitThinking(text string, agentType events.AgentType, agentID, parentCallID string) bool {
	return e.Emit(events.Thinking{Text: text, AgentType: agentType, AgentID: agentID, ParentCallID: parentCallID})
}

func (e *Emitter) EmitToolStart(callID, name, argsSummary, argsDisplay string) bool {
	return e.Emit(events.ToolStart{CallID: callID, Name: name, ArgsSummary: argsSummary, ArgsDisplay: argsDisplay})
}

func (e *Emitter) EmitToolEnd(callID, name string, status events.ToolStatus, ms int64, resultSummary string) bool {
	return e.Emit(events.ToolEnd{CallID: callID, Name: name, Status: status, MS: ms, ResultSummary: resultSummary})
}

func (e *Emitter) EmitSubagentStart(agentID, parentCallID, description string) bool {
	return e.Emit(events.SubagentStart{AgentID: agentID, ParentCallID: parentCallID, Description: description})
}

func (e *Emitter) EmitSubagentEnd(agentID, parentCallID string, ms int64) bool {
	return e.Emit(events.SubagentEnd{AgentID: agentID, ParentCallID: parentCallID, MS: ms})
}

func (e *Emitter) EmitContentStart() bool {
	return e.Emit(events.ContentStart{})
}

func (e *Emitter) EmitContent(md string) bool {
	return e.Emit(events.Content{MD: md})
}

func (e *Emitter) EmitContentEnd() bool {
	return e.Emit(events.ContentEnd{})
}

func (e *Emitter) EmitStatus(text string) bool {
	return e.Emit(events.Status{Text: text})
}

func (e *Emitter) EmitStatusMD(text, md string) bool {
	return e.Emit(events.Status{Text: text, MD: md})
}

// EmitEnd stamps ms_total from the time Start was called.
func (e *Emitter) EmitEnd(status events.EndStatus, toolCalls int) bool {
	return e.Emit(events.End{Status: status, MSTotal: e.ElapsedSince().Milliseconds(), ToolCalls: toolCalls})
}

func (e *Emitter) EmitError(msg string) bool {
	return e.Emit(events.Error{Error: events.SanitizeError(msg)})
}
