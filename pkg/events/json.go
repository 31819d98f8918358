package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelope is the wire shape: schema/version/id/timestamp fields flattened
// alongside whatever the variant payload contributes, matching the spec's
// "plus the variant's fields" shape rather than nesting payload under its
// own key.
type envelope struct {
	V    int       `json:"v"`
	Type Type      `json:"type"`
	ID   string    `json:"id"`
	TS   time.Time `json:"ts"`
}

// MarshalJSON flattens the envelope and the variant payload into one object.
func (e Event) MarshalJSON() ([]byte, error) {
	envBytes, err := json.Marshal(envelope{V: e.V, Type: e.Type, ID: e.ID, TS: e.TS})
	if err != nil {
		return nil, err
	}
	payloadBytes, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(envBytes, &merged); err != nil {
		return nil, err
	}
	var payloadFields map[string]json.RawMessage
	if err := json.Unmarshal(payloadBytes, &payloadFields); err != nil {
		return nil, err
	}
	for k, v := range payloadFields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON dispatches on the `type` field to decode into the matching
// variant. Unknown fields in the source are ignored, per the spec's
// forward-compatibility requirement. TypeRationale decodes as Thinking.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	var payload Payload
	switch env.Type {
	case TypeStart:
		payload = &Start{}
	case TypePlan:
		payload = &Plan{}
	case TypeThinking, TypeRationale:
		payload = &Thinking{}
	case TypeToolStart:
		payload = &ToolStart{}
	case TypeToolEnd:
		payload = &ToolEnd{}
	case TypeSubagentStart:
		payload = &SubagentStart{}
	case TypeSubagentEnd:
		payload = &SubagentEnd{}
	case TypeContentStart:
		payload = &ContentStart{}
	case TypeContent:
		payload = &Content{}
	case TypeContentEnd:
		payload = &ContentEnd{}
	case TypeStatus:
		payload = &Status{}
	case TypeEnd:
		payload = &End{}
	case TypeError:
		payload = &Error{}
	default:
		return fmt.Errorf("events: unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return err
	}

	e.V = env.V
	e.Type = env.Type
	e.ID = env.ID
	e.TS = env.TS
	e.Payload = derefPayload(payload)
	return nil
}

// derefPayload converts the pointer variants used for unmarshalling back
// into the value types New() and the rest of the package expect.
func derefPayload(p Payload) Payload {
	switch v := p.(type) {
	case *Start:
		return *v
	case *Plan:
		return *v
	case *Thinking:
		return *v
	case *ToolStart:
		return *v
	case *ToolEnd:
		return *v
	case *SubagentStart:
		return *v
	case *SubagentEnd:
		return *v
	case *ContentStart:
		return *v
	case *Content:
		return *v
	case *ContentEnd:
		return *v
	case *Status:
		return *v
	case *End:
		return *v
	case *Error:
		return *v
	default:
		return p
	}
}
