package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	orig := Event{
		V:    SchemaVersion,
		Type: TypeToolStart,
		ID:   MintID(time.UnixMilli(1700000000000), 3),
		TS:   time.UnixMilli(1700000000000).UTC(),
		Payload: ToolStart{
			CallID:      "call-1",
			Name:        "search_tender_corpus",
			ArgsSummary: `query="roofing" top_k=5`,
		},
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, orig.Type, decoded.Type)
	assert.Equal(t, orig.ID, decoded.ID)
	assert.Equal(t, orig.Payload, decoded.Payload)
}

func TestEventUnmarshalUnknownFieldsIgnored(t *testing.T) {
	raw := `{"v":2,"type":"START","id":"1_0000_aaaaaaaa","ts":"2024-01-01T00:00:00Z","future_field":"x"}`
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, TypeStart, decoded.Type)
	assert.Equal(t, Start{}, decoded.Payload)
}

func TestRationaleDecodesAsThinking(t *testing.T) {
	raw := `{"v":2,"type":"RATIONALE","id":"1_0000_aaaaaaaa","ts":"2024-01-01T00:00:00Z","text":"because","agent_type":"main"}`
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	thinking, ok := decoded.Payload.(Thinking)
	require.True(t, ok)
	assert.Equal(t, "because", thinking.Text)
}

func TestMintIDAndParseSeq(t *testing.T) {
	id := MintID(time.UnixMilli(1700000000123), 42)
	seq, ok := ParseSeq(id)
	require.True(t, ok)
	assert.Equal(t, int64(42), seq)
}

func TestParseSeqMalformed(t *testing.T) {
	_, ok := ParseSeq("not-an-id")
	assert.False(t, ok)

	_, ok = ParseSeq("123_abcd_deadbeef")
	assert.False(t, ok)
}

func TestOmitemptyFieldsAreOmitted(t *testing.T) {
	e := New(ToolStart{CallID: "c1", Name: "ls", ArgsSummary: "(no args)"})
	e.ID = MintID(time.Now(), 0)
	e.TS = time.Now().UTC()

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "args_display")
}
