package agentgraph

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropic("", sdk.ModelClaudeSonnet4_5_20250929, 0, "")
	require.Error(t, err)
}

func TestAnthropicRunRequiresQuery(t *testing.T) {
	a := newAnthropic(fakeMessagesClient{}, sdk.ModelClaudeSonnet4_5_20250929, 1024, "")
	_, err := a.Run(context.Background(), Input{MessageID: "m1"})
	require.Error(t, err)
}

func TestAnthropicRunPropagatesStreamSetupError(t *testing.T) {
	a := newAnthropic(fakeMessagesClient{setupErr: errors.New("boom")}, sdk.ModelClaudeSonnet4_5_20250929, 1024, "")
	_, err := a.Run(context.Background(), Input{MessageID: "m1", Query: "hi"})
	require.Error(t, err)
}

func TestAnthropicStreamSurfacesRunErrorAfterStreamEnds(t *testing.T) {
	a := newAnthropic(fakeMessagesClient{runErr: errors.New("network reset")}, sdk.ModelClaudeSonnet4_5_20250929, 1024, "")
	stream, err := a.Run(context.Background(), Input{MessageID: "m1", Query: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	_, ok, err := stream.Next(context.Background())
	require.False(t, ok)
	require.Error(t, err)
}

// fakeMessagesClient and fakeStream let the pump loop run against a
// deterministic, empty event source without depending on how the real SDK
// constructs sdk.MessageStreamEventUnion values internally.
type fakeMessagesClient struct {
	setupErr error
	runErr   error
}

func (f fakeMessagesClient) NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) streamSource {
	return &fakeStream{setupErr: f.setupErr, runErr: f.runErr}
}

type fakeStream struct {
	setupErr error
	runErr   error
	polled   bool
}

func (f *fakeStream) Next() bool {
	f.polled = true
	return false
}

func (f *fakeStream) Current() sdk.MessageStreamEventUnion { return sdk.MessageStreamEventUnion{} }

func (f *fakeStream) Err() error {
	if !f.polled {
		return f.setupErr
	}
	return f.runErr
}

func (f *fakeStream) Close() error { return nil }
