package agentgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messagesClient captures the subset of the Anthropic SDK client this
// package needs, so tests can substitute a fake without a live network
// call.
type messagesClient interface {
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) streamSource
}

// streamSource is the subset of *ssestream.Stream[sdk.MessageStreamEventUnion]
// the pump loop drives.
type streamSource interface {
	Next() bool
	Current() sdk.MessageStreamEventUnion
	Err() error
	Close() error
}

// Anthropic is a Graph backed by one real streaming Anthropic Messages API
// call. It maps incremental text deltas to a growing assistant message
// (stable ID for the whole response, so the driver's THINKING dedup
// collapses it to a single emission) and yields a final step carrying the
// complete response text. Full tool-execution and sub-agent delegation
// loops belong to the opaque graph the spec excludes — this implementation
// answers "can the driver drive a real model," not "is this a complete
// agent framework."
type Anthropic struct {
	client    messagesClient
	model     sdk.Model
	maxTokens int64
	system    string
}

// anthropicClientAdapter narrows the real SDK client down to messagesClient.
type anthropicClientAdapter struct {
	msg *sdk.MessageService
}

func (a anthropicClientAdapter) NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) streamSource {
	return a.msg.NewStreaming(ctx, body, opts...)
}

// NewAnthropic builds an Anthropic graph using apiKey and model, with an
// optional system prompt.
func NewAnthropic(apiKey string, model sdk.Model, maxTokens int64, system string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("agentgraph: anthropic api key is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return newAnthropic(anthropicClientAdapter{msg: &client.Messages}, model, maxTokens, system), nil
}

func newAnthropic(client messagesClient, model sdk.Model, maxTokens int64, system string) *Anthropic {
	return &Anthropic{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		system:    system,
	}
}

// Run implements Graph.
func (a *Anthropic) Run(ctx context.Context, in Input) (StepStream, error) {
	if in.Query == "" {
		return nil, errors.New("agentgraph: anthropic run requires a non-empty query")
	}

	params := sdk.MessageNewParams{
		MaxTokens: a.maxTokens,
		Model:     a.model,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(in.Query)),
		},
	}
	if a.system != "" {
		params.System = []sdk.TextBlockParam{{Text: a.system}}
	}

	stream := a.client.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("agentgraph: anthropic messages.new stream: %w", err)
	}
	return newAnthropicStream(ctx, stream, "anthropic-response"), nil
}

// anthropicStream pumps the SDK's SSE stream on a background goroutine and
// exposes it as a StepStream, the way goa-ai's anthropicStreamer adapts the
// same SDK stream to its own Streamer interface.
type anthropicStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream streamSource
	steps  chan Step
	msgID  string

	errMu sync.Mutex
	err   error
}

func newAnthropicStream(ctx context.Context, stream streamSource, msgID string) *anthropicStream {
	cctx, cancel := context.WithCancel(ctx)
	s := &anthropicStream{
		ctx:    cctx,
		cancel: cancel,
		stream: stream,
		steps:  make(chan Step, 32),
		msgID:  msgID,
	}
	go s.run()
	return s
}

func (s *anthropicStream) Next(ctx context.Context) (Step, bool, error) {
	select {
	case step, ok := <-s.steps:
		if ok {
			return step, true, nil
		}
		if err := s.getErr(); err != nil {
			return Step{}, false, err
		}
		return Step{}, false, nil
	case <-ctx.Done():
		return Step{}, false, ctx.Err()
	}
}

func (s *anthropicStream) Close() error {
	s.cancel()
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *anthropicStream) run() {
	defer close(s.steps)
	defer func() { _ = s.stream.Close() }()

	var text strings.Builder
	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		default:
		}
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil && !errors.Is(err, io.EOF) {
				s.setErr(err)
				return
			}
			s.emitFinal(text.String())
			return
		}

		event := s.stream.Current()
		switch ev := event.AsAny().(type) {
		case sdk.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
				text.WriteString(delta.Text)
				if !s.emit(Step{LastAssistantMessage: &Message{ID: s.msgID, Text: text.String()}}) {
					return
				}
			}
		case sdk.MessageStopEvent:
			s.emitFinal(text.String())
			return
		}
	}
}

func (s *anthropicStream) emit(step Step) bool {
	select {
	case s.steps <- step:
		return true
	case <-s.ctx.Done():
		s.setErr(s.ctx.Err())
		return false
	}
}

func (s *anthropicStream) emitFinal(final string) {
	s.emit(Step{Final: true, FinalContent: final})
}

func (s *anthropicStream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *anthropicStream) getErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
