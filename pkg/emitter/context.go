package emitter

import "context"

// ctxKey is an unexported type so only this package can mint the context
// key, keeping "the current emitter" out of reach of accidental string-key
// collisions and out of any process-wide global.
type ctxKey struct{}

// WithEmitter binds e into ctx. The driver calls this once at request start;
// every goroutine the driver itself spawns (sub-agent middleware, nested
// tool calls) inherits the same emitter by receiving the same ctx, never by
// reading a package-level variable.
func WithEmitter(ctx context.Context, e *Emitter) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext recovers the emitter bound by WithEmitter. ok is false when no
// emitter was bound, which tool-instrumentation middleware treats as "not
// running inside a driven agent" and simply skips emitting.
func FromContext(ctx context.Context) (*Emitter, bool) {
	e, ok := ctx.Value(ctxKey{}).(*Emitter)
	return e, ok
}
