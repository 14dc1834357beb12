package messaging

import (
	"context"
	"log/slog"
	"strings"

	"chime-together/pkg/logattr"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

// HandlerFunc applies one incoming envelope to local state. Handlers must be
// idempotent: the transport delivers at least once.
type HandlerFunc func(ctx context.Context, envelope events.EventEnvelope) werrors.WError

// Registry maps event kinds to the ordered handlers of one service process.
// Registration happens at startup only; Dispatch is safe for concurrent use
// afterwards.
type Registry struct {
	handlers map[string][]HandlerFunc
	kinds    []string
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}
}

func (r *Registry) Register(kind string, handlers ...HandlerFunc) {
	if _, ok := r.handlers[kind]; !ok {
		r.kinds = append(r.kinds, kind)
	}
	r.handlers[kind] = append(r.handlers[kind], handlers...)
}

// Kinds returns the registered kinds in registration order. They double as
// the queue binding routing keys.
func (r *Registry) Kinds() []string {
	return r.kinds
}

// Dispatch runs every handler registered for the envelope's kind. A handler
// failure does not stop the remaining handlers; failures are combined into a
// single error that is retryable if any individual failure was.
func (r *Registry) Dispatch(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	handlers, ok := r.handlers[envelope.Type]
	if !ok {
		r.logger.Warn(
			"no handler registered for event, skipping",
			logattr.EventType(envelope.Type),
			logattr.EventId(envelope.Id.String()),
		)
		return nil
	}
	var retryable bool
	var failures []string
	for _, handler := range handlers {
		werr := handler(ctx, envelope)
		if werr != nil {
			retryable = retryable || werr.IsRetryable()
			failures = append(failures, werr.Message())
		}
	}
	if len(failures) == 0 {
		return nil
	}
	combined := strings.Join(failures, "; ")
	if retryable {
		return werrors.NewRetryableInternalError("%d of %d handlers failed for %s: %s", len(failures), len(handlers), envelope.Type, combined)
	}
	return werrors.NewNonRetryableInternalError("%d of %d handlers failed for %s: %s", len(failures), len(handlers), envelope.Type, combined)
}
