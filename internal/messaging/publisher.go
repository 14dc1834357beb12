package messaging

import (
	"context"
	"log/slog"

	"chime-together/pkg/logattr"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

// Publisher hands committed domain events to the transport. Callers must
// only publish after the corresponding local state change is durable; a
// publish failure leaves the local commit standing (no outbox, the gap is
// an accepted at-most-once-publish risk).
type Publisher struct {
	transport events.Publisher
	exchange  string
	logger    *slog.Logger
}

func NewPublisher(transport events.Publisher, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{
		transport: transport,
		exchange:  exchange,
		logger:    logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.EventData) werrors.WError {
	err := p.transport.Publish(ctx, event, events.RoutingInfo{
		Topic:      p.exchange,
		RoutingKey: event.Type(),
	})
	if err != nil {
		p.logger.Error(
			"failed publishing event",
			logattr.EventType(event.Type()),
			logattr.EventId(event.ID()),
			logattr.Error(err.Error()),
		)
		return werrors.NewRetryableInternalError("failed publishing %s event: %s", event.Type(), err.Error())
	}
	eventsPublished.WithLabelValues(event.Type()).Inc()
	p.logger.Debug(
		"event published",
		logattr.EventType(event.Type()),
		logattr.EventId(event.ID()),
		logattr.CorrelationId(event.CorrelationID()),
	)
	return nil
}
