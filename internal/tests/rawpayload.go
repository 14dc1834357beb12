package tests

import (
	"time"

	"github.com/walletera/eventskit/events"
)

var _ events.EventData = rawPayload{}

// rawPayload publishes an already-serialized envelope exactly as a producing
// service would have put it on the wire.
type rawPayload struct {
	payload  []byte
	envelope events.EventEnvelope
}

func (p rawPayload) ID() string {
	return p.envelope.Id.String()
}

func (p rawPayload) Type() string {
	return p.envelope.Type
}

func (p rawPayload) AggregateVersion() uint64 {
	return p.envelope.AggregateVersion
}

func (p rawPayload) CorrelationID() string {
	return p.envelope.CorrelationId
}

func (p rawPayload) DataContentType() string {
	return "application/json"
}

func (p rawPayload) CreatedAt() time.Time {
	return p.envelope.CreatedAt
}

func (p rawPayload) Serialize() ([]byte, error) {
	return p.payload, nil
}
