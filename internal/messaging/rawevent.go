package messaging

import (
	"time"

	"github.com/walletera/eventskit/events"
)

var _ events.EventData = rawEvent{}

// rawEvent carries an already-serialized envelope, so a message can be
// re-published to the dead-letter exchange byte for byte.
type rawEvent struct {
	payload  []byte
	envelope events.EventEnvelope
}

func (r rawEvent) ID() string {
	return r.envelope.Id.String()
}

func (r rawEvent) Type() string {
	if r.envelope.Type == "" {
		return "unprocessable"
	}
	return r.envelope.Type
}

func (r rawEvent) AggregateVersion() uint64 {
	return r.envelope.AggregateVersion
}

func (r rawEvent) CorrelationID() string {
	return r.envelope.CorrelationId
}

func (r rawEvent) DataContentType() string {
	return "application/json"
}

func (r rawEvent) CreatedAt() time.Time {
	return r.envelope.CreatedAt
}

func (r rawEvent) Serialize() ([]byte, error) {
	return r.payload, nil
}
