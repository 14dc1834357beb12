package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/walletera/eventskit/events"
)

// Event kinds double as routing keys on the chat.events exchange.
const (
	KindUserRegistered = "user.registered"
	KindUserUpdated    = "user.updated"
	KindUserDeleted    = "user.deleted"
	KindMessageSent    = "message.sent"
)

const dataContentType = "application/json"

// DomainEvent wraps a kind-specific payload with the envelope metadata
// assigned by the producer. Envelopes are immutable once published.
type DomainEvent[Data any] struct {
	EventId       uuid.UUID
	Kind          string
	CorrelationId string
	OccurredAt    time.Time
	Data          Data
}

var _ events.EventData = DomainEvent[UserRegisteredData]{}

func (e DomainEvent[Data]) ID() string {
	return e.EventId.String()
}

func (e DomainEvent[Data]) Type() string {
	return e.Kind
}

func (e DomainEvent[Data]) AggregateVersion() uint64 {
	return 0
}

func (e DomainEvent[Data]) CorrelationID() string {
	return e.CorrelationId
}

func (e DomainEvent[Data]) DataContentType() string {
	return dataContentType
}

func (e DomainEvent[Data]) CreatedAt() time.Time {
	return e.OccurredAt
}

func (e DomainEvent[Data]) Serialize() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("serializing event data: %w", err)
	}
	return json.Marshal(events.EventEnvelope{
		Id:            e.EventId,
		Type:          e.Kind,
		CorrelationId: e.CorrelationId,
		CreatedAt:     e.OccurredAt,
		Data:          data,
	})
}

func newDomainEvent[Data any](kind string, correlationId string, data Data) DomainEvent[Data] {
	return DomainEvent[Data]{
		EventId:       uuid.New(),
		Kind:          kind,
		CorrelationId: correlationId,
		OccurredAt:    time.Now().UTC(),
		Data:          data,
	}
}

// DecodeEnvelope parses a raw transport message into an envelope. The
// kind-specific payload stays raw until a projector decodes it.
func DecodeEnvelope(raw []byte) (events.EventEnvelope, error) {
	var envelope events.EventEnvelope
	err := json.Unmarshal(raw, &envelope)
	if err != nil {
		return events.EventEnvelope{}, fmt.Errorf("decoding event envelope: %w", err)
	}
	if envelope.Type == "" {
		return events.EventEnvelope{}, fmt.Errorf("event envelope has no type")
	}
	return envelope, nil
}

func decodeData[Data any](envelope events.EventEnvelope, kind string) (DomainEvent[Data], error) {
	if envelope.Type != kind {
		return DomainEvent[Data]{}, fmt.Errorf("expected event type %s, got %s", kind, envelope.Type)
	}
	var data Data
	err := json.Unmarshal(envelope.Data, &data)
	if err != nil {
		return DomainEvent[Data]{}, fmt.Errorf("decoding %s data: %w", kind, err)
	}
	return DomainEvent[Data]{
		EventId:       envelope.Id,
		Kind:          envelope.Type,
		CorrelationId: envelope.CorrelationId,
		OccurredAt:    envelope.CreatedAt,
		Data:          data,
	}, nil
}
