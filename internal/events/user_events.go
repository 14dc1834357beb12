package events

import (
	"time"

	"github.com/walletera/eventskit/events"
)

// UserRegisteredData is published by the auth service after new credentials
// are committed. Payload is denormalized so consumers never query back.
type UserRegisteredData struct {
	UserId    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRegistered = DomainEvent[UserRegisteredData]

func NewUserRegistered(correlationId string, data UserRegisteredData) UserRegistered {
	return newDomainEvent(KindUserRegistered, correlationId, data)
}

func DecodeUserRegistered(envelope events.EventEnvelope) (UserRegistered, error) {
	return decodeData[UserRegisteredData](envelope, KindUserRegistered)
}

// UserUpdatedData is published by the user service after a profile update.
type UserUpdatedData struct {
	UserId   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserUpdated = DomainEvent[UserUpdatedData]

func NewUserUpdated(correlationId string, data UserUpdatedData) UserUpdated {
	return newDomainEvent(KindUserUpdated, correlationId, data)
}

func DecodeUserUpdated(envelope events.EventEnvelope) (UserUpdated, error) {
	return decodeData[UserUpdatedData](envelope, KindUserUpdated)
}

// UserDeletedData is published by the user service after a profile removal.
type UserDeletedData struct {
	UserId    string    `json:"userId"`
	DeletedAt time.Time `json:"deletedAt"`
}

type UserDeleted = DomainEvent[UserDeletedData]

func NewUserDeleted(correlationId string, data UserDeletedData) UserDeleted {
	return newDomainEvent(KindUserDeleted, correlationId, data)
}

func DecodeUserDeleted(envelope events.EventEnvelope) (UserDeleted, error) {
	return decodeData[UserDeletedData](envelope, KindUserDeleted)
}
