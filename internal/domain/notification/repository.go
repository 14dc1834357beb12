package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
)

// Notification is this service's denormalized record of a message a user
// should be told about. MessageId is the foreign identity deliveries are
// deduplicated on.
type Notification struct {
	ID         uuid.UUID
	MessageId  string
	ReceiverId string
	SenderId   string
	Message    string
	Timestamp  time.Time
	Read       bool
}

type Repository interface {
	// CreateNotificationIfAbsent inserts unless a notification for the same
	// messageId exists (unique index). Returns false when already applied.
	CreateNotificationIfAbsent(ctx context.Context, notification Notification) (bool, werrors.WError)
	GetByReceiver(ctx context.Context, receiverId string) ([]Notification, werrors.WError)
	GetByID(ctx context.Context, id uuid.UUID) (Notification, werrors.WError)
	Delete(ctx context.Context, id uuid.UUID) werrors.WError
	MarkRead(ctx context.Context, id uuid.UUID) werrors.WError
}
