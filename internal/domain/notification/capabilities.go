package notification

import "context"

// Pusher targets a single user's live connection. Implementations must
// treat an absent connection as a normal empty effect, not a failure.
type Pusher interface {
	SendToUser(userId string, payload any) error
}

// EmailSender delivers the welcome mail for freshly registered users.
type EmailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
