package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
)

// Credentials is the auth service's own record of a user. The ID doubles as
// the userId other services key their denormalized copies on.
type Credentials struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Repository interface {
	// CreateCredentials inserts the credentials. Returns false without error
	// when the email is already registered (unique index).
	CreateCredentials(ctx context.Context, credentials Credentials) (bool, werrors.WError)
	GetByEmail(ctx context.Context, email string) (Credentials, werrors.WError)
	// UpdateCredentials replaces username and email of an existing record.
	// Never upserts: a record deleted earlier stays deleted.
	UpdateCredentials(ctx context.Context, id uuid.UUID, username string, email string) werrors.WError
	DeleteCredentials(ctx context.Context, id uuid.UUID) werrors.WError
}
