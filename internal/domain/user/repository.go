package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
)

// Profile is the user service's denormalized copy of a registered user.
// AuthUserId is the foreign identifier assigned by the auth service; the
// local ID is owned here and never leaves this service's API.
type Profile struct {
	ID         uuid.UUID
	AuthUserId string
	Username   string
	Email      string
	CreatedAt  time.Time
}

type Repository interface {
	// CreateProfileIfAbsent inserts the profile unless one already exists
	// for the same authUserId. The write itself is conditioned on the
	// unique index, so concurrent duplicate deliveries cannot both insert.
	// Returns false when the profile was already there.
	CreateProfileIfAbsent(ctx context.Context, profile Profile) (bool, werrors.WError)
	GetAll(ctx context.Context) ([]Profile, werrors.WError)
	GetByID(ctx context.Context, id uuid.UUID) (Profile, werrors.WError)
	GetByAuthUserID(ctx context.Context, authUserId string) (Profile, werrors.WError)
	SearchByUsername(ctx context.Context, username string) ([]Profile, werrors.WError)
	// ReplaceProfile replaces an existing record, never upserts.
	ReplaceProfile(ctx context.Context, profile Profile) werrors.WError
	DeleteProfile(ctx context.Context, id uuid.UUID) werrors.WError
}
