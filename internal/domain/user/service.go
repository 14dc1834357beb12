package user

import (
	"context"
	"log/slog"
	"time"

	chatevents "chime-together/internal/events"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
)

type Service struct {
	repository Repository
	publisher  *messaging.Publisher
	logger     *slog.Logger
}

func NewService(repository Repository, publisher *messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *Service) GetAll(ctx context.Context) ([]Profile, werrors.WError) {
	return s.repository.GetAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Profile, werrors.WError) {
	return s.repository.GetByID(ctx, id)
}

func (s *Service) GetByAuthUserID(ctx context.Context, authUserId string) (Profile, werrors.WError) {
	return s.repository.GetByAuthUserID(ctx, authUserId)
}

func (s *Service) SearchByUsername(ctx context.Context, username string) ([]Profile, werrors.WError) {
	if username == "" {
		return nil, werrors.NewNonRetryableInternalError("username must not be empty")
	}
	return s.repository.SearchByUsername(ctx, username)
}

// CreateIfNotExists backs both the manual POST endpoint and the
// user.registered projector.
func (s *Service) CreateIfNotExists(ctx context.Context, authUserId string, username string, email string, createdAt time.Time) (bool, werrors.WError) {
	created, werr := s.repository.CreateProfileIfAbsent(ctx, Profile{
		ID:         uuid.New(),
		AuthUserId: authUserId,
		Username:   username,
		Email:      email,
		CreatedAt:  createdAt,
	})
	if werr != nil {
		s.logger.Error(
			"failed creating profile",
			logattr.AuthUserId(authUserId),
			logattr.Error(werr.Message()),
		)
		return false, werr
	}
	if !created {
		s.logger.Info("profile already exists, skipping", logattr.AuthUserId(authUserId), logattr.Email(email))
		return false, nil
	}
	s.logger.Info("profile created", logattr.AuthUserId(authUserId), logattr.Email(email))
	return true, nil
}

// Update replaces the mutable profile fields and publishes user.updated
// after the replacement is committed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, username string, email string) (Profile, werrors.WError) {
	profile, werr := s.repository.GetByID(ctx, id)
	if werr != nil {
		return Profile{}, werr
	}
	profile.Username = username
	profile.Email = email
	werr = s.repository.ReplaceProfile(ctx, profile)
	if werr != nil {
		s.logger.Error("failed updating profile", logattr.UserId(id.String()), logattr.Error(werr.Message()))
		return Profile{}, werr
	}
	s.logger.Info("profile updated", logattr.AuthUserId(profile.AuthUserId), logattr.Email(email))

	werr = s.publisher.Publish(ctx, chatevents.NewUserUpdated(uuid.NewString(), chatevents.UserUpdatedData{
		UserId:   profile.AuthUserId,
		Username: profile.Username,
		Email:    profile.Email,
	}))
	if werr != nil {
		return Profile{}, werr
	}
	return profile, nil
}

// Delete removes the profile and publishes user.deleted after the removal
// is committed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) werrors.WError {
	profile, werr := s.repository.GetByID(ctx, id)
	if werr != nil {
		return werr
	}
	werr = s.repository.DeleteProfile(ctx, id)
	if werr != nil {
		s.logger.Error("failed deleting profile", logattr.UserId(id.String()), logattr.Error(werr.Message()))
		return werr
	}
	s.logger.Info("profile deleted", logattr.AuthUserId(profile.AuthUserId), logattr.Email(profile.Email))

	return s.publisher.Publish(ctx, chatevents.NewUserDeleted(uuid.NewString(), chatevents.UserDeletedData{
		UserId:    profile.AuthUserId,
		DeletedAt: time.Now().UTC(),
	}))
}
