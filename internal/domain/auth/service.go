package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	chatevents "chime-together/internal/events"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	repository Repository
	publisher  *messaging.Publisher
	signer     *TokenSigner
	logger     *slog.Logger
}

func NewService(repository Repository, publisher *messaging.Publisher, signer *TokenSigner, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		publisher:  publisher,
		signer:     signer,
		logger:     logger,
	}
}

// Register creates credentials and, once the insert is committed, publishes
// user.registered. A publish failure leaves the credentials in place and is
// surfaced to the caller; there is no outbox (accepted gap).
func (s *Service) Register(ctx context.Context, username string, email string, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", werrors.NewNonRetryableInternalError("hashing password: %s", err.Error())
	}
	credentials := Credentials{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	created, werr := s.repository.CreateCredentials(ctx, credentials)
	if werr != nil {
		s.logger.Error("failed creating credentials", logattr.Email(email), logattr.Error(werr.Message()))
		return "", werr
	}
	if !created {
		return "", ErrEmailTaken
	}
	s.logger.Info("user registered", logattr.UserId(credentials.ID.String()), logattr.Email(email))

	werr = s.publisher.Publish(ctx, chatevents.NewUserRegistered(uuid.NewString(), chatevents.UserRegisteredData{
		UserId:    credentials.ID.String(),
		Username:  credentials.Username,
		Email:     credentials.Email,
		CreatedAt: credentials.CreatedAt,
	}))
	if werr != nil {
		return "", werr
	}

	return s.signer.Sign(credentials)
}

func (s *Service) Login(ctx context.Context, email string, password string) (string, error) {
	credentials, werr := s.repository.GetByEmail(ctx, email)
	if werr != nil {
		if werr.Code() == werrors.ResourceNotFoundErrorCode {
			return "", ErrInvalidCredentials
		}
		s.logger.Error("failed fetching credentials", logattr.Email(email), logattr.Error(werr.Message()))
		return "", werr
	}
	if bcrypt.CompareHashAndPassword([]byte(credentials.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.signer.Sign(credentials)
}
