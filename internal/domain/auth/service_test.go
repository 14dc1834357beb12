package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chime-together/internal/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLoggerWithHandler(handler slog.Handler) *slog.Logger {
	return slog.New(handler)
}

type fakeRepository struct {
	mu      sync.Mutex
	byEmail map[string]Credentials
	byID    map[uuid.UUID]Credentials
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byEmail: make(map[string]Credentials),
		byID:    make(map[uuid.UUID]Credentials),
	}
}

func (r *fakeRepository) CreateCredentials(_ context.Context, credentials Credentials) (bool, werrors.WError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[credentials.Email]; exists {
		return false, nil
	}
	r.byEmail[credentials.Email] = credentials
	r.byID[credentials.ID] = credentials
	return true, nil
}

func (r *fakeRepository) GetByEmail(_ context.Context, email string) (Credentials, werrors.WError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	credentials, ok := r.byEmail[email]
	if !ok {
		return Credentials{}, werrors.NewResourceNotFoundError("credentials with email %s not found", email)
	}
	return credentials, nil
}

func (r *fakeRepository) UpdateCredentials(_ context.Context, id uuid.UUID, username string, email string) werrors.WError {
	r.mu.Lock()
	defer r.mu.Unlock()
	credentials, ok := r.byID[id]
	if !ok {
		return werrors.NewResourceNotFoundError("credentials with id %s not found", id)
	}
	delete(r.byEmail, credentials.Email)
	credentials.Username = username
	credentials.Email = email
	r.byID[id] = credentials
	r.byEmail[email] = credentials
	return nil
}

func (r *fakeRepository) DeleteCredentials(_ context.Context, id uuid.UUID) werrors.WError {
	r.mu.Lock()
	defer r.mu.Unlock()
	credentials, ok := r.byID[id]
	if !ok {
		return werrors.NewResourceNotFoundError("credentials with id %s not found", id)
	}
	delete(r.byID, id)
	delete(r.byEmail, credentials.Email)
	return nil
}

type fakeTransport struct {
	mu        sync.Mutex
	published []events.EventData
	failWith  error
}

func (t *fakeTransport) Publish(_ context.Context, data events.EventData, _ events.RoutingInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return t.failWith
	}
	t.published = append(t.published, data)
	return nil
}

func (t *fakeTransport) publishedEvents() []events.EventData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]events.EventData(nil), t.published...)
}

func newTestService(repository Repository, transport events.Publisher) *Service {
	logger := testLogger()
	publisher := messaging.NewPublisher(transport, "chat.events", logger)
	signer := NewTokenSigner([]byte("test-secret"), time.Hour)
	return NewService(repository, publisher, signer, logger)
}

func TestRegisterReturnsTokenAndPublishesUserRegistered(t *testing.T) {
	repository := newFakeRepository()
	transport := &fakeTransport{}
	service := newTestService(repository, transport)

	token, err := service.Register(context.Background(), "alice", "alice@example.com", "s3cret")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	published := transport.publishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, "user.registered", published[0].Type())

	stored, werr := repository.GetByEmail(context.Background(), "alice@example.com")
	require.Nil(t, werr)
	assert.Equal(t, "alice", stored.Username)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
}

func TestRegisterRejectsAlreadyRegisteredEmail(t *testing.T) {
	repository := newFakeRepository()
	transport := &fakeTransport{}
	service := newTestService(repository, transport)

	_, err := service.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = service.Register(context.Background(), "impostor", "alice@example.com", "other")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, transport.publishedEvents(), 1)
}

func TestRegisterKeepsCredentialsWhenPublishFails(t *testing.T) {
	repository := newFakeRepository()
	transport := &fakeTransport{failWith: assert.AnError}
	service := newTestService(repository, transport)

	_, err := service.Register(context.Background(), "alice", "alice@example.com", "s3cret")

	require.Error(t, err)
	_, werr := repository.GetByEmail(context.Background(), "alice@example.com")
	assert.Nil(t, werr, "credentials must stand even when the event publish fails")
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	repository := newFakeRepository()
	transport := &fakeTransport{}
	service := newTestService(repository, transport)

	_, err := service.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	token, err := service.Login(context.Background(), "alice@example.com", "s3cret")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repository := newFakeRepository()
	transport := &fakeTransport{}
	service := newTestService(repository, transport)

	_, err := service.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = service.Login(context.Background(), "alice@example.com", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	repository := newFakeRepository()
	transport := &fakeTransport{}
	service := newTestService(repository, transport)

	_, err := service.Login(context.Background(), "nobody@example.com", "s3cret")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
