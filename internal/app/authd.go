package app

import (
	"context"
	"fmt"

	"chime-together/internal/adapters/input/http/authapi"
	"chime-together/internal/adapters/mongodb"
	"chime-together/internal/domain/auth"
	"chime-together/internal/events"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"
)

const authdQueueName = "authd"

// AuthdApp runs the authentication service: the register/login HTTP API plus
// the projector that keeps credentials in sync with profile changes.
type AuthdApp struct {
	*App
}

func NewAuthdApp(opts ...Option) (*AuthdApp, error) {
	base, err := newApp(opts...)
	if err != nil {
		return nil, err
	}
	return &AuthdApp{App: base}, nil
}

func (app *AuthdApp) Run(ctx context.Context) error {
	app.initLogger("authd")

	if app.jwtSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}

	err := app.connectMongo()
	if err != nil {
		return err
	}
	repository := mongodb.NewCredentialsRepository(app.mongoClient, "auth", "credentials")
	err = repository.EnsureIndexes(ctx)
	if err != nil {
		return fmt.Errorf("error ensuring credentials indexes: %w", err)
	}

	publisherClient, err := app.newPublisherClient(messaging.ExchangeName)
	if err != nil {
		return err
	}
	publisher := messaging.NewPublisher(
		publisherClient,
		messaging.ExchangeName,
		app.logger.With(logattr.Component("messaging.Publisher")),
	)

	signer := auth.NewTokenSigner([]byte(app.jwtSecret), auth.DefaultTokenTTL)
	service := auth.NewService(
		repository,
		publisher,
		signer,
		app.logger.With(logattr.Component("auth.Service")),
	)

	projector := auth.NewProjector(repository, app.logger.With(logattr.Component("auth.Projector")))
	registry := messaging.NewRegistry(app.logger.With(logattr.Component("messaging.Registry")))
	registry.Register(events.KindUserUpdated, projector.HandleUserUpdated)
	registry.Register(events.KindUserDeleted, projector.HandleUserDeleted)

	err = app.startDeliveryLoop(ctx, authdQueueName, registry)
	if err != nil {
		return err
	}

	handler := authapi.NewHandler(service, app.logger.With(logattr.Component("http.AuthHandler")))
	app.startHTTPServer(authapi.NewRouter(handler))

	return nil
}
