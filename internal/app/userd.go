package app

import (
	"context"
	"fmt"

	"chime-together/internal/adapters/input/http/userapi"
	"chime-together/internal/adapters/mongodb"
	"chime-together/internal/domain/user"
	"chime-together/internal/events"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"
)

const userdQueueName = "userd"

// UserdApp runs the user profile service: the profile HTTP API plus the
// projector that creates profiles from registrations.
type UserdApp struct {
	*App
}

func NewUserdApp(opts ...Option) (*UserdApp, error) {
	base, err := newApp(opts...)
	if err != nil {
		return nil, err
	}
	return &UserdApp{App: base}, nil
}

func (app *UserdApp) Run(ctx context.Context) error {
	app.initLogger("userd")

	err := app.connectMongo()
	if err != nil {
		return err
	}
	repository := mongodb.NewProfilesRepository(app.mongoClient, "users", "profiles")
	err = repository.EnsureIndexes(ctx)
	if err != nil {
		return fmt.Errorf("error ensuring profiles indexes: %w", err)
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

	service := user.NewService(
		repository,
		publisher,
		app.logger.With(logattr.Component("user.Service")),
	)

	projector := user.NewProjector(service, app.logger.With(logattr.Component("user.Projector")))
	registry := messaging.NewRegistry(app.logger.With(logattr.Component("messaging.Registry")))
	registry.Register(events.KindUserRegistered, projector.HandleUserRegistered)

	err = app.startDeliveryLoop(ctx, userdQueueName, registry)
	if err != nil {
		return err
	}

	handler := userapi.NewHandler(service, app.logger.With(logattr.Component("http.UserHandler")))
	app.startHTTPServer(userapi.NewRouter(handler))

	return nil
}
