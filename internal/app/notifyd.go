package app

import (
	"context"
	"fmt"

	"chime-together/internal/adapters/email"
	"chime-together/internal/adapters/input/http/notificationapi"
	"chime-together/internal/adapters/mongodb"
	"chime-together/internal/adapters/ws"
	"chime-together/internal/domain/notification"
	"chime-together/internal/events"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"
)

const notifydQueueName = "notifyd"

// NotifydApp runs the notification service: it projects message.sent into
// stored notifications and live pushes, mails new registrations a welcome,
// and serves the notification HTTP API plus the websocket endpoint.
type NotifydApp struct {
	*App
}

func NewNotifydApp(opts ...Option) (*NotifydApp, error) {
	base, err := newApp(opts...)
	if err != nil {
		return nil, err
	}
	return &NotifydApp{App: base}, nil
}

func (app *NotifydApp) Run(ctx context.Context) error {
	app.initLogger("notifyd")

	err := app.connectMongo()
	if err != nil {
		return err
	}
	repository := mongodb.NewNotificationsRepository(app.mongoClient, "notifications", "notifications")
	err = repository.EnsureIndexes(ctx)
	if err != nil {
		return fmt.Errorf("error ensuring notifications indexes: %w", err)
	}

	hub := ws.NewHub(app.logger.With(logattr.Component("ws.Hub")))
	emailSender := email.NewSMTPSender(app.smtpHost, app.smtpPort, app.emailFrom)

	storeProjector := notification.NewStoreProjector(
		repository,
		app.logger.With(logattr.Component("notification.StoreProjector")),
	)
	realtimeProjector := notification.NewRealtimeProjector(
		hub,
		app.logger.With(logattr.Component("notification.RealtimeProjector")),
	)
	welcomeProjector := notification.NewWelcomeProjector(
		emailSender,
		app.logger.With(logattr.Component("notification.WelcomeProjector")),
	)

	// Store and realtime run independently for the same event: one failing
	// does not block the other.
	registry := messaging.NewRegistry(app.logger.With(logattr.Component("messaging.Registry")))
	registry.Register(events.KindMessageSent, storeProjector.HandleMessageSent, realtimeProjector.HandleMessageSent)
	registry.Register(events.KindUserRegistered, welcomeProjector.HandleUserRegistered)

	err = app.startDeliveryLoop(ctx, notifydQueueName, registry)
	if err != nil {
		return err
	}

	handler := notificationapi.NewHandler(repository, hub, app.logger.With(logattr.Component("http.NotificationHandler")))
	app.startHTTPServer(notificationapi.NewRouter(handler))

	return nil
}
