package app

import (
	"context"
	"fmt"

	"chime-together/internal/adapters/input/http/chatapi"
	"chime-together/internal/adapters/mongodb"
	"chime-together/internal/adapters/ws"
	"chime-together/internal/domain/chat"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"

	"github.com/redis/go-redis/v9"
)

// ChatdApp runs the chat service: conversations, message history and the
// send endpoint that publishes message.sent. It consumes nothing.
type ChatdApp struct {
	*App
}

func NewChatdApp(opts ...Option) (*ChatdApp, error) {
	base, err := newApp(opts...)
	if err != nil {
		return nil, err
	}
	return &ChatdApp{App: base}, nil
}

func (app *ChatdApp) Run(ctx context.Context) error {
	app.initLogger("chatd")

	err := app.connectMongo()
	if err != nil {
		return err
	}
	repository := mongodb.NewChatRepository(app.mongoClient, "chat")
	err = repository.EnsureIndexes(ctx)
	if err != nil {
		return fmt.Errorf("error ensuring chat indexes: %w", err)
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

	service := chat.NewService(
		repository,
		publisher,
		app.logger.With(logattr.Component("chat.Service")),
	)

	hub := ws.NewHub(app.logger.With(logattr.Component("ws.Hub")))

	var redisClient *redis.Client
	if app.redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: app.redisAddr})
	}

	handler := chatapi.NewHandler(service, hub, app.logger.With(logattr.Component("http.ChatHandler")))
	app.startHTTPServer(chatapi.NewRouter(handler, redisClient))

	return nil
}
