package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"

	"github.com/walletera/eventskit/rabbitmq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// App carries the configuration and runtime state shared by every service
// binary. Each service type embeds it and adds its own wiring.
type App struct {
	rabbitmqHost     string
	rabbitmqPort     int
	rabbitmqUser     string
	rabbitmqPassword string
	mongodbURL       string
	httpServerPort   int
	jwtSecret        string
	redisAddr        string
	smtpHost         string
	smtpPort         int
	emailFrom        string
	retryPolicy      messaging.RetryPolicy
	logHandler       slog.Handler

	serviceName  string
	logger       *slog.Logger
	mongoClient  *mongo.Client
	httpServer   *http.Server
	deliveryLoop *messaging.DeliveryLoop
}

type Option func(app *App)

func newApp(opts ...Option) (*App, error) {
	app := &App{}
	err := setDefaultOpts(app)
	if err != nil {
		return nil, fmt.Errorf("failed setting default options: %w", err)
	}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

// Stop drains the delivery loop (when the service consumes), shuts the http
// server down and disconnects from mongo, all bounded by ctx.
func (app *App) Stop(ctx context.Context) {
	if app.deliveryLoop != nil {
		app.deliveryLoop.Stop(ctx)
	}
	if app.httpServer != nil {
		err := app.httpServer.Shutdown(ctx)
		if err != nil {
			app.logger.Error("error stopping http server", logattr.Error(err.Error()))
		}
	}
	if app.mongoClient != nil {
		err := app.mongoClient.Disconnect(ctx)
		if err != nil {
			app.logger.Error("error disconnecting from mongo", logattr.Error(err.Error()))
		}
	}
	app.logger.Info(app.serviceName + " stopped")
}

func (app *App) initLogger(serviceName string) {
	app.serviceName = serviceName
	app.logger = slog.
		New(app.logHandler).
		With(logattr.ServiceName(serviceName))
	app.logger.Info(serviceName + " started")
}

func setDefaultOpts(app *App) error {
	zapLogger, err := newZapLogger()
	if err != nil {
		return err
	}
	app.logHandler = zapslog.NewHandler(zapLogger.Core())
	app.retryPolicy = messaging.DefaultRetryPolicy()
	return nil
}

func newZapLogger() (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Development:       false,
		DisableStacktrace: true,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapConfig.Build()
}

func (app *App) connectMongo() error {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(app.mongodbURL).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("error connecting to mongodb: %w", err)
	}
	app.mongoClient = client
	return nil
}

// newPublisherClient builds the rabbitmq client used for publishing to the
// given exchange. A dedicated client per concern keeps channel usage simple.
func (app *App) newPublisherClient(exchangeName string) (*rabbitmq.Client, error) {
	client, err := rabbitmq.NewClient(
		rabbitmq.WithHost(app.rabbitmqHost),
		rabbitmq.WithPort(uint(app.rabbitmqPort)),
		rabbitmq.WithUser(app.rabbitmqUser),
		rabbitmq.WithPassword(app.rabbitmqPassword),
		rabbitmq.WithExchangeName(exchangeName),
		rabbitmq.WithExchangeType(messaging.ExchangeType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rabbitmq publisher client for %s: %w", exchangeName, err)
	}
	return client, nil
}

// newConsumerClient declares the service queue bound to the events exchange
// with one binding per registered kind.
func (app *App) newConsumerClient(queueName string, routingKeys []string) (*rabbitmq.Client, error) {
	client, err := rabbitmq.NewClient(
		rabbitmq.WithHost(app.rabbitmqHost),
		rabbitmq.WithPort(uint(app.rabbitmqPort)),
		rabbitmq.WithUser(app.rabbitmqUser),
		rabbitmq.WithPassword(app.rabbitmqPassword),
		rabbitmq.WithExchangeName(messaging.ExchangeName),
		rabbitmq.WithExchangeType(messaging.ExchangeType),
		rabbitmq.WithQueueName(queueName),
		rabbitmq.WithConsumerRoutingKeys(routingKeys...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rabbitmq consumer client for %s: %w", queueName, err)
	}
	return client, nil
}

func (app *App) startHTTPServer(handler http.Handler) {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", app.httpServerPort),
		Handler: handler,
	}
	app.httpServer = httpServer

	go func() {
		defer app.logger.Info("http server stopped")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("http server error", logattr.Error(err.Error()))
		}
	}()

	app.logger.Info("http server started", slog.Int("port", app.httpServerPort))
}

// startDeliveryLoop wires the consumer queue to the registry and starts the
// loop. The dead-letter publisher is only created when the policy needs it.
func (app *App) startDeliveryLoop(ctx context.Context, queueName string, registry *messaging.Registry) error {
	consumerClient, err := app.newConsumerClient(queueName, registry.Kinds())
	if err != nil {
		return err
	}

	var deadLetters *rabbitmq.Client
	if app.retryPolicy.DeadLetter == messaging.DeadLetterPublish {
		deadLetters, err = app.newPublisherClient(messaging.DeadLetterExchangeName)
		if err != nil {
			return err
		}
	}

	loopLogger := app.logger.With(
		logattr.Component("messaging.DeliveryLoop"),
		logattr.QueueName(queueName),
	)
	if deadLetters != nil {
		app.deliveryLoop = messaging.NewDeliveryLoop(consumerClient, registry, deadLetters, app.retryPolicy, loopLogger)
	} else {
		app.deliveryLoop = messaging.NewDeliveryLoop(consumerClient, registry, nil, app.retryPolicy, loopLogger)
	}
	err = app.deliveryLoop.Start(ctx)
	if err != nil {
		return fmt.Errorf("error starting delivery loop for %s: %w", queueName, err)
	}
	return nil
}
