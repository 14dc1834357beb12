package tests

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chime-together/internal/app"
	chatevents "chime-together/internal/events"
	"chime-together/internal/messaging"

	"github.com/cucumber/godog"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/eventskit/rabbitmq"
	slogwatcher "github.com/walletera/logs-watcher/slog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const (
	appKey                    = "app"
	appCtxCancelFuncKey       = "appCtxCancelFuncKey"
	stopLogMsgKey             = "stopLogMsg"
	logsWatcherKey            = "logsWatcher"
	rawEventKey               = "rawEvent"
	envelopeKey               = "envelope"
	logsWatcherWaitForTimeout = 5 * time.Second
	mongodbURL                = "mongodb://localhost:27017/?retryWrites=true&w=majority"

	authdHTTPPort   = 8190
	userdHTTPPort   = 8191
	notifydHTTPPort = 8193
)

// stoppable is the lifecycle surface shared by all service apps.
type stoppable interface {
	Stop(ctx context.Context)
}

var mongodbClient *mongo.Client

func beforeScenarioHook(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	handler, err := newZapHandler()
	if err != nil {
		return ctx, err
	}
	logsWatcher := slogwatcher.NewWatcher(handler)
	ctx = context.WithValue(ctx, logsWatcherKey, logsWatcher)

	client, err := getMongodbClient()
	if err != nil {
		return ctx, err
	}

	// cleanup all service databases before each scenario
	for _, dbName := range []string{"auth", "users", "chat", "notifications"} {
		err = client.Database(dbName).Drop(ctx)
		if err != nil {
			return nil, err
		}
	}

	return ctx, nil
}

func afterScenarioHook(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
	logsWatcher := logsWatcherFromCtx(ctx)

	appFromCtx(ctx).Stop(ctx)
	stopLogMsg := ctx.Value(stopLogMsgKey).(string)
	foundLogEntry := logsWatcher.WaitFor(stopLogMsg, logsWatcherWaitForTimeout)
	if !foundLogEntry {
		return ctx, fmt.Errorf("app termination failed (didn't find expected log entry)")
	}

	err = logsWatcher.Stop()
	if err != nil {
		return ctx, fmt.Errorf("failed stopping the logsWatcher: %w", err)
	}

	return ctx, nil
}

func commonAppOpts(ctx context.Context) []app.Option {
	return []app.Option{
		app.WithRabbitmqHost(rabbitmq.DefaultHost),
		app.WithRabbitmqPort(rabbitmq.DefaultPort),
		app.WithRabbitmqUser(rabbitmq.DefaultUser),
		app.WithRabbitmqPassword(rabbitmq.DefaultPassword),
		app.WithMongoDBURL(mongodbURL),
		app.WithLogHandler(logsWatcherFromCtx(ctx).DecoratedHandler()),
		// Retries would stretch the failure scenarios past the watcher
		// timeout.
		app.WithRetryPolicy(messaging.RetryPolicy{
			MaxRetries:    1,
			RetryInterval: 100 * time.Millisecond,
			DeadLetter:    messaging.DeadLetterPublish,
		}),
	}
}

func runApp(ctx context.Context, serviceName string, serviceApp interface {
	stoppable
	Run(ctx context.Context) error
}, runErr error) (context.Context, error) {
	appCtx, appCtxCancelFunc := context.WithCancel(ctx)

	if runErr != nil {
		appCtxCancelFunc()
		return ctx, fmt.Errorf("failed initializing %s: %w", serviceName, runErr)
	}

	err := serviceApp.Run(appCtx)
	if err != nil {
		appCtxCancelFunc()
		return ctx, fmt.Errorf("failed running %s: %w", serviceName, err)
	}

	ctx = context.WithValue(ctx, appKey, serviceApp)
	ctx = context.WithValue(ctx, appCtxCancelFuncKey, appCtxCancelFunc)
	ctx = context.WithValue(ctx, stopLogMsgKey, serviceName+" stopped")

	foundLogEntry := logsWatcherFromCtx(ctx).WaitFor(serviceName+" started", logsWatcherWaitForTimeout)
	if !foundLogEntry {
		return ctx, fmt.Errorf("%s startup failed (didn't find expected log entry)", serviceName)
	}

	return ctx, nil
}

func aRunningAuthService(ctx context.Context) (context.Context, error) {
	opts := append(commonAppOpts(ctx),
		app.WithHTTPServerPort(authdHTTPPort),
		app.WithJWTSecret("end-to-end-secret"),
	)
	authdApp, err := app.NewAuthdApp(opts...)
	return runApp(ctx, "authd", authdApp, err)
}

func aRunningUserService(ctx context.Context) (context.Context, error) {
	opts := append(commonAppOpts(ctx),
		app.WithHTTPServerPort(userdHTTPPort),
	)
	userdApp, err := app.NewUserdApp(opts...)
	return runApp(ctx, "userd", userdApp, err)
}

func aRunningNotificationService(ctx context.Context) (context.Context, error) {
	opts := append(commonAppOpts(ctx),
		app.WithHTTPServerPort(notifydHTTPPort),
		app.WithSMTPHost("localhost"),
		app.WithSMTPPort(1025),
	)
	notifydApp, err := app.NewNotifydApp(opts...)
	return runApp(ctx, "notifyd", notifydApp, err)
}

func anEvent(ctx context.Context, event *godog.DocString) (context.Context, error) {
	if event == nil || len(event.Content) == 0 {
		return ctx, fmt.Errorf("the event is empty or was not defined")
	}
	rawEvent := []byte(event.Content)
	envelope, err := chatevents.DecodeEnvelope(rawEvent)
	if err != nil {
		return ctx, err
	}
	ctx = context.WithValue(ctx, envelopeKey, envelope)
	return context.WithValue(ctx, rawEventKey, rawEvent), nil
}

func theEventIsPublished(ctx context.Context) (context.Context, error) {
	publisher, err := rabbitmq.NewClient(
		rabbitmq.WithExchangeName(messaging.ExchangeName),
		rabbitmq.WithExchangeType(messaging.ExchangeType),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating rabbitmq client: %s", err.Error())
	}

	envelope := envelopeFromCtx(ctx)
	rawEvent := ctx.Value(rawEventKey).([]byte)
	err = publisher.Publish(ctx, rawPayload{payload: rawEvent, envelope: envelope}, events.RoutingInfo{
		Topic:      messaging.ExchangeName,
		RoutingKey: envelope.Type,
	})
	if err != nil {
		return ctx, fmt.Errorf("error publishing %s event to rabbitmq: %s", envelope.Type, err.Error())
	}

	return ctx, nil
}

func theSameEventIsPublishedAgain(ctx context.Context) (context.Context, error) {
	return theEventIsPublished(ctx)
}

func theServiceProducesTheFollowingLog(ctx context.Context, logMsg string) (context.Context, error) {
	logsWatcher := logsWatcherFromCtx(ctx)
	foundLogEntry := logsWatcher.WaitFor(logMsg, logsWatcherWaitForTimeout)
	if !foundLogEntry {
		return ctx, fmt.Errorf("didn't find expected log entry")
	}
	return ctx, nil
}

func logsWatcherFromCtx(ctx context.Context) *slogwatcher.Watcher {
	value := ctx.Value(logsWatcherKey)
	if value == nil {
		panic("logs watcher not found in context")
	}
	watcher, ok := value.(*slogwatcher.Watcher)
	if !ok {
		panic("logs watcher has invalid type")
	}
	return watcher
}

func appFromCtx(ctx context.Context) stoppable {
	value := ctx.Value(appKey)
	if value == nil {
		panic("service app not found in context")
	}
	serviceApp, ok := value.(stoppable)
	if !ok {
		panic("service app has invalid type")
	}
	return serviceApp
}

func envelopeFromCtx(ctx context.Context) events.EventEnvelope {
	value := ctx.Value(envelopeKey)
	if value == nil {
		panic("event envelope not found in context")
	}
	envelope, ok := value.(events.EventEnvelope)
	if !ok {
		panic("event envelope has invalid type")
	}
	return envelope
}

func newZapHandler() (slog.Handler, error) {
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
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if zapLogger.Core() == nil {
		return nil, fmt.Errorf("zapLogger.Core() is nil")
	}
	return zapslog.NewHandler(zapLogger.Core()), nil
}

func getMongodbClient() (*mongo.Client, error) {
	if mongodbClient != nil {
		return mongodbClient, nil
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(mongodbURL).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	mongodbClient = client

	return mongodbClient, nil
}
