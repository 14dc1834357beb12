package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"chime-together/internal/app"

	"github.com/caarlos0/env/v11"
)

const shutdownTimeout = 10 * time.Second

type config struct {
	RabbitmqHost     string `env:"RABBITMQ_HOST,required"`
	RabbitmqPort     int    `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitmqUser     string `env:"RABBITMQ_USER,required"`
	RabbitmqPassword string `env:"RABBITMQ_PASSWORD,required"`
	MongodbURL       string `env:"MONGODB_URL,required"`
	HTTPServerPort   int    `env:"HTTP_SERVER_PORT" envDefault:"8083"`
	SMTPHost         string `env:"SMTP_HOST,required"`
	SMTPPort         int    `env:"SMTP_PORT" envDefault:"1025"`
	EmailFrom        string `env:"EMAIL_FROM"`
}

func main() {
	ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer ctxCancel()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		panic(err)
	}

	notifydApp, err := app.NewNotifydApp(
		app.WithRabbitmqHost(cfg.RabbitmqHost),
		app.WithRabbitmqPort(cfg.RabbitmqPort),
		app.WithRabbitmqUser(cfg.RabbitmqUser),
		app.WithRabbitmqPassword(cfg.RabbitmqPassword),
		app.WithMongoDBURL(cfg.MongodbURL),
		app.WithHTTPServerPort(cfg.HTTPServerPort),
		app.WithSMTPHost(cfg.SMTPHost),
		app.WithSMTPPort(cfg.SMTPPort),
		app.WithEmailFrom(cfg.EmailFrom),
	)
	if err != nil {
		panic(err)
	}

	err = notifydApp.Run(ctx)
	if err != nil {
		panic(err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCtxCancel()

	notifydApp.Stop(shutdownCtx)
}
