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
	HTTPServerPort   int    `env:"HTTP_SERVER_PORT" envDefault:"8080"`
	JWTSecret        string `env:"JWT_SECRET,required"`
}

func main() {
	ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer ctxCancel()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		panic(err)
	}

	authdApp, err := app.NewAuthdApp(
		app.WithRabbitmqHost(cfg.RabbitmqHost),
		app.WithRabbitmqPort(cfg.RabbitmqPort),
		app.WithRabbitmqUser(cfg.RabbitmqUser),
		app.WithRabbitmqPassword(cfg.RabbitmqPassword),
		app.WithMongoDBURL(cfg.MongodbURL),
		app.WithHTTPServerPort(cfg.HTTPServerPort),
		app.WithJWTSecret(cfg.JWTSecret),
	)
	if err != nil {
		panic(err)
	}

	err = authdApp.Run(ctx)
	if err != nil {
		panic(err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCtxCancel()

	authdApp.Stop(shutdownCtx)
}
