package app

import (
	"log/slog"

	"chime-together/internal/messaging"
)

func WithRabbitmqHost(host string) func(a *App) { return func(a *App) { a.rabbitmqHost = host } }

func WithRabbitmqPort(port int) func(a *App) { return func(a *App) { a.rabbitmqPort = port } }

func WithRabbitmqUser(user string) func(a *App) { return func(a *App) { a.rabbitmqUser = user } }

func WithRabbitmqPassword(password string) func(a *App) {
	return func(a *App) { a.rabbitmqPassword = password }
}

func WithMongoDBURL(url string) func(a *App) { return func(a *App) { a.mongodbURL = url } }

func WithHTTPServerPort(port int) func(a *App) { return func(a *App) { a.httpServerPort = port } }

func WithJWTSecret(secret string) func(a *App) { return func(a *App) { a.jwtSecret = secret } }

func WithRedisAddr(addr string) func(a *App) { return func(a *App) { a.redisAddr = addr } }

func WithSMTPHost(host string) func(a *App) { return func(a *App) { a.smtpHost = host } }

func WithSMTPPort(port int) func(a *App) { return func(a *App) { a.smtpPort = port } }

func WithEmailFrom(from string) func(a *App) { return func(a *App) { a.emailFrom = from } }

func WithRetryPolicy(policy messaging.RetryPolicy) func(a *App) {
	return func(a *App) { a.retryPolicy = policy }
}

func WithLogHandler(handler slog.Handler) func(app *App) {
	return func(app *App) { app.logHandler = handler }
}
