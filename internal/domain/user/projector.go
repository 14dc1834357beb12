package user

import (
	"context"
	"log/slog"

	chatevents "chime-together/internal/events"
	"chime-together/pkg/logattr"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

// Projector creates a local profile for every registered user. Duplicate
// deliveries are absorbed by the conditioned insert.
type Projector struct {
	service *Service
	logger  *slog.Logger
}

func NewProjector(service *Service, logger *slog.Logger) *Projector {
	return &Projector{service: service, logger: logger}
}

func (p *Projector) HandleUserRegistered(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	event, err := chatevents.DecodeUserRegistered(envelope)
	if err != nil {
		return werrors.NewUnprocessableMessageError(err.Error())
	}
	data := event.Data
	_, werr := p.service.CreateIfNotExists(ctx, data.UserId, data.Username, data.Email, data.CreatedAt)
	if werr != nil {
		p.logger.Error(
			"failed projecting registered user",
			logattr.AuthUserId(data.UserId),
			logattr.EventId(event.ID()),
			logattr.Error(werr.Message()),
		)
		return werr
	}
	return nil
}
