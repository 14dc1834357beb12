package auth

import (
	"context"
	"log/slog"

	chatevents "chime-together/internal/events"
	"chime-together/pkg/logattr"

	"github.com/google/uuid"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

// Projector keeps the credentials store in sync with profile changes owned
// by the user service. Application is idempotent: replaying an event leaves
// the same end state.
type Projector struct {
	repository Repository
	logger     *slog.Logger
}

func NewProjector(repository Repository, logger *slog.Logger) *Projector {
	return &Projector{repository: repository, logger: logger}
}

func (p *Projector) HandleUserUpdated(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	event, err := chatevents.DecodeUserUpdated(envelope)
	if err != nil {
		return werrors.NewUnprocessableMessageError(err.Error())
	}
	userId, err := uuid.Parse(event.Data.UserId)
	if err != nil {
		return werrors.NewUnprocessableMessageError("user.updated carries malformed userId: " + err.Error())
	}
	werr := p.repository.UpdateCredentials(ctx, userId, event.Data.Username, event.Data.Email)
	if werr != nil {
		if werr.Code() == werrors.ResourceNotFoundErrorCode {
			p.logger.Info(
				"credentials not found for update, skipping",
				logattr.UserId(event.Data.UserId),
				logattr.EventId(event.ID()),
			)
			return nil
		}
		p.logger.Error(
			"failed syncing credentials",
			logattr.UserId(event.Data.UserId),
			logattr.Error(werr.Message()),
		)
		return werr
	}
	p.logger.Info("credentials synced from profile update", logattr.UserId(event.Data.UserId))
	return nil
}

func (p *Projector) HandleUserDeleted(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	event, err := chatevents.DecodeUserDeleted(envelope)
	if err != nil {
		return werrors.NewUnprocessableMessageError(err.Error())
	}
	userId, err := uuid.Parse(event.Data.UserId)
	if err != nil {
		return werrors.NewUnprocessableMessageError("user.deleted carries malformed userId: " + err.Error())
	}
	werr := p.repository.DeleteCredentials(ctx, userId)
	if werr != nil {
		if werr.Code() == werrors.ResourceNotFoundErrorCode {
			p.logger.Info(
				"credentials not found for delete, skipping",
				logattr.UserId(event.Data.UserId),
				logattr.EventId(event.ID()),
			)
			return nil
		}
		p.logger.Error(
			"failed deleting credentials",
			logattr.UserId(event.Data.UserId),
			logattr.Error(werr.Message()),
		)
		return werr
	}
	p.logger.Info("credentials removed after profile deletion", logattr.UserId(event.Data.UserId))
	return nil
}
