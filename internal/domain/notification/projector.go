package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	chatevents "chime-together/internal/events"
	"chime-together/pkg/logattr"

	"github.com/google/uuid"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/werrors"
)

// StoreProjector persists one notification per sent message. It is
// registered independently from the realtime projector: a store failure
// never blocks the live push and vice versa.
type StoreProjector struct {
	repository Repository
	logger     *slog.Logger
}

func NewStoreProjector(repository Repository, logger *slog.Logger) *StoreProjector {
	return &StoreProjector{repository: repository, logger: logger}
}

func (p *StoreProjector) HandleMessageSent(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	event, err := chatevents.DecodeMessageSent(envelope)
	if err != nil {
		return werrors.NewUnprocessableMessageError(err.Error())
	}
	data := event.Data
	created, werr := p.repository.CreateNotificationIfAbsent(ctx, Notification{
		ID:         uuid.New(),
		MessageId:  data.MessageId,
		ReceiverId: data.ReceiverId,
		SenderId:   data.SenderId,
		Message:    data.Content,
		Timestamp:  data.SentAt,
	})
	if werr != nil {
		p.logger.Error(
			"failed storing notification",
			logattr.MessageId(data.MessageId),
			logattr.ReceiverId(data.ReceiverId),
			logattr.Error(werr.Message()),
		)
		return werr
	}
	if !created {
		p.logger.Info("notification already stored, skipping", logattr.MessageId(data.MessageId))
		return nil
	}
	p.logger.Info(
		"notification stored",
		logattr.MessageId(data.MessageId),
		logattr.ReceiverId(data.ReceiverId),
	)
	return nil
}

// MessagePush is the payload pushed over the websocket to the receiver.
type MessagePush struct {
	Event    string    `json:"event"`
	SenderId string    `json:"senderId"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

// RealtimeProjector forwards sent messages to the receiver's live
// connection. An offline receiver is a benign no-op.
type RealtimeProjector struct {
	pusher Pusher
	logger *slog.Logger
}

func NewRealtimeProjector(pusher Pusher, logger *slog.Logger) *RealtimeProjector {
	return &RealtimeProjector{pusher: pusher, logger: logger}
}

func (p *RealtimeProjector) HandleMessageSent(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	event, err := chatevents.DecodeMessageSent(envelope)
	if err != nil {
		return werrors.NewUnprocessableMessageError(err.Error())
	}
	data := event.Data
	pushErr := p.pusher.SendToUser(data.ReceiverId, MessagePush{
		Event:    "ReceiveMessageNotification",
		SenderId: data.SenderId,
		Content:  data.Content,
		SentAt:   data.SentAt,
	})
	if pushErr != nil {
		p.logger.Error(
			"failed pushing notification",
			logattr.ReceiverId(data.ReceiverId),
			logattr.Error(pushErr.Error()),
		)
		return werrors.NewRetryableInternalError("failed pushing notification to %s: %s", data.ReceiverId, pushErr.Error())
	}
	return nil
}

// WelcomeProjector mails every freshly registered user.
type WelcomeProjector struct {
	sender EmailSender
	logger *slog.Logger
}

func NewWelcomeProjector(sender EmailSender, logger *slog.Logger) *WelcomeProjector {
	return &WelcomeProjector{sender: sender, logger: logger}
}

func (p *WelcomeProjector) HandleUserRegistered(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	event, err := chatevents.DecodeUserRegistered(envelope)
	if err != nil {
		return werrors.NewUnprocessableMessageError(err.Error())
	}
	data := event.Data
	subject := "Welcome to ChimeTogether!"
	body := fmt.Sprintf("Hi %s,\n\nWelcome! Your account has been created successfully.\n", data.Username)
	sendErr := p.sender.Send(ctx, data.Email, subject, body)
	if sendErr != nil {
		p.logger.Error(
			"failed sending welcome email",
			logattr.Email(data.Email),
			logattr.Error(sendErr.Error()),
		)
		return werrors.NewRetryableInternalError("failed sending welcome email: %s", sendErr.Error())
	}
	p.logger.Info("welcome email sent", logattr.Email(data.Email))
	return nil
}
