package chat

import (
	"context"
	"log/slog"
	"time"

	chatevents "chime-together/internal/events"
	"chime-together/internal/messaging"
	"chime-together/pkg/logattr"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
)

const historyLimit = 100

type Service struct {
	repository Repository
	publisher  *messaging.Publisher
	logger     *slog.Logger
}

func NewService(repository Repository, publisher *messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		publisher:  publisher,
		logger:     logger,
	}
}

// SendMessage finds or creates the conversation for the pair, commits the
// message, then publishes message.sent. The publish happens strictly after
// the insert; a publish failure is surfaced while the message stands.
func (s *Service) SendMessage(ctx context.Context, senderId string, receiverId string, content string) (Message, werrors.WError) {
	conversation, werr := s.repository.FindConversation(ctx, senderId, receiverId)
	if werr != nil {
		if werr.Code() != werrors.ResourceNotFoundErrorCode {
			return Message{}, werr
		}
		conversation, werr = s.repository.CreateConversation(ctx, Conversation{
			ID:           uuid.New(),
			Participants: []string{senderId, receiverId},
			CreatedAt:    time.Now().UTC(),
		})
		if werr != nil {
			s.logger.Error("failed creating conversation", logattr.Error(werr.Message()))
			return Message{}, werr
		}
	}

	message := Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       senderId,
		ReceiverID:     receiverId,
		Content:        content,
		SentAt:         time.Now().UTC(),
	}
	werr = s.repository.CreateMessage(ctx, message)
	if werr != nil {
		s.logger.Error("failed storing message", logattr.ConversationId(conversation.ID.String()), logattr.Error(werr.Message()))
		return Message{}, werr
	}
	werr = s.repository.UpdateLastMessage(ctx, conversation.ID, content)
	if werr != nil {
		// The message is committed; a stale lastMessage cache is tolerable.
		s.logger.Warn(
			"failed caching last message",
			logattr.ConversationId(conversation.ID.String()),
			logattr.Error(werr.Message()),
		)
	}
	s.logger.Info(
		"message sent",
		logattr.MessageId(message.ID.String()),
		logattr.ConversationId(conversation.ID.String()),
		logattr.ReceiverId(receiverId),
	)

	werr = s.publisher.Publish(ctx, chatevents.NewMessageSent(uuid.NewString(), chatevents.MessageSentData{
		MessageId:      message.ID.String(),
		ConversationId: conversation.ID.String(),
		SenderId:       senderId,
		ReceiverId:     receiverId,
		Content:        content,
		SentAt:         message.SentAt,
	}))
	if werr != nil {
		return Message{}, werr
	}
	return message, nil
}

func (s *Service) ConversationsOfUser(ctx context.Context, userId string) ([]Conversation, werrors.WError) {
	return s.repository.ConversationsOfUser(ctx, userId)
}

func (s *Service) ConversationHistory(ctx context.Context, conversationId uuid.UUID) ([]Message, werrors.WError) {
	return s.repository.ConversationMessages(ctx, conversationId, historyLimit)
}
