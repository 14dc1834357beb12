package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
)

// Conversation is the container for the messages between exactly two users.
// The participant pair is unordered; LastMessage caches the newest content
// for listings.
type Conversation struct {
	ID           uuid.UUID
	Participants []string
	CreatedAt    time.Time
	LastMessage  string
}

// Message is append-only: never mutated or deleted after the insert.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	ReceiverID     string
	Content        string
	SentAt         time.Time
}

type Repository interface {
	// FindConversation looks up the conversation of an unordered pair.
	FindConversation(ctx context.Context, userA string, userB string) (Conversation, werrors.WError)
	// CreateConversation inserts unless a conversation for the pair already
	// exists (unique participant-pair index); returns the winning record
	// either way.
	CreateConversation(ctx context.Context, conversation Conversation) (Conversation, werrors.WError)
	ConversationsOfUser(ctx context.Context, userId string) ([]Conversation, werrors.WError)
	CreateMessage(ctx context.Context, message Message) werrors.WError
	UpdateLastMessage(ctx context.Context, conversationId uuid.UUID, content string) werrors.WError
	ConversationMessages(ctx context.Context, conversationId uuid.UUID, limit int) ([]Message, werrors.WError)
}
