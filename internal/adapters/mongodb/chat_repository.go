package mongodb

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"chime-together/internal/domain/chat"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ConversationBSON struct {
	ID           uuid.UUID `bson:"_id"`
	PairKey      string    `bson:"pairKey"`
	Participants []string  `bson:"participants"`
	CreatedAt    time.Time `bson:"createdAt"`
	LastMessage  string    `bson:"lastMessage"`
}

type MessageBSON struct {
	ID             uuid.UUID `bson:"_id"`
	ConversationID uuid.UUID `bson:"conversationId"`
	SenderID       string    `bson:"senderId"`
	ReceiverID     string    `bson:"receiverId"`
	Content        string    `bson:"content"`
	SentAt         time.Time `bson:"sentAt"`
}

type ChatRepository struct {
	client            *mongo.Client
	dbName            string
	conversationsName string
	messagesName      string
}

var _ chat.Repository = (*ChatRepository)(nil)

func NewChatRepository(client *mongo.Client, dbName string) *ChatRepository {
	return &ChatRepository{
		client:            client,
		dbName:            dbName,
		conversationsName: "conversations",
		messagesName:      "messages",
	}
}

// EnsureIndexes creates the unique participant-pair index (so two racing
// sends cannot create two conversations for the same pair) and the message
// history index.
func (r *ChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.conversations().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pairKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.messages().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "sentAt", Value: 1}},
	})
	return err
}

// pairKey is the canonical identity of an unordered participant pair.
func pairKey(userA string, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

func (r *ChatRepository) FindConversation(ctx context.Context, userA string, userB string) (chat.Conversation, werrors.WError) {
	var conversationBSON ConversationBSON
	err := r.conversations().FindOne(ctx, bson.M{"pairKey": pairKey(userA, userB)}).Decode(&conversationBSON)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return chat.Conversation{}, werrors.NewResourceNotFoundError("no conversation for pair")
		}
		return chat.Conversation{}, werrors.NewRetryableInternalError("failed to find conversation: %s", err.Error())
	}
	return conversationFromBSON(conversationBSON), nil
}

func (r *ChatRepository) CreateConversation(ctx context.Context, conversation chat.Conversation) (chat.Conversation, werrors.WError) {
	if len(conversation.Participants) != 2 {
		return chat.Conversation{}, werrors.NewNonRetryableInternalError("conversation requires exactly two participants")
	}
	key := pairKey(conversation.Participants[0], conversation.Participants[1])
	_, err := r.conversations().InsertOne(ctx, ConversationBSON{
		ID:           conversation.ID,
		PairKey:      key,
		Participants: conversation.Participants,
		CreatedAt:    conversation.CreatedAt,
		LastMessage:  conversation.LastMessage,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race: another send created the pair first.
			return r.FindConversation(ctx, conversation.Participants[0], conversation.Participants[1])
		}
		return chat.Conversation{}, werrors.NewRetryableInternalError("failed to create conversation: %s", err.Error())
	}
	return conversation, nil
}

func (r *ChatRepository) ConversationsOfUser(ctx context.Context, userId string) ([]chat.Conversation, werrors.WError) {
	cursor, err := r.conversations().Find(ctx, bson.M{"participants": userId})
	if err != nil {
		return nil, werrors.NewRetryableInternalError("failed to find conversations: %s", err.Error())
	}
	var conversationsBSON []ConversationBSON
	if err := cursor.All(ctx, &conversationsBSON); err != nil {
		return nil, werrors.NewRetryableInternalError("failed to decode conversations: %s", err.Error())
	}
	conversations := make([]chat.Conversation, 0, len(conversationsBSON))
	for _, conversationBSON := range conversationsBSON {
		conversations = append(conversations, conversationFromBSON(conversationBSON))
	}
	return conversations, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, message chat.Message) werrors.WError {
	_, err := r.messages().InsertOne(ctx, MessageBSON(message))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return werrors.NewNonRetryableInternalError("duplicate message id: %s", message.ID)
		}
		return werrors.NewRetryableInternalError("failed to create message: %s", err.Error())
	}
	return nil
}

func (r *ChatRepository) UpdateLastMessage(ctx context.Context, conversationId uuid.UUID, content string) werrors.WError {
	result, err := r.conversations().UpdateOne(ctx,
		bson.M{"_id": conversationId},
		bson.M{"$set": bson.M{"lastMessage": content}},
	)
	if err != nil {
		return werrors.NewRetryableInternalError("failed to update last message: %s", err.Error())
	}
	if result.MatchedCount == 0 {
		return werrors.NewResourceNotFoundError("conversation not found: %s", conversationId)
	}
	return nil
}

func (r *ChatRepository) ConversationMessages(ctx context.Context, conversationId uuid.UUID, limit int) ([]chat.Message, werrors.WError) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.messages().Find(ctx, bson.M{"conversationId": conversationId}, findOpts)
	if err != nil {
		return nil, werrors.NewRetryableInternalError("failed to find messages: %s", err.Error())
	}
	var messagesBSON []MessageBSON
	if err := cursor.All(ctx, &messagesBSON); err != nil {
		return nil, werrors.NewRetryableInternalError("failed to decode messages: %s", err.Error())
	}
	messages := make([]chat.Message, 0, len(messagesBSON))
	for _, messageBSON := range messagesBSON {
		messages = append(messages, chat.Message(messageBSON))
	}
	return messages, nil
}

func conversationFromBSON(conversationBSON ConversationBSON) chat.Conversation {
	return chat.Conversation{
		ID:           conversationBSON.ID,
		Participants: conversationBSON.Participants,
		CreatedAt:    conversationBSON.CreatedAt,
		LastMessage:  conversationBSON.LastMessage,
	}
}

func (r *ChatRepository) conversations() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.conversationsName)
}

func (r *ChatRepository) messages() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.messagesName)
}
