package events

import (
	"time"

	"github.com/walletera/eventskit/events"
)

// MessageSentData is published by the chat service after a message is
// committed. MessageId is the identity consumers dedup on.
type MessageSentData struct {
	MessageId      string    `json:"messageId"`
	ConversationId string    `json:"conversationId"`
	SenderId       string    `json:"senderId"`
	ReceiverId     string    `json:"receiverId"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sentAt"`
}

type MessageSent = DomainEvent[MessageSentData]

func NewMessageSent(correlationId string, data MessageSentData) MessageSent {
	return newDomainEvent(KindMessageSent, correlationId, data)
}

func DecodeMessageSent(envelope events.EventEnvelope) (MessageSent, error) {
	return decodeData[MessageSentData](envelope, KindMessageSent)
}
