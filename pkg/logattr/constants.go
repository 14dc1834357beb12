package logattr

import "log/slog"

func ServiceName(serviceName string) slog.Attr {
	return slog.String("service_name", serviceName)
}

func Component(component string) slog.Attr {
	return slog.String("component", component)
}

func EventId(eventId string) slog.Attr {
	return slog.String("event_id", eventId)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func UserId(userId string) slog.Attr {
	return slog.String("user_id", userId)
}

func AuthUserId(authUserId string) slog.Attr {
	return slog.String("auth_user_id", authUserId)
}

func ConversationId(conversationId string) slog.Attr {
	return slog.String("conversation_id", conversationId)
}

func MessageId(messageId string) slog.Attr {
	return slog.String("message_id", messageId)
}

func NotificationId(notificationId string) slog.Attr {
	return slog.String("notification_id", notificationId)
}

func ReceiverId(receiverId string) slog.Attr {
	return slog.String("receiver_id", receiverId)
}

func Email(email string) slog.Attr {
	return slog.String("email", email)
}

func Error(err string) slog.Attr {
	return slog.String("error", err)
}

func CorrelationId(correlationId string) slog.Attr {
	return slog.String("correlation_id", correlationId)
}

func RetryAttempt(attempt int) slog.Attr {
	return slog.Int("retry_attempt", attempt)
}

func QueueName(queueName string) slog.Attr {
	return slog.String("queue_name", queueName)
}
