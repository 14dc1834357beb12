package messaging

// RabbitMQ topology shared by all services. Every producer publishes to the
// chat.events topic exchange with the event kind as routing key; each
// consuming service binds its own queue. Exhausted deliveries go to the
// dead-letter exchange under the original routing key.
const (
	ExchangeName           = "chat.events"
	ExchangeType           = "topic"
	DeadLetterExchangeName = "chat.events.dlq"
)
