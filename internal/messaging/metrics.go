package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_published_total",
		Help: "Domain events handed to the transport, by kind.",
	}, []string{"kind"})
	eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_consumed_total",
		Help: "Domain events successfully dispatched and acked, by kind.",
	}, []string{"kind"})
	handlerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_event_handler_retries_total",
		Help: "In-process dispatch retries after a retryable handler failure, by kind.",
	}, []string{"kind"})
	eventsDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_dead_lettered_total",
		Help: "Events published to the dead-letter exchange, by kind.",
	}, []string{"kind"})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_dropped_total",
		Help: "Events dropped after exhausting retries, by kind.",
	}, []string{"kind"})
)
