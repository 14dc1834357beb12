package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	chatevents "chime-together/internal/events"
	"chime-together/pkg/logattr"

	"github.com/walletera/eventskit/events"
	"github.com/walletera/eventskit/messages"
	"github.com/walletera/werrors"
)

// DeadLetterPolicy decides what happens to an envelope once retries are
// exhausted (or the failure is non-retryable).
type DeadLetterPolicy string

const (
	// DeadLetterPublish re-publishes the envelope to the dead-letter
	// exchange, then acks the original delivery.
	DeadLetterPublish DeadLetterPolicy = "publish"
	// DeadLetterDrop acks the delivery and logs an error. Only for
	// deployments without a dead-letter queue.
	DeadLetterDrop DeadLetterPolicy = "drop"
)

// RetryPolicy bounds the in-process redelivery of a failed dispatch.
// Retries use a fixed interval; only retryable failures are retried.
type RetryPolicy struct {
	MaxRetries    int
	RetryInterval time.Duration
	DeadLetter    DeadLetterPolicy
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		DeadLetter:    DeadLetterPublish,
	}
}

const defaultProcessingTimeout = time.Minute

// DeliveryLoop pulls messages from the transport and drives the registry.
// Message processing runs concurrently; per-document store atomicity plus
// idempotent projectors make duplicate or racing deliveries safe.
type DeliveryLoop struct {
	consumer          messages.Consumer
	registry          *Registry
	deadLetters       events.Publisher
	policy            RetryPolicy
	processingTimeout time.Duration
	logger            *slog.Logger
	inFlight          sync.WaitGroup
}

type DeliveryOpt func(d *DeliveryLoop)

func WithProcessingTimeout(timeout time.Duration) DeliveryOpt {
	return func(d *DeliveryLoop) {
		d.processingTimeout = timeout
	}
}

// NewDeliveryLoop builds a loop over the given consumer. deadLetters may be
// nil when the policy is DeadLetterDrop.
func NewDeliveryLoop(
	consumer messages.Consumer,
	registry *Registry,
	deadLetters events.Publisher,
	policy RetryPolicy,
	logger *slog.Logger,
	opts ...DeliveryOpt,
) *DeliveryLoop {
	d := &DeliveryLoop{
		consumer:          consumer,
		registry:          registry,
		deadLetters:       deadLetters,
		policy:            policy,
		processingTimeout: defaultProcessingTimeout,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins consuming. Cancelling ctx closes the consumer, which stops
// intake; handlers already dispatched run to completion (see Stop).
func (d *DeliveryLoop) Start(ctx context.Context) error {
	msgCh, err := d.consumer.Consume()
	if err != nil {
		return fmt.Errorf("failed consuming from message consumer: %w", err)
	}
	go func() {
		<-ctx.Done()
		closeErr := d.consumer.Close()
		if closeErr != nil {
			d.logger.Error("failed closing message consumer", logattr.Error(closeErr.Error()))
		}
	}()
	go d.processMsgs(ctx, msgCh)
	return nil
}

// Stop waits for in-flight handler invocations to drain, up to ctx deadline.
func (d *DeliveryLoop) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("shutdown timed out waiting for in-flight handlers")
	}
}

func (d *DeliveryLoop) processMsgs(ctx context.Context, ch <-chan messages.Message) {
	for msg := range ch {
		d.inFlight.Add(1)
		go func(msg messages.Message) {
			defer d.inFlight.Done()
			// Detached from the consumer's lifetime so in-flight work
			// survives shutdown; the timeout still bounds it.
			msgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.processingTimeout)
			defer cancel()
			d.processMsg(msgCtx, msg)
		}(msg)
	}
}

func (d *DeliveryLoop) processMsg(ctx context.Context, msg messages.Message) {
	envelope, err := chatevents.DecodeEnvelope(msg.Payload())
	if err != nil {
		d.logger.Error("received unprocessable message", logattr.Error(err.Error()))
		d.finalize(ctx, msg, rawEvent{payload: msg.Payload()}, werrors.NewUnprocessableMessageError(err.Error()))
		return
	}
	werr := d.dispatchWithRetry(ctx, envelope)
	if werr == nil {
		eventsConsumed.WithLabelValues(envelope.Type).Inc()
		ackErr := msg.Acknowledger().Ack()
		if ackErr != nil {
			d.logger.Error(
				"failed acking message",
				logattr.EventType(envelope.Type),
				logattr.EventId(envelope.Id.String()),
				logattr.Error(ackErr.Error()),
			)
		}
		return
	}
	d.finalize(ctx, msg, rawEvent{payload: msg.Payload(), envelope: envelope}, werr)
}

func (d *DeliveryLoop) dispatchWithRetry(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
	for attempt := 0; ; attempt++ {
		werr := d.registry.Dispatch(ctx, envelope)
		if werr == nil {
			return nil
		}
		if !werr.IsRetryable() || attempt >= d.policy.MaxRetries {
			return werr
		}
		handlerRetries.WithLabelValues(envelope.Type).Inc()
		d.logger.Warn(
			"dispatch failed, retrying",
			logattr.EventType(envelope.Type),
			logattr.EventId(envelope.Id.String()),
			logattr.RetryAttempt(attempt+1),
			logattr.Error(werr.Message()),
		)
		select {
		case <-time.After(d.policy.RetryInterval):
		case <-ctx.Done():
			return werr
		}
	}
}

// finalize applies the configured dead-letter policy to a message whose
// dispatch failed for good.
func (d *DeliveryLoop) finalize(ctx context.Context, msg messages.Message, raw rawEvent, cause werrors.WError) {
	if d.policy.DeadLetter == DeadLetterPublish && d.deadLetters != nil {
		publishErr := d.deadLetters.Publish(ctx, raw, events.RoutingInfo{
			Topic:      DeadLetterExchangeName,
			RoutingKey: raw.Type(),
		})
		if publishErr != nil {
			d.logger.Error(
				"failed publishing to dead-letter exchange, requeueing",
				logattr.EventType(raw.Type()),
				logattr.Error(publishErr.Error()),
			)
			d.nack(msg, cause, true)
			return
		}
		eventsDeadLettered.WithLabelValues(raw.Type()).Inc()
		d.logger.Error(
			"event dead-lettered",
			logattr.EventType(raw.Type()),
			logattr.EventId(raw.ID()),
			logattr.Error(cause.Message()),
		)
		d.ack(msg, raw)
		return
	}
	eventsDropped.WithLabelValues(raw.Type()).Inc()
	d.logger.Error(
		"event dropped after exhausting retries",
		logattr.EventType(raw.Type()),
		logattr.EventId(raw.ID()),
		logattr.Error(cause.Message()),
	)
	d.ack(msg, raw)
}

func (d *DeliveryLoop) ack(msg messages.Message, raw rawEvent) {
	err := msg.Acknowledger().Ack()
	if err != nil {
		d.logger.Error(
			"failed acking message",
			logattr.EventType(raw.Type()),
			logattr.Error(err.Error()),
		)
	}
}

func (d *DeliveryLoop) nack(msg messages.Message, cause werrors.WError, requeue bool) {
	err := msg.Acknowledger().Nack(messages.NackOpts{
		Requeue:      requeue,
		MaxRetries:   d.policy.MaxRetries,
		ErrorCode:    cause.Code(),
		ErrorMessage: cause.Message(),
	})
	if err != nil {
		d.logger.Error("failed nacking message", logattr.Error(err.Error()))
	}
}
