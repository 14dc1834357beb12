package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walletera/eventskit/events"
	"github.com/walletera/eventskit/messages"
	"github.com/walletera/werrors"
)

const testWaitTimeout = 5 * time.Second

type fakeConsumer struct {
	ch        chan messages.Message
	closeOnce sync.Once
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{ch: make(chan messages.Message)}
}

func (c *fakeConsumer) Consume() (<-chan messages.Message, error) {
	return c.ch, nil
}

func (c *fakeConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.ch) })
	return nil
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	acks  int
	nacks []messages.NackOpts
	done  chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{}, 1)}
}

func (a *fakeAcknowledger) Ack() error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Nack(opts messages.NackOpts) error {
	a.mu.Lock()
	a.nacks = append(a.nacks, opts)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-a.done:
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for ack/nack")
	}
}

func (a *fakeAcknowledger) ackCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks
}

func (a *fakeAcknowledger) nackOpts() []messages.NackOpts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]messages.NackOpts(nil), a.nacks...)
}

type publishedEvent struct {
	data events.EventData
	info events.RoutingInfo
}

type fakeDLQPublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	failWith  error
}

func (p *fakeDLQPublisher) Publish(_ context.Context, data events.EventData, info events.RoutingInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, publishedEvent{data: data, info: info})
	return nil
}

func (p *fakeDLQPublisher) publishedEvents() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.published...)
}

func envelopePayload(t *testing.T, kind string) []byte {
	t.Helper()
	payload, err := json.Marshal(events.EventEnvelope{
		Id:        uuid.New(),
		Type:      kind,
		CreatedAt: time.Now().UTC(),
		Data:      json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return payload
}

func fastRetryPolicy(deadLetter DeadLetterPolicy) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
		DeadLetter:    deadLetter,
	}
}

func startLoop(t *testing.T, registry *Registry, dlq events.Publisher, policy RetryPolicy) (*fakeConsumer, *DeliveryLoop) {
	t.Helper()
	consumer := newFakeConsumer()
	loop := NewDeliveryLoop(consumer, registry, dlq, policy, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, loop.Start(ctx))
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), testWaitTimeout)
		defer stopCancel()
		loop.Stop(stopCtx)
	})
	return consumer, loop
}

func TestDeliveryLoopAcksOnSuccessfulDispatch(t *testing.T) {
	registry := NewRegistry(testLogger())
	var handled int
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		handled++
		return nil
	})
	dlq := &fakeDLQPublisher{}
	consumer, _ := startLoop(t, registry, dlq, fastRetryPolicy(DeadLetterPublish))

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(envelopePayload(t, "message.sent"), ack)
	ack.waitDone(t)

	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, ack.ackCount())
	assert.Empty(t, dlq.publishedEvents())
}

func TestDeliveryLoopRetriesRetryableFailuresThenDeadLetters(t *testing.T) {
	registry := NewRegistry(testLogger())
	var attempts int
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		attempts++
		return werrors.NewRetryableInternalError("store unavailable")
	})
	dlq := &fakeDLQPublisher{}
	policy := fastRetryPolicy(DeadLetterPublish)
	consumer, _ := startLoop(t, registry, dlq, policy)

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(envelopePayload(t, "message.sent"), ack)
	ack.waitDone(t)

	assert.Equal(t, policy.MaxRetries+1, attempts)
	assert.Equal(t, 1, ack.ackCount())
	published := dlq.publishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, DeadLetterExchangeName, published[0].info.Topic)
	assert.Equal(t, "message.sent", published[0].info.RoutingKey)
}

func TestDeliveryLoopDoesNotRetryNonRetryableFailures(t *testing.T) {
	registry := NewRegistry(testLogger())
	var attempts int
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		attempts++
		return werrors.NewNonRetryableInternalError("malformed payload")
	})
	dlq := &fakeDLQPublisher{}
	consumer, _ := startLoop(t, registry, dlq, fastRetryPolicy(DeadLetterPublish))

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(envelopePayload(t, "message.sent"), ack)
	ack.waitDone(t)

	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, ack.ackCount())
	assert.Len(t, dlq.publishedEvents(), 1)
}

func TestDeliveryLoopDeadLettersPayloadByteIdentical(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		return werrors.NewNonRetryableInternalError("rejected")
	})
	dlq := &fakeDLQPublisher{}
	consumer, _ := startLoop(t, registry, dlq, fastRetryPolicy(DeadLetterPublish))

	payload := envelopePayload(t, "message.sent")
	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(payload, ack)
	ack.waitDone(t)

	published := dlq.publishedEvents()
	require.Len(t, published, 1)
	serialized, err := published[0].data.Serialize()
	require.NoError(t, err)
	assert.Equal(t, payload, serialized)
}

func TestDeliveryLoopDropsWhenPolicyIsDrop(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		return werrors.NewNonRetryableInternalError("rejected")
	})
	consumer, _ := startLoop(t, registry, nil, fastRetryPolicy(DeadLetterDrop))

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(envelopePayload(t, "message.sent"), ack)
	ack.waitDone(t)

	assert.Equal(t, 1, ack.ackCount())
	assert.Empty(t, ack.nackOpts())
}

func TestDeliveryLoopNacksWithRequeueWhenDeadLetterPublishFails(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		return werrors.NewNonRetryableInternalError("rejected")
	})
	dlq := &fakeDLQPublisher{failWith: assert.AnError}
	consumer, _ := startLoop(t, registry, dlq, fastRetryPolicy(DeadLetterPublish))

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(envelopePayload(t, "message.sent"), ack)
	ack.waitDone(t)

	assert.Equal(t, 0, ack.ackCount())
	nacks := ack.nackOpts()
	require.Len(t, nacks, 1)
	assert.True(t, nacks[0].Requeue)
}

func TestDeliveryLoopDrainsInFlightHandlersOnShutdown(t *testing.T) {
	registry := NewRegistry(testLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	registry.Register("message.sent", func(ctx context.Context, envelope events.EventEnvelope) werrors.WError {
		close(started)
		<-release
		return nil
	})
	consumer := newFakeConsumer()
	loop := NewDeliveryLoop(consumer, registry, nil, fastRetryPolicy(DeadLetterDrop), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, loop.Start(ctx))

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage(envelopePayload(t, "message.sent"), ack)
	select {
	case <-started:
	case <-time.After(testWaitTimeout):
		t.Fatal("timed out waiting for the handler to start")
	}

	cancel()

	stopped := make(chan struct{})
	go func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), testWaitTimeout)
		defer stopCancel()
		loop.Stop(stopCtx)
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a handler was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(testWaitTimeout):
		t.Fatal("Stop did not return after the handler finished")
	}
	ack.waitDone(t)
	assert.Equal(t, 1, ack.ackCount())
}

func TestDeliveryLoopDeadLettersUnparseablePayloads(t *testing.T) {
	registry := NewRegistry(testLogger())
	dlq := &fakeDLQPublisher{}
	consumer, _ := startLoop(t, registry, dlq, fastRetryPolicy(DeadLetterPublish))

	ack := newFakeAcknowledger()
	consumer.ch <- messages.NewMessage([]byte("not json"), ack)
	ack.waitDone(t)

	assert.Equal(t, 1, ack.ackCount())
	published := dlq.publishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, "unprocessable", published[0].info.RoutingKey)
}
