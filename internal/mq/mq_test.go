package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/beadprep/internal/domain"
)

// fakeAck запоминает ack/nack доставок.
type fakeAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue []bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func delivery(t *testing.T, ack *fakeAck, msg *Message) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestNewEventMessage(t *testing.T) {
	runID := uuid.New()
	event := domain.NewEvent(domain.EventPhaseCompleted, runID, domain.PhaseWash, "")

	msg := NewEventMessage(event)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, domain.EventPhaseCompleted, msg.Type)
	assert.Equal(t, event.Timestamp, msg.Timestamp)
	assert.Equal(t, RoutingKey("phase.completed"), EventRoutingKey(event.Type))

	// Сообщение переживает JSON-конверт
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	var decoded Message
	require.NoError(t, json.Unmarshal(body, &decoded))

	got, err := ParsePayload[domain.Event](&decoded)
	require.NoError(t, err)
	assert.Equal(t, runID, got.RunID)
	assert.Equal(t, domain.PhaseWash, got.Phase)
}

func TestNewEventMessage_ZeroTimestamp(t *testing.T) {
	msg := NewEventMessage(domain.Event{Type: domain.EventRunStarted})
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
}

func TestConsumer_AckOnSuccess(t *testing.T) {
	var got []domain.Event
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{
		Queue: QueueEventsAPI,
		Handler: EventHandler(func(ctx context.Context, e domain.Event) error {
			got = append(got, e)
			return nil
		}),
	})

	ack := &fakeAck{}
	event := domain.NewEvent(domain.EventRunPaused, uuid.New(), "", "door open")
	c.handle(context.Background(), delivery(t, ack, NewEventMessage(event)))

	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
	require.Len(t, got, 1)
	assert.Equal(t, "door open", got[0].Message)
}

func TestConsumer_RequeueOnHandlerError(t *testing.T) {
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{
		Queue: QueueEventsAPI,
		Handler: func(ctx context.Context, d *Delivery) error {
			return errors.New("hub closed")
		},
	})

	ack := &fakeAck{}
	c.handle(context.Background(), delivery(t, ack, NewEventMessage(domain.Event{Type: domain.EventRunStarted})))

	assert.Zero(t, ack.acked)
	assert.Equal(t, []bool{true}, ack.requeue)
}

func TestConsumer_DeadLetterOnBadPayload(t *testing.T) {
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{
		Queue:   QueueEventsAPI,
		Handler: EventHandler(func(ctx context.Context, e domain.Event) error { return nil }),
	})

	ack := &fakeAck{}
	msg := &Message{ID: "1", Type: domain.EventRunStarted, Payload: map[string]any{"run_id": 42}}
	c.handle(context.Background(), delivery(t, ack, msg))
	assert.Equal(t, []bool{false}, ack.requeue)

	// Не JSON вообще
	ack = &fakeAck{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
	assert.Equal(t, []bool{false}, ack.requeue)
}

func TestTopology(t *testing.T) {
	b := bindings()
	require.Len(t, b, 2)
	assert.Equal(t, QueueEventsAPI, b[0].queue)
	assert.Equal(t, RoutingKeyAll, b[0].routingKey)
	assert.Equal(t, ExchangeEvents, b[0].exchange)

	assert.True(t, strings.Contains(TopologyInfo(), string(QueueEventsAPI)))
}

func TestURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	assert.Equal(t, defaultURL, URL())

	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	assert.Equal(t, "amqp://guest:guest@mq:5672/", URL())
}
