package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/beadprep/internal/domain"
)

// Message — конверт сообщения в шине.
type Message struct {
	ID        string           `json:"id"`
	Type      domain.EventType `json:"type"`
	Payload   any              `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewEventMessage оборачивает событие run в сообщение.
func NewEventMessage(event domain.Event) *Message {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      event.Type,
		Payload:   event,
		Timestamp: ts,
	}
}

// EventRoutingKey возвращает ключ маршрутизации события (его тип).
func EventRoutingKey(t domain.EventType) RoutingKey {
	return RoutingKey(t)
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishEvent публикует событие run в beadprep.events.
// Реализует sequencer.EventSink.
func (p *Publisher) PublishEvent(ctx context.Context, event domain.Event) error {
	return p.Publish(ctx, ExchangeEvents, EventRoutingKey(event.Type), NewEventMessage(event))
}
