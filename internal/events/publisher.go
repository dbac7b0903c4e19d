// Package events emits workflow analytics events. Emission is best-effort:
// a broker outage never fails or rolls back an order.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Event types emitted by the order workflows.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderCancelled     = "order.cancelled"
	TypeOrderPaymentFailed = "order.payment_failed"
	TypeOrderExpired       = "order.expired"
)

// Event is one analytics record about an order.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"event"`
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID int64     `json:"customerId"`
	Total      float64   `json:"total"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher emits events to the analytics broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AMQPPublisher implements Publisher over a RabbitMQ topic exchange.
type AMQPPublisher struct {
	exchange string
	logger   zerolog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares the topic exchange.
func NewAMQPPublisher(amqpURL, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	logger = logger.With().Str("component", "event-publisher").Logger()

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open broker channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().Str("exchange", exchange).Msg("event publisher connected")

	return &AMQPPublisher{
		exchange: exchange,
		logger:   logger,
		conn:     conn,
		channel:  channel,
	}, nil
}

// Publish emits one event with a routing key derived from its type.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("event", event.Type).
		Str("order_id", event.OrderID.String()).
		Msg("event published")

	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher discards events. Used when analytics emission is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }
