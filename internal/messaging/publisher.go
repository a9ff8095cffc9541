// Package messaging publishes claim events for downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ExchangeClaims is the fanout exchange claim events go to.
const ExchangeClaims = "cardami.claims"

// ClaimCreatedEvent is emitted after a claim is stored.
type ClaimCreatedEvent struct {
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	CardID      string    `json:"cardId"`
	Description string    `json:"description"`
	ClaimedAt   time.Time `json:"claimedAt"`
}

// NewClaimCreatedEvent fills EventID and ClaimedAt.
func NewClaimCreatedEvent(userID, cardID, description string) ClaimCreatedEvent {
	return ClaimCreatedEvent{
		EventID:     uuid.NewString(),
		UserID:      userID,
		CardID:      cardID,
		Description: description,
		ClaimedAt:   time.Now().UTC(),
	}
}

// ClaimPublisher publishes claim events.
type ClaimPublisher interface {
	PublishClaimCreated(ctx context.Context, event ClaimCreatedEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishClaimCreated(context.Context, ClaimCreatedEvent) error { return nil }
func (NopPublisher) Close() error                                                 { return nil }

// RabbitMQClaimPublisher publishes to a durable fanout exchange.
type RabbitMQClaimPublisher struct {
	conn   *amqp091.Connection
	ch     *amqp091.Channel
	logger *zap.Logger
}

// NewRabbitMQClaimPublisher opens a channel on conn and declares the
// exchange. The caller owns conn.
func NewRabbitMQClaimPublisher(conn *amqp091.Connection, logger *zap.Logger) (*RabbitMQClaimPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	log := logger.Named("ClaimPublisher")

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		ExchangeClaims, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", ExchangeClaims, err)
	}
	log.Info("Claim exchange declared", zap.String("exchange", ExchangeClaims))
	return &RabbitMQClaimPublisher{conn: conn, ch: ch, logger: log}, nil
}

func (p *RabbitMQClaimPublisher) PublishClaimCreated(ctx context.Context, event ClaimCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal claim event: %w", err)
	}
	err = p.ch.PublishWithContext(ctx,
		ExchangeClaims,
		"", // fanout ignores the routing key
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.ClaimedAt,
			Type:         "claim.created",
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish claim event", zap.String("eventId", event.EventID), zap.Error(err))
		return fmt.Errorf("failed to publish claim event: %w", err)
	}
	p.logger.Debug("Claim event published", zap.String("eventId", event.EventID), zap.String("cardId", event.CardID))
	return nil
}

// Close closes the channel. The connection is left to its owner.
func (p *RabbitMQClaimPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

// Connect dials RabbitMQ, retrying with a fixed delay.
func Connect(ctx context.Context, url string, attempts int, delay time.Duration, logger *zap.Logger) (*amqp091.Connection, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ")
			return conn, nil
		}
		lastErr = err
		logger.Warn("Failed to connect to RabbitMQ, retrying", zap.Int("attempt", i), zap.Int("max_attempts", attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}
