// Package notify announces finished sync batches on a RabbitMQ exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sevigo/code-pulse/internal/batch"
)

// RoutingBatchCompleted is the routing key of batch completion messages.
const RoutingBatchCompleted = "batch.completed"

// BatchCompleted is the message body published for a completed batch.
type BatchCompleted struct {
	BatchID      string    `json:"batch_id"`
	Repository   string    `json:"repository"`
	Total        int64     `json:"total"`
	Succeeded    int64     `json:"succeeded"`
	AverageScore float64   `json:"average_score"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Channel is the part of an AMQP channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	ch       Channel
	exchange string
	close    func()
	logger   *slog.Logger
	now      func() time.Time
}

// Dial connects to RabbitMQ and declares the topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.close = func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return p, nil
}

// NewPublisher declares the exchange on an open channel.
func NewPublisher(ch Channel, exchange string, logger *slog.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, close: func() {}, logger: logger, now: time.Now}, nil
}

// BatchCompleted publishes the final counters of a batch. It has the shape
// of a batch.CompletionFunc; a failed publish is logged, never retried.
func (p *Publisher) BatchCompleted(ctx context.Context, final batch.Status) {
	msg := BatchCompleted{
		BatchID:     final.ID,
		Repository:  final.Label,
		Total:       final.Total,
		Succeeded:   final.Succeeded,
		CompletedAt: p.now().UTC(),
	}
	if final.Succeeded > 0 {
		msg.AverageScore = final.ScoreSum / float64(final.Succeeded)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to encode batch completion", "batch_id", final.ID, "error", err)
		return
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,            // exchange
		RoutingBatchCompleted, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    final.ID,
			Timestamp:    msg.CompletedAt,
			Body:         body,
		})
	if err != nil {
		p.logger.Error("failed to publish batch completion", "batch_id", final.ID, "error", err)
		return
	}
	p.logger.Debug("batch completion published", "batch_id", final.ID, "exchange", p.exchange)
}

func (p *Publisher) Close() {
	p.close()
}
