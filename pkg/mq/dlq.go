package mq

import (
	"context"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// DLQName is the queue holding dead letters for routingKey.
func DLQName(routingKey string) string {
	return routingKey + ".dlq"
}

// PublishToDLQ parks a message the consumer gave up on, with the failure recorded in headers.
func (p *Publisher) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, errorType string) error {
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers: amqp091.Table{
			"x-original-error": originalError,
			"x-error-type":     errorType,
			"x-failed-at":      time.Now().UTC().Format(time.RFC3339),
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, DLQExchangeName, routingKey, false, false, msg)
}
