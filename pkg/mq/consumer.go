package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"taskmanager/pkg/metrics"
	"taskmanager/pkg/trace"
	"taskmanager/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// DeadLetterer receives messages that will not be retried.
type DeadLetterer interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, errorType string) error
}

// RetryPolicy decides between requeue and dead-lettering on handler failure.
type RetryPolicy struct {
	MaxRetries int64
	Counter    *util.RetryCounter
	DLQ        DeadLetterer
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
	retry      RetryPolicy
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(url, queueName, routingKey string, retry RetryPolicy, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := open(url, "taskmanager-worker")
	if err != nil {
		return nil, err
	}

	if _, err := bindQueue(ch, DLQName(routingKey), routingKey, DLQExchangeName); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	q, err := bindQueue(ch, queueName, routingKey, ExchangeName)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
		retry:      retry,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is cancelled or the delivery channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.process(ctx, msg)
		}
	}
}

// process guarantees every delivery is acked or nacked exactly once.
func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	if traceID, ok := msg.Headers[trace.HeaderName()].(string); ok {
		ctx = trace.WithContext(ctx, traceID)
	}

	c.logger.Debug("Received message",
		zap.String("routing_key", c.routingKey),
		zap.String("message_id", msg.MessageId),
		zap.Int("message_size", len(msg.Body)),
	)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.Any("panic", r),
			)
			c.fail(ctx, msg, fmt.Errorf("handler panic: %v: %w", r, util.ErrPermanent))
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		c.fail(ctx, msg, err)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message", zap.String("routing_key", c.routingKey), zap.Error(err))
	}
	if c.retry.Counter != nil && msg.MessageId != "" {
		_ = c.retry.Counter.Reset(ctx, util.FormatRetryKey(c.queue.Name, msg.MessageId))
	}
	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
}

func (c *Consumer) fail(ctx context.Context, msg amqp091.Delivery, handlerErr error) {
	retryable, errType := util.IsRetryableError(handlerErr)

	var attempts int64
	if retryable && c.retry.Counter != nil && msg.MessageId != "" {
		n, err := c.retry.Counter.IncrementAndGet(ctx, util.FormatRetryKey(c.queue.Name, msg.MessageId))
		if err != nil {
			c.logger.Warn("Retry counter unavailable", zap.Error(err))
		}
		attempts = n
	}

	logger := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("message_id", msg.MessageId),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("attempt", attempts),
		zap.Error(handlerErr),
	)

	if util.ShouldRetry(attempts, c.retry.MaxRetries, retryable) {
		logger.Warn("Handler failed, requeueing")
		if err := msg.Nack(false, true); err != nil {
			logger.Error("Failed to nack message", zap.NamedError("nack_error", err))
		}
		return
	}

	logger.Error("Handler failed, dead-lettering")
	if c.retry.DLQ != nil {
		if err := c.retry.DLQ.PublishToDLQ(ctx, c.routingKey, msg.Body, handlerErr.Error(), errType); err != nil {
			logger.Error("Failed to publish to DLQ, requeueing", zap.NamedError("dlq_error", err))
			_ = msg.Nack(false, true)
			return
		}
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack dead-lettered message", zap.NamedError("ack_error", err))
	}
}
