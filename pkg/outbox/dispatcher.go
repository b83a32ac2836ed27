package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskmanager/pkg/metrics"
	"taskmanager/pkg/mq"
	"taskmanager/pkg/trace"
)

// Store is the part of Repository the dispatcher needs.
type Store interface {
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, maxRetries int) error
}

// Dispatcher moves pending outbox events onto the broker.
type Dispatcher struct {
	store      Store
	publisher  mq.EventPublisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(store Store, publisher mq.EventPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	d.batchSize = batchSize
	return d
}

// Run dispatches on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			metrics.RecordOutboxDispatch(d.DispatchOnce(ctx))
		}
	}
}

// DispatchOnce publishes one batch and reports how many events were sent and failed.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (sent, failed int) {
	events, err := d.store.Pending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0, 0
	}

	for _, event := range events {
		pubCtx := ctx
		if event.TraceID != "" {
			pubCtx = trace.WithContext(ctx, event.TraceID)
		}

		if err := d.publisher.Publish(pubCtx, event.RoutingKey, event.Payload); err != nil {
			failed++
			d.logger.Error("Failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			if err := d.store.MarkFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed", zap.Int64("event_id", event.ID), zap.Error(err))
			}
			continue
		}

		sent++
		if err := d.store.MarkSent(ctx, event.ID); err != nil {
			d.logger.Error("Failed to mark event as sent", zap.Int64("event_id", event.ID), zap.Error(err))
		}
	}
	return sent, failed
}
