package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduper accepts a nil client, in which case every event is processed.
func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// DedupKey formats the key for a handler and event id.
func DedupKey(handler, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, eventID)
}

// AcquireOnce returns true the first time handler sees eventID and false for duplicates.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, eventID string) bool {
	if d == nil || d.rdb == nil {
		return true
	}
	key := DedupKey(handler, eventID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// redis unavailable: do not block processing
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("event_id", eventID),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the dedup key so a failed event can be processed again.
func (d *Deduper) Release(ctx context.Context, handler, eventID string) {
	if d == nil || d.rdb == nil {
		return
	}
	if err := d.rdb.Del(ctx, DedupKey(handler, eventID)).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to release dedup key", zap.String("event_id", eventID), zap.Error(err))
	}
}
