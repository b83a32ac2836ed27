package util

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter counts delivery attempts per key. Without redis it falls back to
// an in-process map, which is enough for a single worker.
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration

	mu     sync.Mutex
	counts map[string]int64
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl, counts: make(map[string]int64)}
}

// IncrementAndGet increments the retry count for key and returns the new count
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	if r.rdb == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.counts[key]++
		return r.counts[key], nil
	}

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		r.rdb.Expire(ctx, key, r.ttl)
	}
	return count, nil
}

// Get returns the current retry count
func (r *RetryCounter) Get(ctx context.Context, key string) (int64, error) {
	if r.rdb == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.counts[key], nil
	}

	count, err := r.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// Reset clears the retry count
func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	if r.rdb == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.counts, key)
		return nil
	}
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey formats a retry key for a handler and event id
func FormatRetryKey(handler, eventID string) string {
	return fmt.Sprintf("retry:%s:%s", handler, eventID)
}
