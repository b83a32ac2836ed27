package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskmanager/pkg/trace"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

var ErrEventNotFound = errors.New("outbox event not found")

// Event is a domain event waiting to be published.
type Event struct {
	ID          int64
	RoutingKey  string
	Payload     json.RawMessage
	TraceID     string
	Status      string
	RetryCount  int
	NextRetryAt *time.Time
	CreatedAt   time.Time
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, e *Event) error {
	query := `
        INSERT INTO outbox_events (routing_key, payload, trace_id, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	if e.Status == "" {
		e.Status = StatusPending
	}
	if err := r.db.QueryRow(ctx, query, e.RoutingKey, e.Payload, e.TraceID, e.Status).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// Pending returns due events oldest first.
func (r *Repository) Pending(ctx context.Context, limit int) ([]Event, error) {
	return r.list(ctx, `
        SELECT id, routing_key, payload, trace_id, status, retry_count, next_retry_at, created_at
        FROM outbox_events
        WHERE status = 'pending'
        AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at ASC
        LIMIT $1
    `, limit)
}

func (r *Repository) Failed(ctx context.Context, limit int) ([]Event, error) {
	return r.list(ctx, `
        SELECT id, routing_key, payload, trace_id, status, retry_count, next_retry_at, created_at
        FROM outbox_events
        WHERE status = 'failed'
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
}

func (r *Repository) list(ctx context.Context, query string, limit int) ([]Event, error) {
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RoutingKey, &e.Payload, &e.TraceID, &e.Status, &e.RetryCount, &e.NextRetryAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_events SET status = 'sent', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// MarkFailed counts a failed attempt. Below maxRetries the event is retried
// after a linear backoff of 5s per attempt; after that it stays failed until replayed.
func (r *Repository) MarkFailed(ctx context.Context, id int64, maxRetries int) error {
	var retryCount int
	err := r.db.QueryRow(ctx, `SELECT retry_count FROM outbox_events WHERE id = $1`, id).Scan(&retryCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("event %d: %w", id, ErrEventNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	status, next := nextAttempt(retryCount+1, maxRetries, time.Now())
	_, err = r.db.Exec(ctx, `
        UPDATE outbox_events
        SET status = $1, retry_count = $2, next_retry_at = $3, updated_at = NOW()
        WHERE id = $4
    `, status, retryCount+1, next, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

// ReplayFailed puts every failed event back in the pending queue.
func (r *Repository) ReplayFailed(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
        WHERE status = 'failed'
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to replay events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nextAttempt(retryCount, maxRetries int, now time.Time) (string, *time.Time) {
	if retryCount >= maxRetries {
		return StatusFailed, nil
	}
	next := now.Add(time.Duration(retryCount) * 5 * time.Second)
	return StatusPending, &next
}

// Writer stores events in the outbox instead of publishing them directly.
type Writer struct {
	repo *Repository
}

func NewWriter(repo *Repository) *Writer {
	return &Writer{repo: repo}
}

func (w *Writer) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return w.repo.Insert(ctx, &Event{
		RoutingKey: routingKey,
		Payload:    body,
		TraceID:    trace.FromContext(ctx),
	})
}
