package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskmanager/pkg/trace"
)

type memStore struct {
	pending []Event
	sent    []int64
	failed  []int64
}

func (m *memStore) Pending(context.Context, int) ([]Event, error) { return m.pending, nil }

func (m *memStore) MarkSent(_ context.Context, id int64) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id int64, _ int) error {
	m.failed = append(m.failed, id)
	return nil
}

type recorder struct {
	fail   map[string]bool
	traces []string
	bodies []string
}

func (r *recorder) Publish(ctx context.Context, routingKey string, payload any) error {
	if r.fail[routingKey] {
		return errors.New("broker unavailable")
	}
	raw, _ := json.Marshal(payload)
	r.bodies = append(r.bodies, string(raw))
	r.traces = append(r.traces, trace.FromContext(ctx))
	return nil
}

func TestDispatchOnce(t *testing.T) {
	store := &memStore{pending: []Event{
		{ID: 1, RoutingKey: "task.created", Payload: json.RawMessage(`{"task_id":1}`), TraceID: "trace-1"},
		{ID: 2, RoutingKey: "user.registered", Payload: json.RawMessage(`{"user_id":"JD1"}`)},
	}}
	pub := &recorder{fail: map[string]bool{"user.registered": true}}

	sent, failed := NewDispatcher(store, pub, zap.NewNop()).DispatchOnce(context.Background())
	if sent != 1 || failed != 1 {
		t.Fatalf("sent=%d failed=%d", sent, failed)
	}
	if len(store.sent) != 1 || store.sent[0] != 1 || len(store.failed) != 1 || store.failed[0] != 2 {
		t.Fatalf("unexpected marks sent=%v failed=%v", store.sent, store.failed)
	}
	if pub.bodies[0] != `{"task_id":1}` {
		t.Fatalf("payload re-encoded: %s", pub.bodies[0])
	}
	if pub.traces[0] != "trace-1" {
		t.Fatalf("trace id not restored: %q", pub.traces[0])
	}
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	status, next := nextAttempt(2, 5, now)
	if status != StatusPending || next == nil || !next.Equal(now.Add(10*time.Second)) {
		t.Fatalf("got %s %v", status, next)
	}

	status, next = nextAttempt(5, 5, now)
	if status != StatusFailed || next != nil {
		t.Fatalf("expected failed without retry time, got %s %v", status, next)
	}
}
