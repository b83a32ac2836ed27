package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

func TestTaskIDsFollowInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, owner := range []string{"A1", "B2", "A1"} {
		id, err := s.Tasks().Create(ctx, &model.Task{UserID: owner, Title: "t", Status: model.StatusNotStarted})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if id != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, id)
		}
	}

	tasks, _ := s.Tasks().ListByUser(ctx, "A1")
	if len(tasks) != 2 || tasks[0].ID != 1 || tasks[1].ID != 3 {
		t.Fatalf("unexpected owner filter result: %+v", tasks)
	}
}

func TestUpdateStatusWritesOnlySetFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	started := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	id, _ := s.Tasks().Create(ctx, &model.Task{UserID: "A1", Status: model.StatusInProgress, StartedAt: &started})

	done := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	if err := s.Tasks().UpdateStatus(ctx, model.StatusUpdate{TaskID: id, Status: model.StatusCompleted, CompletedAt: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Tasks().Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started_at changed: %v", got.StartedAt)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("completed_at not written: %v", got.CompletedAt)
	}

	err = s.Tasks().UpdateStatus(ctx, model.StatusUpdate{TaskID: 99, Status: model.StatusCompleted})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	due := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	id, _ := s.Tasks().Create(ctx, &model.Task{UserID: "A1", DueDate: &due})

	got, _ := s.Tasks().Get(ctx, id)
	*got.DueDate = due.AddDate(0, 0, 1)

	again, _ := s.Tasks().Get(ctx, id)
	if !again.DueDate.Equal(due) {
		t.Fatalf("store was mutated through a returned task: %v", again.DueDate)
	}
}

func TestUsersFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	users := New().Users()
	for _, pw := range []string{"one", "two"} {
		if err := users.Create(ctx, &model.User{ID: "AB9", Email: "a@b.c", Password: pw}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	u, err := users.GetByID(ctx, "AB9")
	if err != nil || u.Password != "one" || u.RowID != 1 {
		t.Fatalf("expected first row, got %+v err=%v", u, err)
	}

	at := time.Now()
	if err := users.SetLastLogin(ctx, 2, at); err != nil {
		t.Fatalf("login: %v", err)
	}
	list, _ := users.ListByEmail(ctx, "a@b.c")
	if list[0].LastLoginAt != nil || list[1].LastLoginAt == nil {
		t.Errorf("login timestamp written to the wrong row: %+v", list)
	}
	if err := users.SetLastLogout(ctx, 3, at); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
