package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanager/internal/model"
)

// openTestDB connects to TEST_DATABASE_URL and migrates it; tests are skipped without it.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := Migrate(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE tasks, users, task_activity RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool := openTestDB(t)
	applied, err := Migrate(context.Background(), pool, zap.NewNop())
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected nothing to apply, got %v", applied)
	}
}

func TestTaskRepositoryStatusWrites(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(pool, zap.NewNop())

	due := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	id, err := repo.Create(ctx, &model.Task{
		UserID:    "JD42",
		Title:     "write report",
		Priority:  model.PriorityHigh,
		Status:    model.StatusNotStarted,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		DueDate:   &due,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completed := time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC)
	if err := repo.UpdateStatus(ctx, model.StatusUpdate{TaskID: id, Status: model.StatusCompleted, CompletedAt: &completed}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusCompleted || got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("unexpected task after update: %+v", got)
	}
	if got.StartedAt != nil {
		t.Errorf("started_at must stay untouched, got %v", got.StartedAt)
	}
	if !got.DueOn(due) {
		t.Errorf("expected due date %v, got %v", due, got.DueDate)
	}

	err = repo.UpdateStatus(ctx, model.StatusUpdate{TaskID: id + 100, Status: model.StatusInProgress})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepositoryInsertionOrder(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool, zap.NewNop())

	for _, id := range []string{"AB1", "AB2"} {
		if err := repo.Create(ctx, &model.User{
			ID: id, FirstName: "Ann", LastName: "Bell", DOB: "2000-01-01",
			Email: "ann@example.com", RegisteredAt: time.Now(), Password: "x",
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	users, err := repo.ListByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].ID != "AB1" || users[1].ID != "AB2" {
		t.Fatalf("unexpected order: %+v", users)
	}

	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.SetLastLogout(ctx, users[1].RowID, at); err != nil {
		t.Fatalf("logout: %v", err)
	}
	u, err := repo.GetByID(ctx, "AB2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.LastLogoutAt == nil || !u.LastLogoutAt.Equal(at) {
		t.Errorf("expected logout timestamp, got %v", u.LastLogoutAt)
	}
	if _, err := repo.GetByID(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActivityRepository(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(pool, zap.NewNop())

	a := &model.Activity{TaskID: 7, UserID: "JD42", FromStatus: model.StatusNotStarted, ToStatus: model.StatusInProgress, ChangedAt: time.Now()}
	if err := repo.Insert(ctx, a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	list, err := repo.ListByTask(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ToStatus != model.StatusInProgress {
		t.Errorf("unexpected activity: %+v", list)
	}
}

func TestLoadMigrationsSorted(t *testing.T) {
	ms, err := loadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ms) < 2 || ms[0].version != "0001_users_tasks" || ms[1].version != "0002_task_activity" {
		t.Fatalf("unexpected migrations: %+v", ms)
	}
}
