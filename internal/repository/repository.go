package repository

import (
	"context"
	"errors"
	"time"

	"taskmanager/internal/model"
)

var ErrNotFound = errors.New("record not found")

// TaskStore persists tasks. Tasks are never deleted.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) (int64, error)
	Get(ctx context.Context, id int64) (*model.Task, error)
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
	// UpdateStatus writes only the fields set on u.
	UpdateStatus(ctx context.Context, u model.StatusUpdate) error
}

// UserStore persists accounts in insertion order.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	// ListByEmail returns every row with the given email, oldest first.
	ListByEmail(ctx context.Context, email string) ([]model.User, error)
	// GetByID returns the first row carrying the user id.
	GetByID(ctx context.Context, userID string) (*model.User, error)
	SetLastLogin(ctx context.Context, rowID int64, at time.Time) error
	SetLastLogout(ctx context.Context, rowID int64, at time.Time) error
}

type ActivityStore interface {
	Insert(ctx context.Context, a *model.Activity) error
	ListByTask(ctx context.Context, taskID int64) ([]model.Activity, error)
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}
