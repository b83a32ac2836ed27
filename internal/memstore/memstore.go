// Package memstore keeps tasks, users and activity in process memory.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	tasks    []model.Task
	users    []model.User
	activity []model.Activity
}

func New() *Store {
	return &Store{}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Create(ctx context.Context, t *model.Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneTask(*t)
	stored.ID = int64(len(s.tasks) + 1)
	s.tasks = append(s.tasks, stored)
	return stored.ID, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 1 || id > int64(len(s.tasks)) {
		return nil, fmt.Errorf("task %d: %w", id, repository.ErrNotFound)
	}
	t := cloneTask(s.tasks[id-1])
	return &t, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, u model.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.TaskID < 1 || u.TaskID > int64(len(s.tasks)) {
		return fmt.Errorf("task %d: %w", u.TaskID, repository.ErrNotFound)
	}
	t := &s.tasks[u.TaskID-1]
	t.Status = u.Status
	if u.StartedAt != nil {
		t.StartedAt = copyTime(u.StartedAt)
	}
	if u.CompletedAt != nil {
		t.CompletedAt = copyTime(u.CompletedAt)
	}
	return nil
}

// Tasks is the TaskStore view of s.
func (s *Store) Tasks() repository.TaskStore { return s }

// Users is the UserStore view of s.
func (s *Store) Users() repository.UserStore { return userView{s} }

// Activity is the ActivityStore view of s.
func (s *Store) Activity() repository.ActivityStore { return activityView{s} }

type userView struct{ s *Store }

func (v userView) Create(ctx context.Context, u *model.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	u.RowID = int64(len(v.s.users) + 1)
	v.s.users = append(v.s.users, *u)
	return nil
}

func (v userView) ListByEmail(ctx context.Context, email string) ([]model.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var out []model.User
	for _, u := range v.s.users {
		if u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (v userView) GetByID(ctx context.Context, userID string) (*model.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	for _, u := range v.s.users {
		if u.ID == userID {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
}

func (v userView) SetLastLogin(ctx context.Context, rowID int64, at time.Time) error {
	return v.touch(rowID, func(u *model.User) { u.LastLoginAt = &at })
}

func (v userView) SetLastLogout(ctx context.Context, rowID int64, at time.Time) error {
	return v.touch(rowID, func(u *model.User) { u.LastLogoutAt = &at })
}

func (v userView) touch(rowID int64, set func(*model.User)) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if rowID < 1 || rowID > int64(len(v.s.users)) {
		return fmt.Errorf("user row %d: %w", rowID, repository.ErrNotFound)
	}
	set(&v.s.users[rowID-1])
	return nil
}

type activityView struct{ s *Store }

func (v activityView) Insert(ctx context.Context, a *model.Activity) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	a.ID = int64(len(v.s.activity) + 1)
	v.s.activity = append(v.s.activity, *a)
	return nil
}

func (v activityView) ListByTask(ctx context.Context, taskID int64) ([]model.Activity, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	out := []model.Activity{}
	for _, a := range v.s.activity {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func cloneTask(t model.Task) model.Task {
	t.StartedAt = copyTime(t.StartedAt)
	t.DueDate = copyTime(t.DueDate)
	t.CompletedAt = copyTime(t.CompletedAt)
	return t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
