// Package importer copies the legacy spreadsheet into the record store.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/util"
)

type Source interface {
	ExportUsers(ctx context.Context) ([]model.User, error)
	ExportTasks(ctx context.Context) ([]model.Task, error)
}

type UserSink interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, u *model.User) error
}

type TaskSink interface {
	InsertWithID(ctx context.Context, t *model.Task) error
}

type Result struct {
	Users           int
	UsersSkipped    bool
	PasswordsHashed int
	Tasks           int
}

type Importer struct {
	src    Source
	users  UserSink
	tasks  TaskSink
	logger *zap.Logger
}

func New(src Source, users UserSink, tasks TaskSink, logger *zap.Logger) *Importer {
	return &Importer{src: src, users: users, tasks: tasks, logger: logger}
}

// Run copies users in sheet order, hashing plaintext passwords, then tasks
// under their row-number ids. Users are only copied into an empty table, and
// tasks whose id already exists are left alone, so a rerun adds nothing twice.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	var res Result

	existing, err := im.users.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count users: %w", err)
	}
	if existing > 0 {
		res.UsersSkipped = true
		im.logger.Warn("Users table not empty, skipping user import", zap.Int64("existing", existing))
	} else {
		users, err := im.src.ExportUsers(ctx)
		if err != nil {
			return res, fmt.Errorf("read users: %w", err)
		}
		for i := range users {
			u := users[i]
			if !util.IsHashed(u.Password) {
				hash, err := util.HashPassword(u.Password)
				if err != nil {
					return res, fmt.Errorf("hash password for %s: %w", u.ID, err)
				}
				u.Password = hash
				res.PasswordsHashed++
			}
			if err := im.users.Create(ctx, &u); err != nil {
				return res, fmt.Errorf("insert user %s: %w", u.ID, err)
			}
			res.Users++
		}
	}

	tasks, err := im.src.ExportTasks(ctx)
	if err != nil {
		return res, fmt.Errorf("read tasks: %w", err)
	}
	for i := range tasks {
		t := tasks[i]
		if _, ok := model.ParseStatus(string(t.Status)); !ok {
			t.Status = model.StatusNotStarted
		}
		if _, ok := model.ParsePriority(string(t.Priority)); !ok {
			t.Priority = model.PriorityLow
		}
		if err := im.tasks.InsertWithID(ctx, &t); err != nil {
			return res, fmt.Errorf("insert task %d: %w", t.ID, err)
		}
		res.Tasks++
	}

	im.logger.Info("Spreadsheet import finished",
		zap.Int("users", res.Users),
		zap.Int("passwords_hashed", res.PasswordsHashed),
		zap.Int("tasks", res.Tasks),
	)
	return res, nil
}
