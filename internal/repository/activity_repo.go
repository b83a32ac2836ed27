package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanager/internal/model"
)

type ActivityRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewActivityRepository(db *pgxpool.Pool, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

func (r *ActivityRepository) Insert(ctx context.Context, a *model.Activity) (err error) {
	defer observe("insert_activity", time.Now(), &err)

	query := `
        INSERT INTO task_activity (task_id, user_id, from_status, to_status, changed_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	err = r.db.QueryRow(ctx, query,
		a.TaskID, a.UserID, string(a.FromStatus), string(a.ToStatus), a.ChangedAt,
	).Scan(&a.ID)
	if err != nil {
		r.logger.Error("Failed to insert activity", zap.Int64("task_id", a.TaskID), zap.Error(err))
		return err
	}
	return nil
}

func (r *ActivityRepository) ListByTask(ctx context.Context, taskID int64) (out []model.Activity, err error) {
	defer observe("list_activity", time.Now(), &err)

	rows, err := r.db.Query(ctx, `
        SELECT id, task_id, user_id, from_status, to_status, changed_at
        FROM task_activity
        WHERE task_id = $1
        ORDER BY changed_at, id
    `, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []model.Activity{}
	for rows.Next() {
		var (
			a        model.Activity
			from, to string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &from, &to, &a.ChangedAt); err != nil {
			return nil, err
		}
		a.FromStatus = model.Status(from)
		a.ToStatus = model.Status(to)
		out = append(out, a)
	}
	return out, rows.Err()
}
