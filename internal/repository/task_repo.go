package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/pkg/metrics"
)

const taskColumns = `id, user_id, title, description, priority, status, created_at, started_at, due_date, completed_at`

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *TaskRepository) Create(ctx context.Context, t *model.Task) (id int64, err error) {
	defer observe("create_task", time.Now(), &err)

	query := `
        INSERT INTO tasks (user_id, title, description, priority, status, created_at, started_at, due_date, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	err = r.db.QueryRow(ctx, query,
		t.UserID,
		t.Title,
		t.Description,
		string(t.Priority),
		string(t.Status),
		t.CreatedAt,
		t.StartedAt,
		t.DueDate,
		t.CompletedAt,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert task", zap.String("user_id", t.UserID), zap.Error(err))
		return 0, err
	}
	r.logger.Info("Task inserted",
		zap.Int64("task_id", id),
		zap.String("user_id", t.UserID),
	)
	return id, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (t *model.Task, err error) {
	defer observe("get_task", time.Now(), &err)

	row := r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err = scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to load task", zap.Int64("task_id", id), zap.Error(err))
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) (tasks []model.Task, err error) {
	defer observe("list_tasks", time.Now(), &err)

	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks = []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task row", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("Tasks listed", zap.String("user_id", userID), zap.Int("count", len(tasks)))
	return tasks, nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, u model.StatusUpdate) (err error) {
	defer observe("update_status", time.Now(), &err)

	sets := []string{"status = $2"}
	args := []any{u.TaskID, string(u.Status)}
	if u.StartedAt != nil {
		args = append(args, *u.StartedAt)
		sets = append(sets, fmt.Sprintf("started_at = $%d", len(args)))
	}
	if u.CompletedAt != nil {
		args = append(args, *u.CompletedAt)
		sets = append(sets, fmt.Sprintf("completed_at = $%d", len(args)))
	}

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update task status", zap.Int64("task_id", u.TaskID), zap.Error(err))
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task %d: %w", u.TaskID, ErrNotFound)
	}
	r.logger.Info("Task status updated",
		zap.Int64("task_id", u.TaskID),
		zap.String("status", string(u.Status)),
		zap.Int("writes", u.Writes()),
	)
	return nil
}

// InsertWithID stores a task under a fixed id and advances the id sequence past it.
// Used by the spreadsheet importer so row-number ids stay stable.
func (r *TaskRepository) InsertWithID(ctx context.Context, t *model.Task) error {
	query := `
        INSERT INTO tasks (id, user_id, title, description, priority, status, created_at, started_at, due_date, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, string(t.Priority), string(t.Status),
		t.CreatedAt, t.StartedAt, t.DueDate, t.CompletedAt,
	); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('tasks', 'id'), GREATEST((SELECT MAX(id) FROM tasks), 1))`)
	return err
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t                model.Task
		priority, status string
	)
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&priority,
		&status,
		&t.CreatedAt,
		&t.StartedAt,
		&t.DueDate,
		&t.CompletedAt,
	); err != nil {
		return nil, err
	}
	t.Priority = model.Priority(priority)
	t.Status = model.NormalizeStatus(status)
	return &t, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordStoreCall("postgres", operation, *err, time.Since(start))
}
