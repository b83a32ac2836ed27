package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

// Sheet1 columns.
const (
	colDate = iota
	colTime
	colTitle
	colDescription
	colPriority
	colDueDate
	colStatus
	colStarted
	colCompletedAt
	colUserID
)

// firstTaskRow is the first data row; row 1 holds headers.
const firstTaskRow = 2

type taskStore struct{ c *Client }

func (s taskStore) Create(ctx context.Context, t *model.Task) (int64, error) {
	row := []interface{}{
		t.CreatedAt.UTC().Format(model.DateLayout),
		t.CreatedAt.In(s.c.loc).Format(model.ClockLayout),
		t.Title,
		t.Description,
		string(t.Priority),
		model.FormatDate(t.DueDate),
		string(t.Status),
		model.FormatTimestamp(t.StartedAt),
		model.FormatTimestamp(t.CompletedAt),
		t.UserID,
	}
	id, err := s.c.appendRow(ctx, s.c.tasksSheet+"!A:J", row)
	if err != nil {
		return 0, err
	}
	s.c.logger.Info("Task appended", zap.Int64("task_id", id), zap.String("user_id", t.UserID))
	return id, nil
}

func (s taskStore) Get(ctx context.Context, id int64) (*model.Task, error) {
	if id < firstTaskRow {
		return nil, fmt.Errorf("task %d: %w", id, repository.ErrNotFound)
	}
	values, err := s.c.get(ctx, fmt.Sprintf("%s!A%d:J%d", s.c.tasksSheet, id, id))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, fmt.Errorf("task %d: %w", id, repository.ErrNotFound)
	}
	t := s.c.parseTask(id, values[0])
	return &t, nil
}

func (s taskStore) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	values, err := s.c.get(ctx, fmt.Sprintf("%s!A%d:J", s.c.tasksSheet, firstTaskRow))
	if err != nil {
		return nil, err
	}
	tasks := []model.Task{}
	for i, row := range values {
		if cell(row, colUserID) != userID {
			continue
		}
		tasks = append(tasks, s.c.parseTask(int64(i+firstTaskRow), row))
	}
	return tasks, nil
}

// UpdateStatus writes column G, plus H or I when the update carries those timestamps.
func (s taskStore) UpdateStatus(ctx context.Context, u model.StatusUpdate) error {
	cells := map[string]string{
		fmt.Sprintf("%s!G%d", s.c.tasksSheet, u.TaskID): string(u.Status),
	}
	if u.StartedAt != nil {
		cells[fmt.Sprintf("%s!H%d", s.c.tasksSheet, u.TaskID)] = model.FormatTimestamp(u.StartedAt)
	}
	if u.CompletedAt != nil {
		cells[fmt.Sprintf("%s!I%d", s.c.tasksSheet, u.TaskID)] = model.FormatTimestamp(u.CompletedAt)
	}
	if err := s.c.writeCells(ctx, cells); err != nil {
		return err
	}
	s.c.logger.Info("Task status written",
		zap.Int64("task_id", u.TaskID),
		zap.String("status", string(u.Status)),
		zap.Int("writes", len(cells)),
	)
	return nil
}

// parseTask reads a Sheet1 row. Cells that fail to parse are left empty.
func (c *Client) parseTask(id int64, row []interface{}) model.Task {
	t := model.Task{
		ID:          id,
		Title:       cell(row, colTitle),
		Description: cell(row, colDescription),
		Priority:    model.Priority(cell(row, colPriority)),
		Status:      model.NormalizeStatus(cell(row, colStatus)),
		UserID:      cell(row, colUserID),
	}
	if p, ok := model.ParsePriority(string(t.Priority)); ok {
		t.Priority = p
	}

	t.CreatedAt = c.parseCreated(cell(row, colDate), cell(row, colTime))
	t.StartedAt = c.optionalTime(id, "started", cell(row, colStarted))
	t.CompletedAt = c.optionalTime(id, "completedAt", cell(row, colCompletedAt))
	if due, err := model.ParseDate(cell(row, colDueDate), time.UTC); err == nil {
		t.DueDate = due
	} else {
		c.logger.Debug("Unparseable due date", zap.Int64("task_id", id), zap.Error(err))
	}
	return t
}

// parseCreated joins the UTC date and local clock columns.
func (c *Client) parseCreated(date, clock string) time.Time {
	t, err := model.JoinCreated(date, clock, c.loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Client) optionalTime(id int64, field, raw string) *time.Time {
	t, err := model.ParseOptionalTime(raw, time.UTC)
	if err != nil {
		c.logger.Debug("Unparseable timestamp", zap.Int64("task_id", id), zap.String("field", field), zap.String("value", raw))
		return nil
	}
	return t
}

// ExportTasks reads every task row, keeping row numbers as ids. Blank rows are skipped.
func (c *Client) ExportTasks(ctx context.Context) ([]model.Task, error) {
	values, err := c.get(ctx, fmt.Sprintf("%s!A%d:J", c.tasksSheet, firstTaskRow))
	if err != nil {
		return nil, err
	}
	tasks := []model.Task{}
	for i, row := range values {
		if cell(row, colTitle) == "" && cell(row, colUserID) == "" {
			continue
		}
		tasks = append(tasks, c.parseTask(int64(i+firstTaskRow), row))
	}
	return tasks, nil
}
