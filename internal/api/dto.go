package api

import (
	"time"

	"taskmanager/internal/board"
	"taskmanager/internal/model"
)

type taskJSON struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Status      string  `json:"status"`
	Started     *string `json:"started"`
	CompletedAt *string `json:"completedAt"`
	UserID      string  `json:"userId"`
}

type boardJSON struct {
	NotStarted      []taskJSON        `json:"notStarted"`
	InProgress      []taskJSON        `json:"inProgress"`
	DueToday        []taskJSON        `json:"dueToday"`
	Completed       []taskJSON        `json:"completed"`
	LatestCompleted *taskJSON         `json:"latestCompleted"`
	Percentages     board.Percentages `json:"percentages"`
}

type activityJSON struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"taskId"`
	UserID    string `json:"userId"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedAt string `json:"changedAt"`
}

// newTaskJSON renders the creation date in UTC and the creation clock in loc.
func newTaskJSON(t model.Task, loc *time.Location) taskJSON {
	return taskJSON{
		ID:          t.ID,
		Date:        t.CreatedAt.UTC().Format(model.DateLayout),
		Time:        t.CreatedAt.In(loc).Format(model.ClockLayout),
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		DueDate:     nullable(model.FormatDate(t.DueDate)),
		Status:      string(t.Status),
		Started:     nullable(model.FormatTimestamp(t.StartedAt)),
		CompletedAt: nullable(model.FormatTimestamp(t.CompletedAt)),
		UserID:      t.UserID,
	}
}

func newTaskList(tasks []model.Task, loc *time.Location) []taskJSON {
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskJSON(t, loc))
	}
	return out
}

func newBoardJSON(b board.Board, loc *time.Location) boardJSON {
	out := boardJSON{
		NotStarted:  newTaskList(b.NotStarted, loc),
		InProgress:  newTaskList(b.InProgress, loc),
		DueToday:    newTaskList(b.DueToday, loc),
		Completed:   newTaskList(b.Completed, loc),
		Percentages: b.Percentages,
	}
	if latest := b.LatestCompleted(); latest != nil {
		t := newTaskJSON(*latest, loc)
		out.LatestCompleted = &t
	}
	return out
}

func newActivityList(entries []model.Activity) []activityJSON {
	out := make([]activityJSON, 0, len(entries))
	for _, a := range entries {
		at := a.ChangedAt
		out = append(out, activityJSON{
			ID:        a.ID,
			TaskID:    a.TaskID,
			UserID:    a.UserID,
			From:      string(a.FromStatus),
			To:        string(a.ToStatus),
			ChangedAt: model.FormatTimestamp(&at),
		})
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
