package model

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityModerate Priority = "Moderate"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
)

// ParsePriority accepts the enumerated priorities case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range []Priority{PriorityLow, PriorityModerate, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, true
		}
	}
	return "", false
}

type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DueOn reports whether the due date names the same calendar day as day.
// Due dates are date-only values, so their own year/month/day are compared
// without zone conversion.
func (t *Task) DueOn(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	dy, dm, dd := t.DueDate.Date()
	y, m, d := day.Date()
	return dy == y && dm == m && dd == d
}

// StatusUpdate describes the field writes of a single status change.
type StatusUpdate struct {
	TaskID      int64
	Status      Status
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Writes returns how many fields the update touches.
func (u StatusUpdate) Writes() int {
	n := 1
	if u.StartedAt != nil {
		n++
	}
	if u.CompletedAt != nil {
		n++
	}
	return n
}

type Activity struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	UserID     string    `json:"user_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ChangedAt  time.Time `json:"changed_at"`
}
