package mq

import "time"

const (
	RoutingTaskCreated       = "task.created"
	RoutingTaskStatusChanged = "task.status_changed"
	RoutingUserRegistered    = "user.registered"
)

type TaskCreatedPayload struct {
	TaskID    int64     `json:"task_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	DueDate   string    `json:"due_date,omitempty"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
}

type TaskStatusChangedPayload struct {
	TaskID     int64     `json:"task_id"`
	UserID     string    `json:"user_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedAt  time.Time `json:"changed_at"`
}
