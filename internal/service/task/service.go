package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskmanager/contracts/mq"
	"taskmanager/internal/board"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
	"taskmanager/pkg/logger"
	"taskmanager/pkg/metrics"
	"taskmanager/pkg/mq"
)

var (
	ErrMissingData          = errors.New("missing data")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrTaskNotFound         = errors.New("task not found")
	ErrForbidden            = errors.New("task belongs to another user")
	ErrTransitionNotAllowed = model.ErrTransitionNotAllowed
	ErrInvalidDate          = model.ErrInvalidDate
)

type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	UserID      string `json:"userId"`
}

type Options struct {
	Transitions model.Transitions
	Location    *time.Location
	// InlineActivity writes activity entries directly instead of leaving it to the worker.
	InlineActivity bool
	Now            func() time.Time
}

type Service struct {
	tasks    repository.TaskStore
	activity repository.ActivityStore
	events   mq.EventPublisher
	opts     Options
	logger   *zap.Logger
}

// NewService wires the task operations. activity may be nil.
func NewService(tasks repository.TaskStore, activity repository.ActivityStore, events mq.EventPublisher, opts Options, logger *zap.Logger) *Service {
	if events == nil {
		events = mq.NoopPublisher{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{tasks: tasks, activity: activity, events: events, opts: opts, logger: logger}
}

func (s *Service) Transitions() model.Transitions {
	return s.opts.Transitions
}

// List returns the user's tasks in store order, optionally narrowed by a title
// search or a creation date (YYYY-MM-DD).
func (s *Service) List(ctx context.Context, userID, query, date string) ([]model.Task, error) {
	if userID == "" {
		return nil, ErrMissingData
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if date != "" {
		day, err := model.ParseTime(date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("date %q: %w", date, ErrInvalidDate)
		}
		tasks = board.FilterByDate(tasks, day)
	}
	if query != "" {
		tasks = board.Search(tasks, query)
	}
	return tasks, nil
}

// Create appends a task and returns its id. Priority defaults to Low and status
// to Not Started.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	log := logger.WithTrace(ctx, s.logger)
	if strings.TrimSpace(in.Title) == "" || in.UserID == "" {
		return 0, ErrMissingData
	}

	priority := model.PriorityLow
	if in.Priority != "" {
		p, ok := model.ParsePriority(in.Priority)
		if !ok {
			return 0, fmt.Errorf("priority %q: %w", in.Priority, ErrInvalidPriority)
		}
		priority = p
	}

	status := model.StatusNotStarted
	if in.Status != "" {
		st, ok := model.ParseStatus(in.Status)
		if !ok {
			return 0, fmt.Errorf("status %q: %w", in.Status, ErrInvalidStatus)
		}
		status = st
	}

	due, err := model.ParseDate(in.DueDate, s.opts.Location)
	if err != nil {
		return 0, fmt.Errorf("due date %q: %w", in.DueDate, ErrInvalidDate)
	}
	if due != nil {
		// date-only: keep the calendar day, drop the zone
		d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
		due = &d
	}

	now := s.opts.Now()
	t := &model.Task{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		Status:      status,
		CreatedAt:   now,
		DueDate:     due,
	}
	switch status {
	case model.StatusInProgress:
		t.StartedAt = &now
	case model.StatusCompleted:
		t.CompletedAt = &now
	}

	id, err := s.tasks.Create(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	metrics.IncrementTasksCreated()
	log.Info("Task created",
		zap.Int64("task_id", id),
		zap.String("user_id", in.UserID),
		zap.String("status", string(status)),
	)

	s.publish(ctx, mqcontracts.RoutingTaskCreated, mqcontracts.TaskCreatedPayload{
		TaskID:    id,
		UserID:    t.UserID,
		Title:     t.Title,
		Priority:  string(t.Priority),
		Status:    string(t.Status),
		DueDate:   model.FormatDate(t.DueDate),
		CreatedAt: now,
	})
	return id, nil
}

// UpdateStatus moves a task to target. It writes the status plus the start
// timestamp for In Progress or the completion timestamp for Completed. Setting
// the current status again writes nothing. A non-empty actor must own the task.
func (s *Service) UpdateStatus(ctx context.Context, id int64, target, actor string) error {
	log := logger.WithTrace(ctx, s.logger).With(zap.Int64("task_id", id))

	if id <= 0 {
		return fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	to, ok := model.ParseStatus(target)
	if !ok {
		return fmt.Errorf("status %q: %w", target, ErrInvalidStatus)
	}

	current, err := s.tasks.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if actor != "" && current.UserID != actor {
		return ErrForbidden
	}

	from := model.NormalizeStatus(string(current.Status))
	if from == to {
		metrics.RecordStatusTransition(string(from), string(to), "noop")
		log.Debug("Status unchanged", zap.String("status", string(to)))
		return nil
	}
	if err := s.opts.Transitions.Check(from, to); err != nil {
		metrics.RecordStatusTransition(string(from), string(to), "rejected")
		log.Info("Status transition rejected",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("mode", string(s.opts.Transitions.Mode())),
		)
		return fmt.Errorf("%s -> %s: %w", from, to, err)
	}

	now := s.opts.Now()
	update := model.StatusUpdate{TaskID: id, Status: to}
	switch to {
	case model.StatusInProgress:
		update.StartedAt = &now
	case model.StatusCompleted:
		update.CompletedAt = &now
	}

	if err := s.tasks.UpdateStatus(ctx, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("update status: %w", err)
	}
	metrics.RecordStatusTransition(string(from), string(to), "applied")
	log.Info("Status updated", zap.String("from", string(from)), zap.String("to", string(to)))

	changed := mqcontracts.TaskStatusChangedPayload{
		TaskID:     id,
		UserID:     current.UserID,
		FromStatus: string(from),
		ToStatus:   string(to),
		ChangedAt:  now,
	}
	s.publish(ctx, mqcontracts.RoutingTaskStatusChanged, changed)

	if s.opts.InlineActivity && s.activity != nil {
		if err := s.activity.Insert(ctx, &model.Activity{
			TaskID:     id,
			UserID:     current.UserID,
			FromStatus: from,
			ToStatus:   to,
			ChangedAt:  now,
		}); err != nil {
			log.Warn("Failed to record activity", zap.Error(err))
		}
	}
	return nil
}

// Board projects the user's tasks as of now in the configured location.
func (s *Service) Board(ctx context.Context, userID string) (board.Board, error) {
	if userID == "" {
		return board.Board{}, ErrMissingData
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return board.Board{}, fmt.Errorf("list tasks: %w", err)
	}
	return board.Project(tasks, s.opts.Now().In(s.opts.Location)), nil
}

// Activity lists recorded status changes for a task, oldest first.
func (s *Service) Activity(ctx context.Context, id int64, actor string) ([]model.Activity, error) {
	current, err := s.tasks.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if actor != "" && current.UserID != actor {
		return nil, ErrForbidden
	}
	if s.activity == nil {
		return []model.Activity{}, nil
	}
	return s.activity.ListByTask(ctx, id)
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	err := s.events.Publish(ctx, routingKey, payload)
	metrics.RecordEventPublished(routingKey, err)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
