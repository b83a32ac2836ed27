package board

import (
	"errors"
	"fmt"
	"strings"

	"taskmanager/internal/model"
)

type Column string

const (
	ColumnNotStarted Column = "not-started"
	ColumnInProgress Column = "in-progress"
	ColumnDueToday   Column = "due-today"
	ColumnCompleted  Column = "completed"
)

var ErrDropNotAllowed = errors.New("tasks cannot be dropped on this column")

var columnStatus = map[Column]model.Status{
	ColumnNotStarted: model.StatusNotStarted,
	ColumnInProgress: model.StatusInProgress,
	ColumnCompleted:  model.StatusCompleted,
}

// ParseColumn accepts column names with '-', '_' or ' ' separators.
func ParseColumn(s string) (Column, bool) {
	norm := strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch c := Column(norm); c {
	case ColumnNotStarted, ColumnInProgress, ColumnDueToday, ColumnCompleted:
		return c, true
	}
	return "", false
}

// Drop maps dropping t onto col to the status it should move to. changed is
// false when the task already has that status.
func Drop(t model.Task, col Column, tr model.Transitions) (next model.Status, changed bool, err error) {
	if col == ColumnDueToday {
		return "", false, ErrDropNotAllowed
	}
	target, ok := columnStatus[col]
	if !ok {
		return "", false, fmt.Errorf("unknown column %q: %w", col, ErrDropNotAllowed)
	}
	if err := tr.Check(t.Status, target); err != nil {
		return "", false, err
	}
	return target, target != t.Status, nil
}
