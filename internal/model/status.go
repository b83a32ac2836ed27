package model

import (
	"errors"
	"strings"
)

type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var ErrTransitionNotAllowed = errors.New("status transition not allowed")

// ParseStatus accepts the three statuses case-insensitively.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusNotStarted, StatusInProgress, StatusCompleted} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}

// NormalizeStatus parses s, reading a blank or unknown stored status as Not Started.
func NormalizeStatus(s string) Status {
	if st, ok := ParseStatus(s); ok {
		return st
	}
	return StatusNotStarted
}

type TransitionMode string

const (
	TransitionStrict     TransitionMode = "strict"
	TransitionPermissive TransitionMode = "permissive"
)

// forward lists the transitions allowed in strict mode.
var forward = map[Status][]Status{
	StatusNotStarted: {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
}

// Transitions decides whether a task may move from one status to another.
type Transitions struct {
	mode TransitionMode
}

func NewTransitions(mode TransitionMode) Transitions {
	if mode != TransitionPermissive {
		mode = TransitionStrict
	}
	return Transitions{mode: mode}
}

func (t Transitions) Mode() TransitionMode {
	return t.mode
}

// Allowed reports whether from → to is permitted. Staying in place is always allowed.
func (t Transitions) Allowed(from, to Status) bool {
	if from == to {
		return true
	}
	if t.mode == TransitionPermissive {
		_, ok := forward[to]
		return ok
	}
	if _, known := forward[from]; !known {
		// rows edited by hand may carry no status
		from = StatusNotStarted
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns ErrTransitionNotAllowed when from → to is rejected.
func (t Transitions) Check(from, to Status) error {
	if !t.Allowed(from, to) {
		return ErrTransitionNotAllowed
	}
	return nil
}
