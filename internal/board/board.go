// Package board projects a user's tasks onto the dashboard columns.
package board

import (
	"math"
	"sort"
	"strings"
	"time"

	"taskmanager/internal/model"
)

type Percentages struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	NotStarted int `json:"notStarted"`
}

type Board struct {
	NotStarted []model.Task
	// InProgress is ordered oldest start first.
	InProgress []model.Task
	// DueToday holds tasks due on the current local date, whatever their status.
	DueToday []model.Task
	// Completed is ordered most recently completed first.
	Completed   []model.Task
	Percentages Percentages
}

// LatestCompleted is the one completed task the dashboard shows.
func (b Board) LatestCompleted() *model.Task {
	if len(b.Completed) == 0 {
		return nil
	}
	t := b.Completed[0]
	return &t
}

// Project partitions tasks into the board buckets. now should already be in
// the display location.
func Project(tasks []model.Task, now time.Time) Board {
	b := Board{
		NotStarted: []model.Task{},
		InProgress: []model.Task{},
		DueToday:   []model.Task{},
		Completed:  []model.Task{},
	}
	for _, t := range tasks {
		switch model.NormalizeStatus(string(t.Status)) {
		case model.StatusNotStarted:
			b.NotStarted = append(b.NotStarted, t)
		case model.StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case model.StatusCompleted:
			b.Completed = append(b.Completed, t)
		}
		if t.DueOn(now) {
			b.DueToday = append(b.DueToday, t)
		}
	}

	sort.SliceStable(b.InProgress, func(i, j int) bool {
		return before(b.InProgress[i].StartedAt, b.InProgress[j].StartedAt)
	})
	sort.SliceStable(b.Completed, func(i, j int) bool {
		return newerCompletion(b.Completed[i], b.Completed[j])
	})

	b.Percentages = percentages(len(b.Completed), len(b.InProgress), len(b.NotStarted), len(tasks))
	return b
}

// before orders timestamps ascending with missing values last.
func before(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

// newerCompletion compares completion, then start, then creation time, all
// descending. Missing values count as oldest.
func newerCompletion(a, b model.Task) bool {
	if c := compareDesc(a.CompletedAt, b.CompletedAt); c != 0 {
		return c < 0
	}
	if c := compareDesc(a.StartedAt, b.StartedAt); c != 0 {
		return c < 0
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func compareDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.After(*b):
		return -1
	case b.After(*a):
		return 1
	}
	return 0
}

// percentages rounds each share to the nearest integer. If rounding pushes the
// sum past 100, the part rounded up the most gives back the excess.
func percentages(completed, inProgress, notStarted, total int) Percentages {
	denom := float64(max(total, 1))
	counts := [3]int{completed, inProgress, notStarted}

	var exact [3]float64
	var rounded [3]int
	sum := 0
	for i, n := range counts {
		exact[i] = float64(n) * 100 / denom
		rounded[i] = int(math.Round(exact[i]))
		sum += rounded[i]
	}
	for sum > 100 {
		worst := 0
		for i := 1; i < 3; i++ {
			if float64(rounded[i])-exact[i] > float64(rounded[worst])-exact[worst] {
				worst = i
			}
		}
		rounded[worst]--
		sum--
	}
	return Percentages{Completed: rounded[0], InProgress: rounded[1], NotStarted: rounded[2]}
}

// Search keeps tasks whose title contains q, ignoring case. An empty query keeps everything.
func Search(tasks []model.Task, q string) []model.Task {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []model.Task{}
	for _, t := range tasks {
		if q == "" || strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByDate keeps tasks created on day. Creation dates are UTC calendar
// dates; day's own year, month and day are used.
func FilterByDate(tasks []model.Task, day time.Time) []model.Task {
	y, m, d := day.Date()
	out := []model.Task{}
	for _, t := range tasks {
		ty, tm, td := t.CreatedAt.UTC().Date()
		if ty == y && tm == m && td == d {
			out = append(out, t)
		}
	}
	return out
}

// SortNewestFirst returns a copy ordered by creation time, newest first.
func SortNewestFirst(tasks []model.Task) []model.Task {
	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// FocusCandidates are the tasks a focus session can be started on.
func FocusCandidates(tasks []model.Task) []model.Task {
	out := []model.Task{}
	for _, t := range tasks {
		if t.Status != model.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}
