package board

import (
	"time"

	"taskmanager/internal/model"
)

// State is the client-side view: every task, the filtered list being shown,
// and the task selected for a focus session.
type State struct {
	All      []model.Task
	View     []model.Task
	Selected *model.Task

	query string
	day   *time.Time
}

func NewState(tasks []model.Task) *State {
	s := &State{}
	s.Reload(tasks)
	return s
}

// Reload replaces the task list, keeps the active filter and refreshes the
// selection from the new data. A selected task that vanished is dropped.
func (s *State) Reload(tasks []model.Task) {
	s.All = SortNewestFirst(tasks)
	s.refresh()

	if s.Selected == nil {
		return
	}
	id := s.Selected.ID
	s.Selected = nil
	s.Select(id)
}

// ApplySearch shows tasks matching q; it replaces any date filter.
func (s *State) ApplySearch(q string) {
	s.query, s.day = q, nil
	s.refresh()
}

// ApplyDate shows tasks created on day; it replaces any search.
func (s *State) ApplyDate(day time.Time) {
	s.query, s.day = "", &day
	s.refresh()
}

// Select marks the task with id as the focus target.
func (s *State) Select(id int64) bool {
	for i := range s.All {
		if s.All[i].ID == id {
			t := s.All[i]
			s.Selected = &t
			return true
		}
	}
	return false
}

// Board projects every task, ignoring the active filter.
func (s *State) Board(now time.Time) Board {
	return Project(s.All, now)
}

func (s *State) refresh() {
	switch {
	case s.day != nil:
		s.View = FilterByDate(s.All, *s.day)
	default:
		s.View = Search(s.All, s.query)
	}
}
