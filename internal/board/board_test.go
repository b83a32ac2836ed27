package board

import (
	"errors"
	"testing"
	"time"

	"taskmanager/internal/model"
)

func ts(s string) *time.Time {
	t, err := model.ParseTime(s, time.UTC)
	if err != nil {
		panic(err)
	}
	return &t
}

func task(id int64, status model.Status) model.Task {
	return model.Task{ID: id, Title: "task", Status: status, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func ids(tasks []model.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProjectEmpty(t *testing.T) {
	b := Project(nil, time.Now())
	if len(b.NotStarted)+len(b.InProgress)+len(b.DueToday)+len(b.Completed) != 0 {
		t.Fatalf("expected empty buckets: %+v", b)
	}
	if b.Percentages != (Percentages{}) {
		t.Fatalf("expected zero percentages, got %+v", b.Percentages)
	}
	if b.LatestCompleted() != nil {
		t.Fatal("expected no completed task")
	}
}

func TestProjectPartitionsByStatus(t *testing.T) {
	now := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	a := task(1, model.StatusNotStarted)
	a.DueDate = &due
	b := task(2, model.StatusInProgress)
	c := task(3, model.StatusCompleted)
	c.DueDate = &due
	d := task(4, model.StatusNotStarted)

	got := Project([]model.Task{a, b, c, d}, now)
	if !equalIDs(ids(got.NotStarted), []int64{1, 4}) {
		t.Errorf("not started: %v", ids(got.NotStarted))
	}
	if !equalIDs(ids(got.InProgress), []int64{2}) {
		t.Errorf("in progress: %v", ids(got.InProgress))
	}
	if !equalIDs(ids(got.Completed), []int64{3}) {
		t.Errorf("completed: %v", ids(got.Completed))
	}
	// due-today ignores status
	if !equalIDs(ids(got.DueToday), []int64{1, 3}) {
		t.Errorf("due today: %v", ids(got.DueToday))
	}
	if got.Percentages != (Percentages{Completed: 25, InProgress: 25, NotStarted: 50}) {
		t.Errorf("percentages: %+v", got.Percentages)
	}
}

func TestInProgressOldestStartFirst(t *testing.T) {
	late := task(1, model.StatusInProgress)
	late.StartedAt = ts("2025-01-02T09:00")
	unstarted := task(2, model.StatusInProgress)
	early := task(3, model.StatusInProgress)
	early.StartedAt = ts("2025-01-01T09:00")
	unstarted2 := task(4, model.StatusInProgress)

	got := Project([]model.Task{late, unstarted, early, unstarted2}, time.Now())
	if !equalIDs(ids(got.InProgress), []int64{3, 1, 2, 4}) {
		t.Fatalf("unexpected order: %v", ids(got.InProgress))
	}
}

func TestLatestCompleted(t *testing.T) {
	older := task(1, model.StatusCompleted)
	older.CompletedAt = ts("2025-01-10")
	newer := task(2, model.StatusCompleted)
	newer.CompletedAt = ts("2025-01-12")
	missing := task(3, model.StatusCompleted)

	got := Project([]model.Task{older, missing, newer}, time.Now())
	if latest := got.LatestCompleted(); latest == nil || latest.ID != 2 {
		t.Fatalf("expected task 2, got %+v", latest)
	}
	if !equalIDs(ids(got.Completed), []int64{2, 1, 3}) {
		t.Errorf("completed order: %v", ids(got.Completed))
	}
}

func TestLatestCompletedTieBreaks(t *testing.T) {
	same := ts("2025-01-10T10:00")
	a := task(1, model.StatusCompleted)
	a.CompletedAt = same
	a.StartedAt = ts("2025-01-05")
	b := task(2, model.StatusCompleted)
	b.CompletedAt = same
	b.StartedAt = ts("2025-01-07")

	if got := Project([]model.Task{a, b}, time.Now()).LatestCompleted(); got.ID != 2 {
		t.Fatalf("expected later start to win, got %d", got.ID)
	}

	c := task(3, model.StatusCompleted)
	c.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	d := task(4, model.StatusCompleted)
	if got := Project([]model.Task{d, c}, time.Now()).LatestCompleted(); got.ID != 3 {
		t.Fatalf("expected later creation to win, got %d", got.ID)
	}
}

func TestPercentagesNeverExceed100(t *testing.T) {
	for total := 1; total <= 30; total++ {
		for c := 0; c <= total; c++ {
			for ip := 0; c+ip <= total; ip++ {
				ns := total - c - ip
				p := percentages(c, ip, ns, total)
				sum := p.Completed + p.InProgress + p.NotStarted
				if sum > 100 {
					t.Fatalf("%d/%d/%d of %d: sum %d", c, ip, ns, total, sum)
				}
				for _, v := range []int{p.Completed, p.InProgress, p.NotStarted} {
					if v < 0 || v > 100 {
						t.Fatalf("%d/%d/%d of %d: out of range %+v", c, ip, ns, total, p)
					}
				}
			}
		}
	}
}

func TestPercentagesOvershootCorrected(t *testing.T) {
	// 37.5 + 37.5 + 25 rounds to 38 + 38 + 25
	p := percentages(3, 3, 2, 8)
	if p.Completed+p.InProgress+p.NotStarted != 100 {
		t.Fatalf("expected sum 100, got %+v", p)
	}
	if p.NotStarted != 25 {
		t.Errorf("exact part must be untouched: %+v", p)
	}
}

func TestUnknownStatusCountsAsNotStarted(t *testing.T) {
	blank := task(1, model.Status(""))
	odd := task(2, model.Status("Blocked"))
	done := task(3, model.StatusCompleted)
	b := Project([]model.Task{blank, odd, done}, time.Now())
	if !equalIDs(ids(b.NotStarted), []int64{1, 2}) {
		t.Fatalf("expected unknown statuses in not-started, got %v", ids(b.NotStarted))
	}
	if p := b.Percentages; p.Completed != 33 || p.InProgress != 0 || p.NotStarted != 67 {
		t.Fatalf("unexpected percentages: %+v", p)
	}
}

func TestSearchAndFilters(t *testing.T) {
	a := task(1, model.StatusNotStarted)
	a.Title = "Write Report"
	a.CreatedAt = time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	b := task(2, model.StatusCompleted)
	b.Title = "groceries"
	b.CreatedAt = time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

	if got := Search([]model.Task{a, b}, "REPORT"); !equalIDs(ids(got), []int64{1}) {
		t.Errorf("search: %v", ids(got))
	}
	if got := Search([]model.Task{a, b}, "  "); len(got) != 2 {
		t.Errorf("blank search should keep all, got %v", ids(got))
	}
	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := FilterByDate([]model.Task{a, b}, day); !equalIDs(ids(got), []int64{2}) {
		t.Errorf("date filter: %v", ids(got))
	}
	if got := SortNewestFirst([]model.Task{a, b}); !equalIDs(ids(got), []int64{2, 1}) {
		t.Errorf("newest first: %v", ids(got))
	}
	if got := FocusCandidates([]model.Task{a, b}); !equalIDs(ids(got), []int64{1}) {
		t.Errorf("focus candidates: %v", ids(got))
	}
}

func TestDrop(t *testing.T) {
	strict := model.NewTransitions(model.TransitionStrict)
	permissive := model.NewTransitions(model.TransitionPermissive)

	next, changed, err := Drop(task(1, model.StatusNotStarted), ColumnInProgress, strict)
	if err != nil || !changed || next != model.StatusInProgress {
		t.Fatalf("forward drop: %v %v %v", next, changed, err)
	}

	_, _, err = Drop(task(1, model.StatusCompleted), ColumnNotStarted, strict)
	if !errors.Is(err, model.ErrTransitionNotAllowed) {
		t.Fatalf("expected strict rejection, got %v", err)
	}
	if next, _, err := Drop(task(1, model.StatusCompleted), ColumnNotStarted, permissive); err != nil || next != model.StatusNotStarted {
		t.Fatalf("permissive drop: %v %v", next, err)
	}

	if _, _, err := Drop(task(1, model.StatusNotStarted), ColumnDueToday, permissive); !errors.Is(err, ErrDropNotAllowed) {
		t.Fatalf("expected due-today rejection, got %v", err)
	}

	_, changed, err = Drop(task(1, model.StatusInProgress), ColumnInProgress, strict)
	if err != nil || changed {
		t.Fatalf("same column should be a no-op: %v %v", changed, err)
	}
}

func TestParseColumn(t *testing.T) {
	for in, want := range map[string]Column{
		"in-progress": ColumnInProgress,
		"In Progress": ColumnInProgress,
		"not_started": ColumnNotStarted,
		"due-today":   ColumnDueToday,
		"COMPLETED":   ColumnCompleted,
	} {
		if got, ok := ParseColumn(in); !ok || got != want {
			t.Errorf("%q: got %q %v", in, got, ok)
		}
	}
	if _, ok := ParseColumn("archive"); ok {
		t.Error("unknown column accepted")
	}
}

func TestStateFiltersAndSelection(t *testing.T) {
	a := task(1, model.StatusNotStarted)
	a.Title = "alpha"
	b := task(2, model.StatusInProgress)
	b.Title = "beta"
	b.CreatedAt = a.CreatedAt.Add(time.Hour)

	s := NewState([]model.Task{a, b})
	if !equalIDs(ids(s.View), []int64{2, 1}) {
		t.Fatalf("initial view: %v", ids(s.View))
	}

	s.ApplySearch("alp")
	if !equalIDs(ids(s.View), []int64{1}) {
		t.Fatalf("search view: %v", ids(s.View))
	}
	s.ApplyDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if len(s.View) != 2 {
		t.Fatalf("date view replaces search, got %v", ids(s.View))
	}

	if !s.Select(2) || s.Selected.Title != "beta" {
		t.Fatalf("select failed: %+v", s.Selected)
	}
	b.Status = model.StatusCompleted
	s.Reload([]model.Task{a, b})
	if s.Selected == nil || s.Selected.Status != model.StatusCompleted {
		t.Fatalf("selection not refreshed: %+v", s.Selected)
	}
	s.Reload([]model.Task{a})
	if s.Selected != nil {
		t.Fatal("vanished task must be deselected")
	}
	if s.Select(99) {
		t.Fatal("selecting unknown id must fail")
	}
}
