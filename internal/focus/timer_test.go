package focus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"taskmanager/internal/model"
)

func TestFormat(t *testing.T) {
	cases := map[time.Duration]string{
		25 * time.Minute:               "25:00",
		61 * time.Second:               "1:01",
		9 * time.Second:                "0:09",
		0:                              "0:00",
		-time.Second:                   "0:00",
		4*time.Minute + 59*time.Second: "4:59",
	}
	for d, want := range cases {
		if got := Format(d); got != want {
			t.Errorf("Format(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestStartRequiresTask(t *testing.T) {
	timer := New()
	if err := timer.Start(context.Background()); !errors.Is(err, ErrNoTaskSelected) {
		t.Fatalf("expected ErrNoTaskSelected, got %v", err)
	}
	if timer.Display() != "25:00" {
		t.Errorf("default display: %s", timer.Display())
	}
}

func TestCompletesExactlyOnce(t *testing.T) {
	var done int32
	finished := make(chan model.Task, 2)
	timer := New(
		WithTick(time.Millisecond),
		OnDone(func(task model.Task) {
			atomic.AddInt32(&done, 1)
			finished <- task
		}),
	)
	timer.Select(model.Task{ID: 7, Title: "deep work"})
	if err := timer.SetDuration(1); err != nil {
		t.Fatalf("set duration: %v", err)
	}

	if err := timer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// starting again while running is a no-op
	if err := timer.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	select {
	case task := <-finished:
		if task.ID != 7 {
			t.Errorf("completed for task %d", task.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not complete")
	}
	timer.Wait()

	if n := atomic.LoadInt32(&done); n != 1 {
		t.Fatalf("expected one completion, got %d", n)
	}
	if timer.Running() || timer.Remaining() != 0 {
		t.Fatalf("expected stopped at zero, running=%v remaining=%v", timer.Running(), timer.Remaining())
	}
}

func TestPauseKeepsRemaining(t *testing.T) {
	ticked := make(chan time.Duration, 100)
	timer := New(WithTick(time.Millisecond), OnTick(func(d time.Duration) { ticked <- d }))
	timer.Select(model.Task{ID: 1})
	if err := timer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	<-ticked
	<-ticked
	timer.Pause()
	timer.Wait()

	paused := timer.Remaining()
	if paused >= 25*time.Minute || paused <= 0 {
		t.Fatalf("unexpected remaining after pause: %v", paused)
	}
	time.Sleep(20 * time.Millisecond)
	if timer.Remaining() != paused {
		t.Fatalf("remaining changed while paused: %v -> %v", paused, timer.Remaining())
	}
	if timer.Running() {
		t.Fatal("expected timer to be paused")
	}
}

func TestSetDurationResetsRemaining(t *testing.T) {
	timer := New()
	if err := timer.SetDuration(0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if err := timer.SetDuration(50); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	if timer.Display() != "50:00" {
		t.Fatalf("display: %s", timer.Display())
	}
}

func TestContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	timer := New(WithTick(time.Hour))
	timer.Select(model.Task{ID: 1})
	if err := timer.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	timer.Wait()
	if timer.Running() {
		t.Fatal("expected cancel to stop the timer")
	}
	if timer.Remaining() != 25*time.Minute {
		t.Fatalf("remaining changed: %v", timer.Remaining())
	}
}
