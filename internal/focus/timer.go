// Package focus implements the pausable countdown used for focus sessions.
package focus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskmanager/internal/model"
)

const DefaultMinutes = 25

var (
	ErrNoTaskSelected  = errors.New("select a task first")
	ErrInvalidDuration = errors.New("duration must be at least one minute")
)

type Option func(*Timer)

// WithTick overrides the tick interval. Each tick still removes one second.
func WithTick(d time.Duration) Option {
	return func(t *Timer) { t.tick = d }
}

// OnTick is called after every tick with the remaining time.
func OnTick(fn func(remaining time.Duration)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// OnDone is called once when a run reaches zero.
func OnDone(fn func(task model.Task)) Option {
	return func(t *Timer) { t.onDone = fn }
}

// Timer counts down one second per tick while running. It is safe for
// concurrent use.
type Timer struct {
	mu        sync.Mutex
	duration  time.Duration
	remaining time.Duration
	running   bool
	gen       int
	cancel    context.CancelFunc
	task      *model.Task
	wg        sync.WaitGroup

	tick   time.Duration
	onTick func(time.Duration)
	onDone func(model.Task)
}

func New(opts ...Option) *Timer {
	t := &Timer{
		duration:  DefaultMinutes * time.Minute,
		remaining: DefaultMinutes * time.Minute,
		tick:      time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Select sets the task the session is for.
func (t *Timer) Select(task model.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.task = &task
}

// SetDuration resets the remaining time to minutes without stopping a running timer.
func (t *Timer) SetDuration(minutes int) error {
	if minutes < 1 {
		return ErrInvalidDuration
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = time.Duration(minutes) * time.Minute
	t.remaining = t.duration
	return nil
}

// Start begins ticking. Calling it while running does nothing. A finished
// timer starts over from the full duration.
func (t *Timer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.task == nil {
		return ErrNoTaskSelected
	}
	if t.running {
		return nil
	}
	if t.remaining <= 0 {
		t.remaining = t.duration
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.gen++
	t.cancel = cancel
	t.running = true
	t.wg.Add(1)
	go t.run(runCtx, t.gen)
	return nil
}

// Pause stops ticking and keeps the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Wait blocks until the ticking goroutine, if any, has exited.
func (t *Timer) Wait() {
	t.wg.Wait()
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Display renders the remaining time as M:SS.
func (t *Timer) Display() string {
	return Format(t.Remaining())
}

func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func (t *Timer) stopLocked() {
	if !t.running {
		return
	}
	t.running = false
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Timer) run(ctx context.Context, gen int) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			if t.gen == gen {
				t.stopLocked()
			}
			t.mu.Unlock()
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.gen != gen {
				t.mu.Unlock()
				return
			}
			t.remaining -= time.Second
			remaining := t.remaining
			finished := remaining <= 0
			var task model.Task
			if finished {
				t.remaining = 0
				remaining = 0
				task = *t.task
				t.stopLocked()
			}
			onTick, onDone := t.onTick, t.onDone
			t.mu.Unlock()

			if onTick != nil {
				onTick(remaining)
			}
			if finished {
				if onDone != nil {
					onDone(task)
				}
				return
			}
		}
	}
}
