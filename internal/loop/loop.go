package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pacemangg/aatracker/internal/logger"
)

// Status represents the current state of the runner.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
	StatusCrashed Status = "CRASHED"
)

// ErrAlreadyRunning is returned by Run when the runner is already active.
var ErrAlreadyRunning = errors.New("runner already running")

// Task is the periodic unit of work.
type Task interface {
	Tick(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Tick(ctx context.Context) error { return f(ctx) }

// PanicError is a panic recovered from a tick.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// State is a snapshot of runner progress.
type State struct {
	TickCount  int
	LastTickAt time.Time
	Status     Status
	LastError  error
}

// Options configures a Runner.
type Options struct {
	// Interval is the delay between the end of one tick and the start of the next.
	Interval time.Duration
	// StopGrace bounds how long Stop waits for an in-flight tick.
	StopGrace time.Duration
	// Embedded runners report crashes through OnCrash instead of failing Run.
	Embedded bool
	OnCrash  func(error)
	// AfterTick runs on the runner goroutine after every tick that did not crash.
	AfterTick func()
}

// Runner drives a Task on a single goroutine with a fixed delay between ticks.
type Runner struct {
	task Task
	log  logger.Logger
	opts Options

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner. Zero durations default to 5s between ticks and a
// 10s stop grace period.
func NewRunner(task Task, log logger.Logger, opts Options) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 10 * time.Second
	}
	return &Runner{
		task:  task,
		log:   log,
		opts:  opts,
		state: State{Status: StatusIdle},
	}
}

// State returns the current runner state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run ticks immediately and then after every interval until ctx is cancelled,
// Stop is called, or a tick crashes. A crash is returned unless the runner is
// embedded, in which case OnCrash is invoked and Run returns nil.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.state.Status == StatusRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.state.Status = StatusRunning
	r.state.LastError = nil
	r.mu.Unlock()
	defer close(done)

	r.log.Debug("Runner started", logger.F("interval", r.opts.Interval))

	for {
		if err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				r.setStatus(StatusStopped)
				return nil
			}
			return r.crash(err)
		}

		select {
		case <-ctx.Done():
			r.setStatus(StatusStopped)
			return nil
		case <-time.After(r.opts.Interval):
		}
	}
}

// RunOnce executes a single tick, converting a panic into a *PanicError.
func (r *Runner) RunOnce(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()

	start := time.Now()
	err = r.task.Tick(ctx)

	r.mu.Lock()
	r.state.TickCount++
	r.state.LastTickAt = start
	r.mu.Unlock()

	if err == nil && r.opts.AfterTick != nil {
		r.opts.AfterTick()
	}
	return err
}

// Stop cancels the pending tick and waits up to the grace period for an
// in-flight one. It reports whether the runner exited in time.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return true
	}

	cancel()
	select {
	case <-done:
		return true
	case <-time.After(r.opts.StopGrace):
		r.log.Warn("Tracker did not stop within the grace period", logger.F("grace", r.opts.StopGrace))
		return false
	}
}

func (r *Runner) crash(err error) error {
	r.mu.Lock()
	r.state.Status = StatusCrashed
	r.state.LastError = err
	r.mu.Unlock()

	fields := []logger.Field{logger.F("error", err)}
	var pe *PanicError
	if errors.As(err, &pe) {
		fields = append(fields, logger.F("stack", string(pe.Stack)))
	}
	r.log.Error("PaceMan AA Tracker has crashed! Please report this bug to the developers.", fields...)

	if !r.opts.Embedded {
		return fmt.Errorf("tracker crashed: %w", err)
	}
	r.log.Error("PaceMan AA Tracker will now shut down, the host will need to be restarted to use it.")
	if r.opts.OnCrash != nil {
		r.opts.OnCrash(err)
	}
	return nil
}

func (r *Runner) setStatus(s Status) {
	r.mu.Lock()
	r.state.Status = s
	r.mu.Unlock()
}
