package loop

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pacemangg/aatracker/internal/logger"
)

func TestRunTicksUntilStopped(t *testing.T) {
	var ticks, after atomic.Int32
	task := TaskFunc(func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	})
	r := NewRunner(task, logger.NewNoopLogger(), Options{
		Interval:  5 * time.Millisecond,
		AfterTick: func() { after.Add(1) },
	})

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !r.Stop() {
		t.Fatal("Stop timed out")
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if ticks.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
	}
	if after.Load() != ticks.Load() {
		t.Errorf("AfterTick ran %d times for %d ticks", after.Load(), ticks.Load())
	}
	if s := r.State(); s.Status != StatusStopped || s.TickCount != int(ticks.Load()) {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestTicksNeverOverlap(t *testing.T) {
	var inFlight, overlaps, ticks atomic.Int32
	task := TaskFunc(func(ctx context.Context) error {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		inFlight.Add(-1)
		ticks.Add(1)
		return nil
	})
	r := NewRunner(task, logger.NewNoopLogger(), Options{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	for ticks.Load() < 5 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if overlaps.Load() != 0 {
		t.Errorf("%d overlapping ticks", overlaps.Load())
	}
}

func TestStandaloneCrashIsReturned(t *testing.T) {
	rec := logger.NewRecorder()
	task := TaskFunc(func(ctx context.Context) error {
		var m map[string]int
		m["boom"]++
		return nil
	})
	r := NewRunner(task, rec, Options{Interval: time.Millisecond})

	err := r.Run(context.Background())
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a recovered panic, got %v", err)
	}
	if len(pe.Stack) == 0 {
		t.Error("expected a stack trace")
	}
	if r.State().Status != StatusCrashed {
		t.Errorf("status = %s", r.State().Status)
	}
	if !rec.Contains(logger.LevelError, "has crashed") {
		t.Errorf("crash not logged: %v", rec.Entries())
	}
	if rec.Contains(logger.LevelError, "will now shut down") {
		t.Error("standalone crash should not mention a host")
	}
}

func TestEmbeddedCrashNotifiesHost(t *testing.T) {
	rec := logger.NewRecorder()
	boom := errors.New("invariant broken")
	var ticks atomic.Int32
	task := TaskFunc(func(ctx context.Context) error {
		ticks.Add(1)
		return boom
	})

	var crashed error
	r := NewRunner(task, rec, Options{
		Interval: time.Millisecond,
		Embedded: true,
		OnCrash:  func(err error) { crashed = err },
	})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("embedded Run should not fail, got %v", err)
	}
	if !errors.Is(crashed, boom) {
		t.Errorf("OnCrash got %v", crashed)
	}
	if ticks.Load() != 1 {
		t.Errorf("runner kept ticking after a crash: %d", ticks.Load())
	}
	if !rec.Contains(logger.LevelError, "will now shut down") {
		t.Errorf("expected shutdown message, got %v", rec.Messages(logger.LevelError))
	}
}

func TestStopGivesUpAfterGrace(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	task := TaskFunc(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	rec := logger.NewRecorder()
	r := NewRunner(task, rec, Options{StopGrace: 20 * time.Millisecond})

	go func() { _ = r.Run(context.Background()) }()
	<-started

	if r.Stop() {
		t.Error("Stop should report the tick outlived the grace period")
	}
	close(release)

	found := false
	for _, m := range rec.Messages(logger.LevelWarn) {
		if strings.Contains(m, "grace period") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected grace warning, got %v", rec.Entries())
	}
}

func TestCancelledTickIsNotACrash(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := TaskFunc(func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	r := NewRunner(task, logger.NewNoopLogger(), Options{})

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if r.State().Status != StatusStopped {
		t.Errorf("status = %s", r.State().Status)
	}
}

func TestStopBeforeRun(t *testing.T) {
	r := NewRunner(TaskFunc(func(context.Context) error { return nil }), logger.NewNoopLogger(), Options{})
	if !r.Stop() {
		t.Error("Stop on an idle runner should return immediately")
	}
}
