package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/beadprep/internal/robot/sim"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// fakeDoor — управляемый датчик двери.
type fakeDoor struct {
	mu       sync.Mutex
	closed   bool
	queryErr error
	pauseErr error
	pauses   int
	resumes  int
}

func (d *fakeDoor) DoorClosed(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed, d.queryErr
}

func (d *fakeDoor) Pause(ctx context.Context, msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pauseErr != nil {
		return d.pauseErr
	}
	d.pauses++
	return nil
}

func (d *fakeDoor) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func (d *fakeDoor) set(closed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = closed
}

func TestCheck_Transitions(t *testing.T) {
	door := &fakeDoor{closed: true}
	var seen []Transition
	m := New(Config{Door: door, OnTransition: func(tr Transition) { seen = append(seen, tr) }})
	ctx := context.Background()

	steps := []struct {
		closed bool
		want   Transition
	}{
		{true, TransitionNone},
		{false, TransitionPaused},
		{false, TransitionStillOpen},
		{false, TransitionStillOpen},
		{true, TransitionResumed},
		{true, TransitionNone},
		{false, TransitionPaused},
		{true, TransitionResumed},
	}

	for i, s := range steps {
		door.set(s.closed)
		if got := m.Check(ctx); got != s.want {
			t.Errorf("step %d: expected %s, got %s", i, s.want, got)
		}
	}

	if door.pauses != 2 || door.resumes != 2 {
		t.Errorf("expected 2 pauses and 2 resumes, got %d and %d", door.pauses, door.resumes)
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 notifications, got %v", seen)
	}
	if m.Paused() {
		t.Error("monitor should not be paused")
	}
}

func TestCheck_QueryErrorKeepsState(t *testing.T) {
	door := &fakeDoor{closed: false}
	m := New(Config{Door: door})
	ctx := context.Background()

	if got := m.Check(ctx); got != TransitionPaused {
		t.Fatalf("expected paused, got %s", got)
	}

	door.mu.Lock()
	door.queryErr = errors.New("sensor offline")
	door.closed = true
	door.mu.Unlock()

	if got := m.Check(ctx); got != TransitionNone {
		t.Errorf("expected none on query error, got %s", got)
	}
	if !m.Paused() {
		t.Error("flag must stay paused after a failed query")
	}

	door.mu.Lock()
	door.queryErr = nil
	door.mu.Unlock()

	if got := m.Check(ctx); got != TransitionResumed {
		t.Errorf("expected resumed on retry, got %s", got)
	}
}

func TestCheck_PauseErrorRetried(t *testing.T) {
	door := &fakeDoor{closed: false, pauseErr: errors.New("busy")}
	m := New(Config{Door: door})
	ctx := context.Background()

	if got := m.Check(ctx); got != TransitionNone {
		t.Errorf("expected none, got %s", got)
	}
	if m.Paused() {
		t.Error("flag must not change when pause fails")
	}

	door.mu.Lock()
	door.pauseErr = nil
	door.mu.Unlock()

	if got := m.Check(ctx); got != TransitionPaused {
		t.Errorf("expected paused, got %s", got)
	}
}

func TestCheck_Metrics(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	door := &fakeDoor{closed: false}
	m := New(Config{Door: door, Metrics: metrics})
	ctx := context.Background()

	m.Check(ctx)
	if got := testutil.ToFloat64(metrics.RunPaused); got != 1 {
		t.Errorf("expected paused gauge 1, got %v", got)
	}

	door.set(true)
	m.Check(ctx)
	if got := testutil.ToFloat64(metrics.RunPaused); got != 0 {
		t.Errorf("expected paused gauge 0, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.PausesTotal); got != 1 {
		t.Errorf("expected 1 pause, got %v", got)
	}
}

func TestMonitor_PausesSimulator(t *testing.T) {
	r := sim.New(sim.Options{})
	transitions := make(chan Transition, 4)
	m := New(Config{
		Door:         r,
		Interval:     5 * time.Millisecond,
		OnTransition: func(tr Transition) { transitions <- tr },
	})

	m.Start(context.Background())
	defer m.Stop()

	r.SetDoorClosed(false)
	expectTransition(t, transitions, TransitionPaused)
	if !r.IsPaused() {
		t.Error("robot should be paused")
	}

	r.SetDoorClosed(true)
	expectTransition(t, transitions, TransitionResumed)
	if r.IsPaused() {
		t.Error("robot should be resumed")
	}
}

func TestMonitor_StopJoins(t *testing.T) {
	m := New(Config{Door: &fakeDoor{closed: true}, Interval: time.Millisecond})
	m.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestMonitor_StopWithoutStart(t *testing.T) {
	m := New(Config{Door: &fakeDoor{closed: true}})
	m.Stop()

	// Start после Stop не запускает горутину
	m.Start(context.Background())
	m.Stop()
}

func TestMonitor_StopResumesPausedDriver(t *testing.T) {
	r := sim.New(sim.Options{})
	transitions := make(chan Transition, 4)
	m := New(Config{
		Door:         r,
		Interval:     2 * time.Millisecond,
		OnTransition: func(tr Transition) { transitions <- tr },
	})
	m.Start(context.Background())

	r.SetDoorClosed(false)
	expectTransition(t, transitions, TransitionPaused)

	// Дверь всё ещё открыта, но монитор останавливается
	m.Stop()
	expectTransition(t, transitions, TransitionResumed)

	if m.Paused() {
		t.Error("monitor should not report pause after Stop")
	}
	if r.IsPaused() {
		t.Error("robot should be resumed after Stop")
	}

	// Команды драйвера больше не блокируются
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Comment(ctx, "after stop"); err != nil {
		t.Errorf("comment after stop: %v", err)
	}

	m.Stop()
	if got := r.Count(sim.KindResume); got != 1 {
		t.Errorf("expected 1 resume, got %d", got)
	}
}

func TestMonitor_ContextCancelled(t *testing.T) {
	door := &fakeDoor{closed: true}
	m := New(Config{Door: door, Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor goroutine did not exit on cancel")
	}
	m.Stop()
}

func expectTransition(t *testing.T, ch <-chan Transition, want Transition) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}
