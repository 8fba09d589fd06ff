package alert

import (
	"context"
	"errors"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakePlayer struct {
	active   atomic.Int32
	maxSeen  atomic.Int32
	plays    atomic.Int32
	duration time.Duration
	err      error
}

func (p *fakePlayer) Play(ctx context.Context) error {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		m := p.maxSeen.Load()
		if n <= m || p.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	p.plays.Add(1)

	select {
	case <-time.After(p.duration):
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.err
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir(), LogLevel: "error", LogMaxSizeMB: 1})
	t.Cleanup(func() { l.Close() })
	return l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestController_ViolationThenClear(t *testing.T) {
	player := &fakePlayer{duration: 20 * time.Millisecond}
	c := NewController(player, newTestLogger(t))
	defer c.Shutdown()

	c.Signal(true)
	if c.State() != Alerting {
		t.Fatalf("State = %v after violation, want alerting", c.State())
	}
	waitFor(t, func() bool { return player.plays.Load() > 0 })

	c.Signal(false)
	if c.State() != Idle {
		t.Fatalf("State = %v after clear, want idle", c.State())
	}
	if n := player.active.Load(); n != 0 {
		t.Errorf("%d sound cycles still running after the controller reported idle", n)
	}
}

func TestController_AtMostOneTask(t *testing.T) {
	player := &fakePlayer{duration: 5 * time.Millisecond}
	c := NewController(player, newTestLogger(t))
	defer c.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Signal((i+j)%3 != 0)
			}
		}(i)
	}
	wg.Wait()

	if m := player.maxSeen.Load(); m > 1 {
		t.Errorf("observed %d concurrent sound loops, want at most 1", m)
	}
}

func TestController_RepeatedSignalsAreNoOps(t *testing.T) {
	var transitions []State
	player := &fakePlayer{duration: 5 * time.Millisecond}
	c := NewController(player, newTestLogger(t))
	c.OnChange = func(s State) { transitions = append(transitions, s) }

	c.Signal(false)
	c.Signal(true)
	c.Signal(true)
	c.Signal(true)
	c.Signal(false)
	c.Signal(false)
	c.Shutdown()

	want := []State{Alerting, Idle}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestController_ShutdownInterruptsAndIgnoresLaterSignals(t *testing.T) {
	player := &fakePlayer{duration: time.Hour}
	c := NewController(player, newTestLogger(t))

	c.Signal(true)
	waitFor(t, func() bool { return player.plays.Load() > 0 })

	finished := make(chan struct{})
	go func() {
		c.Shutdown()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not interrupt the running sound")
	}

	c.Shutdown()
	c.Signal(true)
	if c.State() != Idle {
		t.Errorf("State = %v after shutdown, want idle", c.State())
	}
	if n := player.active.Load(); n != 0 {
		t.Errorf("%d sound cycles running after shutdown", n)
	}
}

func TestController_PlayerErrorBacksOff(t *testing.T) {
	player := &fakePlayer{err: errors.New("no such file")}
	c := NewController(player, newTestLogger(t))
	c.backoff = 50 * time.Millisecond

	c.Signal(true)
	time.Sleep(120 * time.Millisecond)
	c.Shutdown()

	if n := player.plays.Load(); n > 5 {
		t.Errorf("player called %d times in 120ms, back-off not applied", n)
	}
}

func TestState_String(t *testing.T) {
	if Idle.String() != "idle" || Alerting.String() != "alerting" {
		t.Errorf("unexpected state names %q %q", Idle, Alerting)
	}
}
