// Package alert owns the looping alarm sound that accompanies a violation.
package alert

import (
	"context"
	"ppemonitor/internal/logger"
	"sync"
	"time"
)

// Player plays the alert sound once and returns when it finished.
type Player interface {
	Play(ctx context.Context) error
}

// State of the controller.
type State int

const (
	Idle State = iota
	Alerting
)

func (s State) String() string {
	if s == Alerting {
		return "alerting"
	}
	return "idle"
}

const defaultBackoff = time.Second

// Controller runs at most one sound loop. The loop is active iff the last
// signalled frame contained a violation.
type Controller struct {
	player  Player
	logger  *logger.Logger
	backoff time.Duration

	// OnChange is called on every state transition while the controller lock
	// is held; it must not call back into the controller.
	OnChange func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

func NewController(player Player, logger *logger.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		player:  player,
		logger:  logger,
		backoff: defaultBackoff,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Signal reports the violation flag of the frame that was just processed.
// Switching off blocks until the running sound cycle has finished.
func (c *Controller) Signal(violation bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if violation {
		c.startLocked()
	} else {
		c.stopLocked()
	}
}

// Shutdown interrupts the sound, waits for the loop and ignores later signals.
// Unlike Signal(false) it does not wait for the current sound cycle to finish.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.stopLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) startLocked() {
	if c.state == Alerting {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stop, c.done)

	c.setStateLocked(Alerting)
	c.logger.Info("Alert sound started")
}

func (c *Controller) stopLocked() {
	if c.state == Idle {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil

	c.setStateLocked(Idle)
	c.logger.Info("Alert sound stopped")
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	if c.OnChange != nil {
		c.OnChange(s)
	}
}

func (c *Controller) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		default:
		}

		err := c.player.Play(c.ctx)
		if err == nil {
			continue
		}
		if c.ctx.Err() != nil {
			return
		}

		c.logger.Warning("Alert sound failed: %v", err)
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}
}
