// Package cooldown schedules the automatic resumption of a quota-limited
// search after its retry-after window elapses.
package cooldown

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetryFunc re-invokes a search with the parameters remembered by the
// caller's closure.
type RetryFunc func()

// TickFunc observes each countdown step with the ticks remaining.
type TickFunc func(remaining int)

// Controller drives a one-shot countdown-and-retry. Only one countdown is
// live at a time: scheduling a new one supersedes any pending retry, so
// overlapping searches never stack countdowns.
type Controller struct {
	interval time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

// New creates a controller ticking once per second.
func New() *Controller {
	return NewWithInterval(time.Second)
}

// NewWithInterval creates a controller with a custom tick, for tests.
func NewWithInterval(d time.Duration) *Controller {
	if d <= 0 {
		d = time.Second
	}
	return &Controller{interval: d}
}

// Schedule starts a countdown of wait (rounded up to whole ticks) and
// calls retry when it reaches zero. onTick, if non-nil, fires after each
// tick with the count remaining. Any previously scheduled retry is
// cancelled first.
func (c *Controller) Schedule(wait time.Duration, onTick TickFunc, retry RetryFunc) {
	remaining := int((wait + c.interval - 1) / c.interval)
	if remaining < 1 {
		remaining = 1
	}

	c.mu.Lock()
	if c.cancel != nil {
		close(c.cancel)
	}
	cancel := make(chan struct{})
	c.cancel = cancel
	c.mu.Unlock()

	zap.L().Info("cooldown scheduled",
		zap.Duration("wait", wait),
		zap.Int("ticks", remaining),
	)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for remaining > 0 {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				remaining--
				if onTick != nil {
					onTick(remaining)
				}
			}
		}

		if !c.clearIfCurrent(cancel) {
			return
		}
		retry()
	}()
}

// Cancel halts any pending countdown without retrying and resets the
// controller.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

// Active reports whether a countdown is pending.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// clearIfCurrent clears the controller state if cancel is still the live
// countdown. Returns false when a newer Schedule or a Cancel superseded it
// between the final tick and now.
func (c *Controller) clearIfCurrent(cancel chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != cancel {
		return false
	}
	c.cancel = nil
	return true
}
