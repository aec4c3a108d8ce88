package cooldown

import (
	"sync"
	"time"
)

// Pulse is a cancellable repeating interval for cosmetic progress updates.
// It is fully independent of the request it decorates and never gates
// correctness; stopping it has no other effect.
type Pulse struct {
	stop chan struct{}
	once sync.Once
}

// NewPulse calls fn every interval until Stop.
func NewPulse(interval time.Duration, fn func()) *Pulse {
	p := &Pulse{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return p
}

// Stop halts the pulse. Safe to call more than once.
func (p *Pulse) Stop() {
	p.once.Do(func() { close(p.stop) })
}
