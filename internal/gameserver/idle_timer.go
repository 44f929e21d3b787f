package gameserver

import (
	"sync"
	"time"
)

// IdleTimer fires a callback once a session has been idle for a configurable
// duration. It is safe for concurrent use.
type IdleTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	onFire  func()
	stopped bool
	gen     uint64
}

// NewIdleTimer creates and starts a timer that calls onFire after d.
// onFire is called in a separate goroutine.
//
// Precondition: d > 0; onFire must not be nil.
// Postcondition: onFire will be called unless Reset or Stop is called first.
func NewIdleTimer(d time.Duration, onFire func()) *IdleTimer {
	it := &IdleTimer{onFire: onFire}
	it.arm(d)
	return it
}

// arm starts a new countdown. Callers other than NewIdleTimer hold mu.
func (it *IdleTimer) arm(d time.Duration) {
	it.gen++
	gen := it.gen
	it.timer = time.AfterFunc(d, func() {
		it.mu.Lock()
		live := !it.stopped && it.gen == gen
		it.mu.Unlock()
		if live {
			it.onFire()
		}
	})
}

// Reset restarts the countdown from now. It has no effect after Stop.
//
// Postcondition: a countdown started before Reset never fires.
func (it *IdleTimer) Reset(d time.Duration) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped {
		return
	}
	it.timer.Stop()
	it.arm(d)
}

// Stop prevents pending countdowns from firing. Safe to call multiple times.
//
// Postcondition: no countdown fires after Stop returns, but a callback that
// was already running may still complete; onFire must tolerate that.
func (it *IdleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	it.timer.Stop()
}
