package util

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrDelayCancelled is delivered by a delay that was cancelled without being told to resolve
var ErrDelayCancelled = errors.New("delay cancelled before it triggered")

// Cancellable receives the cancel function of a pending Delay
type Cancellable struct {
	mu     sync.Mutex
	cancel func(mustResolve bool) bool
}

// CancelTimeout cancels the pending delay, if it has not triggered yet, and either resolves it
// (mustResolve) or fails it with ErrDelayCancelled. Returns whether the delay had already triggered.
func (c *Cancellable) CancelTimeout(mustResolve bool) bool {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	return cancel(mustResolve)
}

// Delay starts a timer that delivers nil on the returned channel after d. If cancellable is not
// nil, a cancel function is installed on it; see Cancellable.CancelTimeout.
func Delay(d time.Duration, cancellable *Cancellable) <-chan error {
	done := make(chan error, 1)
	var (
		mu        sync.Mutex
		triggered bool
		settled   bool
	)
	timer := time.AfterFunc(d, func() {
		mu.Lock()
		defer mu.Unlock()
		if settled {
			return
		}
		triggered, settled = true, true
		done <- nil
	})

	if cancellable != nil {
		cancellable.mu.Lock()
		cancellable.cancel = func(mustResolve bool) bool {
			mu.Lock()
			defer mu.Unlock()
			if settled {
				return triggered
			}
			timer.Stop()
			settled = true
			if mustResolve {
				done <- nil
			} else {
				done <- ErrDelayCancelled
			}
			return triggered
		}
		cancellable.mu.Unlock()
	}
	return done
}
