// Package request provides the request handle returned by the simulated AWS clients.
//
// A Request can be completed in three ways, mirroring the callback, send and promise styles of
// the AWS SDKs: a callback given when the request is created, Send with a callback later on, or
// Wait. Each of them is backed by the same single-shot completion: wait out the configured delay,
// then produce the outcome exactly once.
package request

import (
	"context"
	"sync"
	"time"
)

// Callback receives the outcome of a request
type Callback[T any] func(result T, err error)

// Deliver produces the outcome of a request, once its delay has elapsed
type Deliver[T any] func(ctx context.Context) (T, error)

// Request is a handle on a simulated (or real) AWS operation
type Request[T any] struct {
	delay   time.Duration
	deliver Deliver[T]

	once    sync.Once
	awaited *completion[T]
}

// New creates a request whose outcome is produced by deliver after delay. Any callbacks given
// are triggered immediately, as if Send had been called with each of them.
func New[T any](delay time.Duration, deliver Deliver[T], callbacks ...Callback[T]) *Request[T] {
	r := &Request[T]{delay: delay, deliver: deliver}
	for _, cb := range callbacks {
		r.Send(cb)
	}
	return r
}

// Send triggers the request now and delivers its outcome to cb on another goroutine.
// Every call to Send triggers a new delivery. A nil cb is ignored.
func (r *Request[T]) Send(cb Callback[T]) {
	if cb == nil {
		return
	}
	c := start(context.Background(), r.delay, r.deliver)
	go func() {
		<-c.done
		cb(c.result, c.err)
	}()
}

// Wait triggers the request on first use and blocks until its outcome is available or ctx is
// done. Later calls to Wait share the outcome of the first one.
func (r *Request[T]) Wait(ctx context.Context) (T, error) {
	r.once.Do(func() {
		r.awaited = start(ctx, r.delay, r.deliver)
	})
	select {
	case <-r.awaited.done:
		return r.awaited.result, r.awaited.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
