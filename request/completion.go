package request

import (
	"context"
	"time"

	"github.com/Clever/awsmock/util"
)

// completion is a single-shot outcome: it waits out a delay, runs deliver exactly once and
// then closes done. result and err must only be read after done is closed.
type completion[T any] struct {
	done   chan struct{}
	result T
	err    error
}

func start[T any](ctx context.Context, delay time.Duration, deliver Deliver[T]) *completion[T] {
	c := &completion[T]{done: make(chan struct{})}
	cancellable := &util.Cancellable{}
	fired := util.Delay(delay, cancellable)
	go func() {
		defer close(c.done)
		var err error
		select {
		case err = <-fired:
		case <-ctx.Done():
			// if the timer won the race, fired already holds its nil
			cancellable.CancelTimeout(false)
			err = <-fired
		}
		if err != nil {
			c.err = ctx.Err()
			return
		}
		c.result, c.err = deliver(ctx)
	}()
	return c
}
