// Package ioreq models a reusable asynchronous I/O request: it is started,
// completed by whatever device services it, waited on, and then reused.
// A request carries at most one outstanding operation at a time.
package ioreq

import (
	"context"
	"errors"
	"sync"
)

type State int

const (
	Idle     State = iota // no operation, result consumed
	InFlight              // started, not yet completed
	Complete              // completed, result not yet consumed by Wait
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// ErrBusy is returned when a request is started while its previous
// operation is still outstanding or unconsumed.
var ErrBusy = errors.New("ioreq: request already in use")

// Func is an operation run by Submit. It returns the number of bytes transferred.
type Func func(ctx context.Context) (int, error)

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Closed returns a channel that is always closed.
func Closed() <-chan struct{} { return closed }

// Request is one reusable pending I/O request. The zero value is Idle and ready to use.
type Request struct {
	mu     sync.Mutex
	state  State
	done   chan struct{}
	cancel context.CancelFunc
	n      int
	err    error
}

// Start marks the request in flight. The returned context is cancelled
// by Abort and after completion; devices should complete the request with
// ctx.Err() when it is cancelled early.
func (r *Request) Start(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Idle {
		return nil, ErrBusy
	}
	rctx, cancel := context.WithCancel(ctx)
	r.state = InFlight
	r.done = make(chan struct{})
	r.cancel = cancel
	r.n, r.err = 0, nil
	return rctx, nil
}

// Complete records the result of the operation and wakes waiters.
// It reports false if the request was not in flight.
func (r *Request) Complete(n int, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != InFlight {
		return false
	}
	r.state = Complete
	r.n, r.err = n, err
	r.cancel()
	close(r.done)
	return true
}

// Submit starts the request and runs fn on its own goroutine.
func (r *Request) Submit(ctx context.Context, fn Func) error {
	rctx, err := r.Start(ctx)
	if err != nil {
		return err
	}
	go func() {
		n, err := fn(rctx)
		r.Complete(n, err)
	}()
	return nil
}

// Do runs fn and waits for it.
func (r *Request) Do(ctx context.Context, fn Func) (int, error) {
	if err := r.Submit(ctx, fn); err != nil {
		return 0, err
	}
	return r.Wait()
}

// Wait blocks until the operation completes, consumes its result and
// returns the request to Idle. Waiting on an Idle request returns at once.
func (r *Request) Wait() (int, error) {
	r.mu.Lock()
	if r.state == Idle {
		r.mu.Unlock()
		return 0, nil
	}
	done := r.done
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	n, err := r.n, r.err
	if r.state == Complete {
		r.state = Idle
	}
	return n, err
}

// Poll reports whether the operation has completed, without consuming it.
// An Idle request counts as complete.
func (r *Request) Poll() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != InFlight
}

// Pending reports whether an operation is outstanding.
func (r *Request) Pending() bool {
	return !r.Poll()
}

// Abort asks the device to cancel the operation. The request still has
// to be waited on.
func (r *Request) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == InFlight {
		r.cancel()
	}
}

// Done returns a channel that is closed once the current operation
// completes. For an Idle request the channel is already closed.
func (r *Request) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Idle {
		return closed
	}
	return r.done
}

func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
