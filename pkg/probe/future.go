package probe

import (
	"context"
	"sync"
)

// State is the settlement state of a Future.
type State int

// Future states. A future moves from Pending to Resolved or Rejected once.
const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Future is a one-shot result. It is settled by the stand-in that observes
// the expected call and awaited by the run combinator.
type Future struct {
	once sync.Once
	done chan struct{}

	// written before done is closed, read only after
	state State
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settle resolves the future when err is nil and rejects it otherwise.
// Only the first call has an effect; it reports whether this call settled it.
func (f *Future) settle(err error) bool {
	settled := false
	f.once.Do(func() {
		if err != nil {
			f.state, f.err = Rejected, err
		} else {
			f.state = Resolved
		}
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// State returns the current state.
func (f *Future) State() State {
	select {
	case <-f.done:
		return f.state
	default:
		return Pending
	}
}

// Err returns the rejection reason, or nil while pending or once resolved.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Await blocks until the future settles or ctx ends.
func (f *Future) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
