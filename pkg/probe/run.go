package probe

import (
	"context"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/abitwise/express-api-test/internal/id"
)

// Run is the outcome of invoking the handler: the conjunction of every
// expectation registered before Probe.Run was called.
type Run struct {
	id           string
	expectations []*Expectation
	fault        *Future
	logger       *slog.Logger
}

// Run invokes the handler once, synchronously, with the probe's request and
// response, and returns the combinator over all registered expectations.
// A panic in the handler is recovered and fails the run. Later calls return
// the same Run without invoking the handler again.
func (p *Probe) Run() *Run {
	p.mu.Lock()
	if p.run != nil {
		r := p.run
		p.mu.Unlock()
		return r
	}
	r := &Run{
		id:           id.Run(),
		expectations: p.reg.snapshot(),
		fault:        p.reg.fault,
		logger:       p.logger,
	}
	p.run = r
	p.mu.Unlock()

	r.logger.Debug("invoking handler", "run", r.id, "expectations", len(r.expectations))
	p.invoke()
	return r
}

func (p *Probe) invoke() {
	if p.handler == nil {
		p.reg.fail(ErrNilHandler)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("handler panicked", "panic", rec)
			p.reg.fail(&HandlerPanicError{Value: rec, Stack: debug.Stack()})
		}
	}()
	p.handler(p.req, p.res)
}

// ID identifies the run in logs.
func (r *Run) ID() string {
	return r.id
}

// Expectations returns the expectations this run waits for.
func (r *Run) Expectations() []*Expectation {
	out := make([]*Expectation, len(r.expectations))
	copy(out, r.expectations)
	return out
}

// Wait blocks until every expectation resolved, returning nil, or until the
// first failure, returning it. Failures are mismatches (*ExpectationError),
// unexpected calls (*UnexpectedCallError) and handler panics
// (*HandlerPanicError). When ctx ends first Wait returns a
// *NotSettledError that matches both ErrNotSettled and ctx.Err().
//
// A handler that never calls an expected method leaves Wait blocked until
// ctx ends.
func (r *Run) Wait(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range r.expectations {
		g.Go(func() error {
			return e.future.Await(gctx)
		})
	}

	all := make(chan error, 1)
	go func() { all <- g.Wait() }()

	select {
	case err := <-all:
		// A failure outranks whatever the group saw: rejections settle the
		// fault first, and unexpected calls or panics only settle the fault.
		if ferr := r.fault.Err(); ferr != nil {
			return r.failed(ferr)
		}
		if err != nil {
			return r.notSettled(err)
		}
		r.logger.Debug("run resolved", "run", r.id)
		return nil
	case <-r.fault.Done():
		return r.failed(r.fault.Err())
	}
}

func (r *Run) failed(err error) error {
	r.logger.Debug("run rejected", "run", r.id, "error", err)
	return err
}

func (r *Run) notSettled(err error) error {
	var pending []string
	for _, e := range r.expectations {
		if e.State() == Pending {
			pending = append(pending, e.ID())
		}
	}
	r.logger.Debug("run not settled", "run", r.id, "pending", len(pending), "error", err)
	return &NotSettledError{Pending: pending, Err: err}
}
