package probe

import (
	"log/slog"
	"sync"

	"github.com/abitwise/express-api-test/pkg/equality"
	"github.com/abitwise/express-api-test/pkg/logging"
)

// Handler is a request handler following the (request, response) convention.
type Handler func(req *Request, res *Response)

// Probe builds a fake request, instruments a fake response with
// expectations, and runs a handler against them.
//
// Setters and Expect* methods return the probe so they chain. Configuration
// made after Run is ignored and recorded in Err.
type Probe struct {
	handler Handler

	mu  sync.Mutex
	req *Request
	res *Response
	reg *registry
	run *Run
	err error // first error wins

	cmp    equality.Comparator
	logger *slog.Logger
}

// Option configures a Probe.
type Option func(*Probe)

// WithLogger sets the logger for registration, settlement and unexpected
// call events. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithComparator replaces the deep-equality service used by argument
// expectations. The default is equality.Testify().
func WithComparator(c equality.Comparator) Option {
	return func(p *Probe) {
		if c != nil {
			p.cmp = c
		}
	}
}

// WithUnexpectedCalls sets how calls with an unregistered discriminator are
// treated. The default is FailOnUnexpected.
func WithUnexpectedCalls(policy UnexpectedCallPolicy) Option {
	return func(p *Probe) {
		p.reg.policy = policy
	}
}

// New creates a probe for handler.
func New(handler Handler, opts ...Option) *Probe {
	p := &Probe{
		handler: handler,
		cmp:     equality.Testify(),
		logger:  logging.Nop(),
	}
	p.reg = newRegistry(FailOnUnexpected, p.logger)
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.Component(p.logger, "probe")
	p.reg.logger = p.logger

	p.req = newRequest()
	p.res = newResponse(p.req, p.reg)
	return p
}

// Request returns the request the handler receives.
func (p *Probe) Request() *Request {
	return p.req
}

// Response returns the response the handler receives.
func (p *Probe) Response() *Response {
	return p.res
}

// Expectations returns every registered expectation in registration order.
func (p *Probe) Expectations() []*Expectation {
	return p.reg.snapshot()
}

// Err returns the first configuration error, such as ErrFrozen.
func (p *Probe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// setError records the first error encountered. Callers hold p.mu.
func (p *Probe) setError(err error) {
	if p.err == nil {
		p.err = err
	}
}

// configure applies fn to the request unless the probe already ran.
func (p *Probe) configure(op string, fn func(req *Request)) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run != nil {
		p.setError(frozen(op))
		p.logger.Warn("configuration after run ignored", "op", op)
		return p
	}
	fn(p.req)
	return p
}
