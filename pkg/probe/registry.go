package probe

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// UnexpectedCallPolicy decides what happens when a discriminated response
// method is called with a discriminator nobody registered an expectation for.
type UnexpectedCallPolicy int

const (
	// FailOnUnexpected fails the run with an *UnexpectedCallError.
	FailOnUnexpected UnexpectedCallPolicy = iota
	// IgnoreUnexpected logs the call and otherwise drops it.
	IgnoreUnexpected
)

func (p UnexpectedCallPolicy) String() string {
	if p == IgnoreUnexpected {
		return "ignore"
	}
	return "fail"
}

// Expectation is one registered expectation: a response method, an optional
// discriminator, the expected arguments and the future the stand-in settles.
type Expectation struct {
	id            string
	method        string
	discriminator string
	expected      []any
	// argOffset is the number of leading call arguments consumed by the
	// discriminator; reported argument positions are shifted by it.
	argOffset int
	match     func(args []any) error
	future    *Future
}

// ID identifies the expectation in logs and errors.
func (e *Expectation) ID() string { return e.id }

// Method is the response method name, e.g. "cookie".
func (e *Expectation) Method() string { return e.method }

// Discriminator is the cookie name or header field the expectation is bound
// to, or "" for methods that are not discriminated.
func (e *Expectation) Discriminator() string { return e.discriminator }

// Expected returns the expected argument tuple. It is nil for expectations
// checked by a custom comparator (JSONPath, conditions).
func (e *Expectation) Expected() []any { return e.expected }

// State returns the settlement state.
func (e *Expectation) State() State { return e.future.State() }

// Err returns the rejection reason once the expectation is rejected.
func (e *Expectation) Err() error { return e.future.Err() }

// Done is closed once the expectation settles.
func (e *Expectation) Done() <-chan struct{} { return e.future.Done() }

func (e *Expectation) String() string {
	if e.discriminator != "" {
		return fmt.Sprintf("%s(%q)", e.method, e.discriminator)
	}
	return e.method
}

// check runs the comparator. A panicking comparator rejects the expectation
// instead of unwinding into the handler.
func (e *Expectation) check(args []any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ExpectationError{
				ID:            e.id,
				Method:        e.method,
				Discriminator: e.discriminator,
				Arg:           -1,
				Err:           fmt.Errorf("comparator panicked: %v", rec),
			}
		}
	}()
	return e.match(args)
}

type key struct {
	method        string
	discriminator string
}

// registry maps (method, discriminator) to the expectations registered for
// it. Stand-ins consult it on every call.
type registry struct {
	mu      sync.Mutex
	byKey   map[key][]*Expectation
	methods map[string]int
	ordered []*Expectation

	// settleMu makes check-then-settle atomic per call.
	settleMu sync.Mutex

	// fault is rejected by the first failure of any kind: a mismatch, an
	// unexpected call or a handler panic. It never resolves.
	fault *Future

	policy UnexpectedCallPolicy
	logger *slog.Logger
}

func newRegistry(policy UnexpectedCallPolicy, logger *slog.Logger) *registry {
	return &registry{
		byKey:   make(map[key][]*Expectation),
		methods: make(map[string]int),
		fault:   newFuture(),
		policy:  policy,
		logger:  logger,
	}
}

func (r *registry) add(e *Expectation) {
	r.mu.Lock()
	k := key{method: e.method, discriminator: e.discriminator}
	r.byKey[k] = append(r.byKey[k], e)
	r.methods[e.method]++
	r.ordered = append(r.ordered, e)
	r.mu.Unlock()

	r.logger.Debug("expectation registered",
		"id", e.id,
		"method", e.method,
		"discriminator", e.discriminator,
	)
}

// snapshot returns the expectations registered so far, in registration order.
func (r *registry) snapshot() []*Expectation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Expectation, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// observe routes one stand-in call. Every still-pending expectation bound to
// (method, discriminator) checks the call; settled ones ignore it. Methods
// without any expectation are plain no-ops.
func (r *registry) observe(method, discriminator string, args []any) {
	r.mu.Lock()
	k := key{method: method, discriminator: discriminator}
	records := r.byKey[k]
	instrumented := r.methods[method] > 0
	pending := make([]*Expectation, 0, len(records))
	for _, e := range records {
		if e.future.State() == Pending {
			pending = append(pending, e)
		}
	}
	var registered []string
	if len(records) == 0 && instrumented {
		registered = r.discriminatorsLocked(method)
	}
	r.mu.Unlock()

	if len(records) == 0 {
		if instrumented {
			r.unexpected(&UnexpectedCallError{
				Method:        method,
				Discriminator: discriminator,
				Args:          args,
				Registered:    registered,
			})
		}
		return
	}

	for _, e := range pending {
		if r.settle(e, args) {
			r.logger.Debug("expectation settled",
				"id", e.id,
				"method", e.method,
				"discriminator", e.discriminator,
				"state", e.future.State().String(),
			)
		}
	}
}

// settle checks args against e and settles it, unless a concurrent call got
// there first.
func (r *registry) settle(e *Expectation, args []any) bool {
	r.settleMu.Lock()
	defer r.settleMu.Unlock()

	if e.future.State() != Pending {
		return false
	}
	err := e.check(args)
	if err != nil {
		// Failures are reported in the order they happen, so the fault is
		// settled before the expectation itself.
		r.fail(err)
	}
	return e.future.settle(err)
}

func (r *registry) unexpected(err *UnexpectedCallError) {
	r.logger.Warn("unexpected response call",
		"method", err.Method,
		"discriminator", err.Discriminator,
		"policy", r.policy.String(),
	)
	if r.policy == FailOnUnexpected {
		r.fail(err)
	}
}

// fail records err as the run failure unless an earlier failure exists.
func (r *registry) fail(err error) {
	if r.fault.settle(err) {
		r.logger.Debug("run failed", "error", err)
	}
}

func (r *registry) discriminatorsLocked(method string) []string {
	var out []string
	for k := range r.byKey {
		if k.method == method {
			out = append(out, k.discriminator)
		}
	}
	sort.Strings(out)
	return out
}
