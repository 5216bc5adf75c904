package probe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFrozen is recorded when the probe is configured after Run.
	ErrFrozen = errors.New("probe already ran")

	// ErrNotSettled is wrapped by the error Wait returns when its context
	// ends before every expectation settled.
	ErrNotSettled = errors.New("expectations not settled")

	// ErrNilHandler is the run failure for a probe built without a handler.
	ErrNilHandler = errors.New("probe has no handler")

	// ErrRangeUnsatisfiable and ErrRangeMalformed are returned by Request.Range.
	ErrRangeUnsatisfiable = errors.New("range not satisfiable")
	ErrRangeMalformed     = errors.New("malformed range header")
)

// ExpectationError reports that a response method was called with arguments
// that did not satisfy an expectation. Err is usually an
// *equality.MismatchError carrying the actual and expected values.
type ExpectationError struct {
	ID            string
	Method        string
	Discriminator string
	// Arg is the position of the offending argument in the call, or -1 when
	// the expectation checks the call as a whole.
	Arg int
	Err error
}

func (e *ExpectationError) Error() string {
	target := "res." + e.Method
	if e.Discriminator != "" {
		target += fmt.Sprintf("(%q)", e.Discriminator)
	}
	if e.Arg >= 0 {
		return fmt.Sprintf("%s argument %d: %v", target, e.Arg, e.Err)
	}
	return fmt.Sprintf("%s: %v", target, e.Err)
}

func (e *ExpectationError) Unwrap() error {
	return e.Err
}

// UnexpectedCallError reports a call to a discriminated response method
// (cookie, clearCookie, append, set) with a discriminator that no
// expectation was registered for.
type UnexpectedCallError struct {
	Method        string
	Discriminator string
	Args          []any
	// Registered lists the discriminators that do have expectations.
	Registered []string
}

func (e *UnexpectedCallError) Error() string {
	return fmt.Sprintf("unexpected call res.%s(%q): expectations registered for %s",
		e.Method, e.Discriminator, quoteAll(e.Registered))
}

// HandlerPanicError reports that the handler under test panicked during Run.
type HandlerPanicError struct {
	Value any
	Stack []byte
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *HandlerPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// NotSettledError is returned by Wait when its context ends first.
// It matches both ErrNotSettled and the context error with errors.Is.
type NotSettledError struct {
	// Pending holds the IDs of expectations that never settled.
	Pending []string
	Err     error
}

func (e *NotSettledError) Error() string {
	return fmt.Sprintf("%d expectation(s) still pending [%s]: %v",
		len(e.Pending), strings.Join(e.Pending, ", "), e.Err)
}

func (e *NotSettledError) Unwrap() []error {
	return []error{ErrNotSettled, e.Err}
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
