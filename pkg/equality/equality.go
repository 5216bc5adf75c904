// Package equality provides the deep-equality service the probe delegates to
// when it compares the arguments a handler passed to a response method with
// the arguments a test expected.
//
// The probe never compares values itself. Swap the Comparator to change
// assertion libraries without touching expectation logic.
package equality

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stretchr/testify/assert"
)

// Comparator checks actual against expected.
// Equal returns nil when the values match and a *MismatchError otherwise.
type Comparator interface {
	Equal(actual, expected any) error
}

// ComparatorFunc adapts a function to the Comparator interface.
type ComparatorFunc func(actual, expected any) error

// Equal calls f(actual, expected).
func (f ComparatorFunc) Equal(actual, expected any) error {
	return f(actual, expected)
}

// MismatchError reports that an actual value differed from the expected one.
type MismatchError struct {
	Actual   any
	Expected any
	// Detail is the assertion library's report, including a diff when it
	// produces one. It may be empty.
	Detail string
}

func (e *MismatchError) Error() string {
	expected, actual := fmt.Sprintf("%#v", e.Expected), fmt.Sprintf("%#v", e.Actual)
	if expected == actual {
		return fmt.Sprintf("expected %s (%T), got %s (%T)", expected, e.Expected, actual, e.Actual)
	}
	return fmt.Sprintf("expected %s, got %s", expected, actual)
}

// Testify returns the default Comparator. It uses testify's ObjectsAreEqual
// semantics (reflect.DeepEqual, with []byte compared by content) and keeps
// testify's failure report as the mismatch detail.
func Testify() Comparator {
	return ComparatorFunc(func(actual, expected any) error {
		if assert.ObjectsAreEqual(expected, actual) {
			return nil
		}
		rec := &recorder{}
		assert.Equal(rec, expected, actual)
		return &MismatchError{Actual: actual, Expected: expected, Detail: rec.message()}
	})
}

// JSON returns a Comparator that marshals both values to JSON and compares
// the decoded documents, so a struct matches an equivalent map and numeric
// types are unified. Values that cannot be marshalled are compared with c.
func JSON(c Comparator) Comparator {
	if c == nil {
		c = Testify()
	}
	return ComparatorFunc(func(actual, expected any) error {
		a, errA := Normalize(actual)
		e, errE := Normalize(expected)
		if errA != nil || errE != nil {
			return c.Equal(actual, expected)
		}
		if err := c.Equal(a, e); err != nil {
			if mm, ok := err.(*MismatchError); ok {
				return &MismatchError{Actual: actual, Expected: expected, Detail: mm.Detail}
			}
			return err
		}
		return nil
	})
}

// Normalize converts v to its generic JSON form (maps, slices, float64,
// string, bool, nil). Strings and byte slices holding JSON text are parsed.
func Normalize(v any) (any, error) {
	var data []byte
	switch val := v.(type) {
	case json.RawMessage:
		data = val
	case []byte:
		if !json.Valid(val) {
			return string(val), nil
		}
		data = val
	default:
		var err error
		data, err = json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// recorder captures a testify failure report instead of failing a test.
type recorder struct {
	lines []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recorder) message() string {
	return strings.TrimSpace(strings.Join(r.lines, "\n"))
}
