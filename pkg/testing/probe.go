package testing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abitwise/express-api-test/pkg/equality"
	"github.com/abitwise/express-api-test/pkg/logging"
	"github.com/abitwise/express-api-test/pkg/probe"
	"github.com/abitwise/express-api-test/pkg/scenario"
)

// New creates a probe for handler whose debug log goes to t.Log.
// Options are applied after the test logger, so WithLogger overrides it.
func New(t testing.TB, handler probe.Handler, opts ...probe.Option) *probe.Probe {
	t.Helper()
	all := append([]probe.Option{probe.WithLogger(testLogger(t))}, opts...)
	return probe.New(handler, all...)
}

// Verify waits up to timeout for run and reports a test error unless every
// expectation resolved. It returns whether the run resolved.
func Verify(t testing.TB, run *probe.Run, timeout time.Duration) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := run.Wait(ctx); err != nil {
		t.Errorf("handler run %s failed: %s", run.ID(), describe(err))
		return false
	}
	return true
}

// VerifyRejected waits up to timeout for run and reports a test error unless
// it was rejected. It returns the rejection.
func VerifyRejected(t testing.TB, run *probe.Run, timeout time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := run.Wait(ctx)
	switch {
	case err == nil:
		t.Errorf("handler run %s resolved, expected a failure", run.ID())
	case errors.Is(err, probe.ErrNotSettled):
		t.Errorf("handler run %s did not settle: %v", run.ID(), err)
	}
	return err
}

// RunScenarios runs each scenario against handler as a subtest named after
// the scenario.
func RunScenarios(t *testing.T, handler probe.Handler, scenarios []scenario.Scenario, opts ...probe.Option) {
	t.Helper()
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			all := append([]probe.Option{probe.WithLogger(testLogger(t))}, opts...)
			if err := s.Run(context.Background(), handler, all...); err != nil {
				if s.Source != "" {
					t.Errorf("%s: %s", s.Source, describe(err))
					return
				}
				t.Error(describe(err))
			}
		})
	}
}

// RunScenarioFiles loads scenarios from paths or glob patterns and runs them
// with RunScenarios. A pattern matching no scenario fails the test.
func RunScenarioFiles(t *testing.T, handler probe.Handler, patterns ...string) {
	t.Helper()
	scenarios, err := scenario.Load(patterns...)
	if err != nil {
		t.Fatalf("loading scenarios: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatalf("no scenarios found for %s", strings.Join(patterns, ", "))
	}
	RunScenarios(t, handler, scenarios)
}

// describe adds the comparator report to a mismatch.
func describe(err error) string {
	var mm *equality.MismatchError
	if errors.As(err, &mm) && mm.Detail != "" {
		return err.Error() + "\n" + mm.Detail
	}
	return err.Error()
}

func testLogger(t testing.TB) *slog.Logger {
	w := &tbWriter{t: t}
	t.Cleanup(w.close)
	return logging.New(logging.Config{
		Level:  logging.LevelDebug,
		Format: logging.FormatText,
		Output: w,
	})
}

// tbWriter forwards log lines to t.Log until the test finishes. Handlers may
// keep calling the response from goroutines after that.
type tbWriter struct {
	t      testing.TB
	mu     sync.Mutex
	closed bool
}

func (w *tbWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func (w *tbWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
