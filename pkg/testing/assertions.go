package testing

import (
	"strings"
	"testing"

	"github.com/abitwise/express-api-test/pkg/probe"
)

// AssertStatus asserts the last status code the handler set.
func AssertStatus(t testing.TB, res *probe.Response, expected int) {
	t.Helper()
	if got := res.StatusCode(); got != expected {
		t.Errorf("expected status %d, got %d", expected, got)
	}
}

// AssertHeader asserts a recorded response header value.
// Header names are case-insensitive.
func AssertHeader(t testing.TB, res *probe.Response, field, expected string) {
	t.Helper()
	values := res.Header().Values(field)
	if len(values) == 0 {
		t.Errorf("header %q not found", field)
		return
	}
	if got := strings.Join(values, ", "); got != expected {
		t.Errorf("header %q: expected %q, got %q", field, expected, got)
	}
}

// AssertHeaderExists asserts that the handler recorded the header.
func AssertHeaderExists(t testing.TB, res *probe.Response, field string) {
	t.Helper()
	if len(res.Header().Values(field)) == 0 {
		t.Errorf("header %q not found", field)
	}
}

// AssertHeaderContains asserts that a recorded header contains substr.
func AssertHeaderContains(t testing.TB, res *probe.Response, field, substr string) {
	t.Helper()
	got := strings.Join(res.Header().Values(field), ", ")
	if !strings.Contains(got, substr) {
		t.Errorf("header %q: expected to contain %q, got %q", field, substr, got)
	}
}

// AssertContentType asserts the media type of the recorded Content-Type,
// ignoring parameters such as charset.
func AssertContentType(t testing.TB, res *probe.Response, expected string) {
	t.Helper()
	got, _, _ := strings.Cut(res.Get("Content-Type"), ";")
	if !strings.EqualFold(strings.TrimSpace(got), expected) {
		t.Errorf("expected content type %q, got %q", expected, res.Get("Content-Type"))
	}
}

// AssertAllSettled asserts that no expectation of the probe is still pending.
func AssertAllSettled(t testing.TB, p *probe.Probe) {
	t.Helper()
	var pending []string
	for _, e := range p.Expectations() {
		if e.State() == probe.Pending {
			pending = append(pending, e.String())
		}
	}
	if len(pending) > 0 {
		t.Errorf("expectations still pending: %s", strings.Join(pending, ", "))
	}
}
