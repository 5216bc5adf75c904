// Package testing wires HandlerProbe into Go tests.
//
// It builds probes whose logs land in the test output, turns run outcomes
// into test failures and runs scenario files as subtests.
//
// # Basic Usage
//
//	func TestGetUser(t *testing.T) {
//	    p := probetest.New(t, handlers.GetUser).
//	        SetParams(map[string]any{"id": "42"}).
//	        ExpectStatus(200).
//	        ExpectJSON(map[string]any{"id": "42"})
//
//	    probetest.Verify(t, p.Run(), time.Second)
//	}
//
// # Expecting Failure
//
// VerifyRejected returns the run error so a test can check why a handler
// was rejected:
//
//	err := probetest.VerifyRejected(t, p.Run(), time.Second)
//	var mm *equality.MismatchError
//	if errors.As(err, &mm) { ... }
//
// # Scenario Files
//
// Scenarios declared in YAML or JSON run as one subtest each:
//
//	func TestUserScenarios(t *testing.T) {
//	    probetest.RunScenarioFiles(t, handlers.GetUser, "testdata/users/**/*.yaml")
//	}
//
// # Response Assertions
//
// After a run the recorded status and headers can be checked directly:
//
//	probetest.AssertStatus(t, p.Response(), 201)
//	probetest.AssertHeader(t, p.Response(), "Location", "/users/43")
package testing
