// Package probe builds test doubles for request handlers written in the
// Express style: a function taking a request and a chainable response.
//
// A Probe fabricates the request, instruments the response with
// expectations, runs the handler and hands back a single result that passes
// once every expected response call happened with the expected arguments.
//
// # Basic Usage
//
//	func TestGetUser(t *testing.T) {
//	    err := probe.New(handlers.GetUser).
//	        SetParams(map[string]any{"id": "123"}).
//	        ExpectStatus(http.StatusOK).
//	        ExpectJSON(map[string]any{"id": "123", "name": "Bob"}).
//	        Run().
//	        Wait(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	}
//
// # Configuring The Request
//
// Every Set* method fills one request field and returns the probe:
//
//	probe.New(h).
//	    SetQuery(map[string]any{"order": "desc"}).
//	    SetBody(map[string]any{"username": "bob"}).
//	    SetRequestHeaders(map[string]string{"Accept": "application/json"}).
//	    SetCookies(map[string]any{"session": "abc"})
//
// Header names are case-insensitive: req.Get("content-type") finds a header
// configured as "Content-Type". req.Param(name) returns nil for parameters
// that were not configured.
//
// # Expectations
//
// Each Expect* method instruments one response method. When the handler
// calls it, the arguments are compared with the expected ones (through an
// equality.Comparator, testify by default) and the expectation resolves or
// rejects. Cookie, clearCookie, append and set expectations are bound to a
// cookie name or header field, so several can be registered side by side:
//
//	p.ExpectCookie("session", "abc", probe.Options{"httpOnly": true}).
//	    ExpectCookie("theme", "dark").
//	    ExpectAppend("Link", "<http://localhost/>")
//
// When a discriminated method is called for a name without an expectation
// the run fails with *UnexpectedCallError, unless the probe was created with
// WithUnexpectedCalls(IgnoreUnexpected). Calls to methods that carry no
// expectation at all are accepted silently.
//
// Several expectations may also target the same undiscriminated method; each
// call is checked by all of them that are still pending:
//
//	p.ExpectJSONPath("$.user.id", "123").
//	    ExpectJSONWhere(`len(body.user.roles) > 0`)
//
// # Running
//
// Run invokes the handler synchronously and returns a *Run. Wait blocks until
// all expectations resolved or the first one failed. Expectations settled
// from goroutines the handler started are observed as well. There is no
// built-in timeout: a handler that never makes an expected call keeps Wait
// blocked until its context ends, then Wait returns an error matching
// ErrNotSettled.
//
// # Response Shape
//
// Every response method returns the *Response, status included, so both
// res.Status(200).JSON(body) and res.JSON(body).End() chain.
package probe
