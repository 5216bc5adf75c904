package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abitwise/express-api-test/pkg/logging"
)

func TestRun_EchoHandlers(t *testing.T) {
	tests := []struct {
		name    string
		probe   func(h Handler) *Probe
		handler Handler
	}{
		{
			name:    "params",
			probe:   func(h Handler) *Probe { return New(h).SetParams(map[string]any{"test": "123"}) },
			handler: paramsHandler,
		},
		{
			name:    "query",
			probe:   func(h Handler) *Probe { return New(h).SetQuery(map[string]any{"test": "123"}) },
			handler: queryHandler,
		},
		{
			name:    "body",
			probe:   func(h Handler) *Probe { return New(h).SetBody(map[string]any{"test": "123"}) },
			handler: bodyHandler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" resolves", func(t *testing.T) {
			err := tt.probe(tt.handler).
				ExpectStatus(http.StatusOK).
				ExpectJSON(map[string]any{"response": "123"}).
				Run().
				Wait(waitCtx(t))
			assert.NoError(t, err)
		})

		t.Run(tt.name+" rejects", func(t *testing.T) {
			err := tt.probe(tt.handler).
				ExpectStatus(http.StatusOK).
				ExpectJSON(map[string]any{"response": "124"}).
				Run().
				Wait(waitCtx(t))

			var ee *ExpectationError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, "json", ee.Method)
		})
	}
}

func TestRun_HandlerReceivesProbeRequestAndResponse(t *testing.T) {
	var gotReq *Request
	var gotRes *Response
	p := New(func(req *Request, res *Response) {
		gotReq, gotRes = req, res
	})

	require.NoError(t, p.Run().Wait(waitCtx(t)))
	assert.Same(t, p.Request(), gotReq)
	assert.Same(t, p.Response(), gotRes)
}

func TestRun_NoExpectationsResolves(t *testing.T) {
	err := New(func(_ *Request, res *Response) { res.Status(http.StatusOK).JSON("ok") }).Run().Wait(waitCtx(t))
	assert.NoError(t, err)
}

func TestRun_CookiesResolveIndependently(t *testing.T) {
	both := func(_ *Request, res *Response) {
		res.Cookie("b", 2)
		res.Cookie("a", 1)
	}
	p := New(both).ExpectCookie("a", 1).ExpectCookie("b", 2)
	assert.NoError(t, p.Run().Wait(waitCtx(t)))

	onlyA := func(_ *Request, res *Response) { res.Cookie("a", 1) }
	p = New(onlyA).ExpectCookie("a", 1).ExpectCookie("b", 2)
	run := p.Run()
	err := run.Wait(shortCtx(t))

	var ns *NotSettledError
	require.ErrorAs(t, err, &ns)
	assert.True(t, errors.Is(err, ErrNotSettled))
	require.Len(t, ns.Pending, 1)

	exps := run.Expectations()
	require.Len(t, exps, 2)
	assert.Equal(t, Resolved, exps[0].State())
	assert.Equal(t, Pending, exps[1].State())
	assert.Equal(t, exps[1].ID(), ns.Pending[0])
}

func TestRun_StatusAndJSONConjunction(t *testing.T) {
	statusOnly := func(_ *Request, res *Response) { res.Status(http.StatusOK) }
	err := New(statusOnly).
		ExpectStatus(http.StatusOK).
		ExpectJSON(map[string]any{"ok": true}).
		Run().
		Wait(shortCtx(t))
	assert.True(t, errors.Is(err, ErrNotSettled))

	both := func(_ *Request, res *Response) { res.Status(http.StatusOK).JSON(map[string]any{"ok": true}) }
	err = New(both).
		ExpectStatus(http.StatusOK).
		ExpectJSON(map[string]any{"ok": true}).
		Run().
		Wait(waitCtx(t))
	assert.NoError(t, err)
}

func TestRun_NeverCalledStaysPending(t *testing.T) {
	err := New(emptyHandler).ExpectStatus(http.StatusOK).Run().Wait(shortCtx(t))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotSettled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRun_WaitHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(emptyHandler).ExpectStatus(http.StatusOK).Run().Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrNotSettled))
}

func TestRun_FirstFailureWins(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		res.Status(http.StatusInternalServerError).JSON(map[string]any{"error": "x"})
	}

	err := New(handler).
		ExpectJSON(map[string]any{"ok": true}).
		ExpectStatus(http.StatusOK).
		Run().
		Wait(waitCtx(t))

	var ee *ExpectationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "status", ee.Method)
}

func TestRun_FailureDoesNotWaitForPending(t *testing.T) {
	handler := func(_ *Request, res *Response) { res.Status(http.StatusNotFound) }

	start := time.Now()
	err := New(handler).
		ExpectStatus(http.StatusOK).
		ExpectJSON(map[string]any{"never": "sent"}).
		Run().
		Wait(waitCtx(t))

	var ee *ExpectationError
	require.ErrorAs(t, err, &ee)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_DeferredCallSettles(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			res.Status(http.StatusOK).JSON(map[string]any{"late": true})
		}()
	}

	err := New(handler).
		ExpectStatus(http.StatusOK).
		ExpectJSON(map[string]any{"late": true}).
		Run().
		Wait(waitCtx(t))
	assert.NoError(t, err)
}

func TestRun_ConcurrentCallsSettleOnce(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res.Set(fmt.Sprintf("X-Worker-%d", i), "done")
			}()
		}
		wg.Wait()
	}

	p := New(handler)
	for i := range 20 {
		p.ExpectSet(fmt.Sprintf("x-worker-%d", i), "done")
	}
	assert.NoError(t, p.Run().Wait(waitCtx(t)))
}

func TestRun_SettledExpectationIgnoresLaterCalls(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		res.Status(http.StatusOK)
		res.Status(http.StatusInternalServerError)
	}

	run := New(handler).ExpectStatus(http.StatusOK).Run()
	assert.NoError(t, run.Wait(waitCtx(t)))
	assert.Equal(t, Resolved, run.Expectations()[0].State())
}

func TestRun_SameKeyExpectationsAllCheckTheCall(t *testing.T) {
	handler := func(_ *Request, res *Response) { res.Cookie("sid", "abc") }

	err := New(handler).
		ExpectCookie("sid", "abc").
		ExpectCookie("sid", "xyz").
		Run().
		Wait(waitCtx(t))

	var ee *ExpectationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "sid", ee.Discriminator)
}

func TestRun_UnexpectedDiscriminator(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		res.Cookie("a", 1)
		res.Cookie("b", 2)
	}

	t.Run("fails by default", func(t *testing.T) {
		err := New(handler).ExpectCookie("a", 1).Run().Wait(waitCtx(t))

		var uc *UnexpectedCallError
		require.ErrorAs(t, err, &uc)
		assert.Equal(t, "cookie", uc.Method)
		assert.Equal(t, "b", uc.Discriminator)
		assert.Equal(t, []any{2, Options(nil)}, uc.Args)
		assert.Equal(t, []string{"a"}, uc.Registered)
	})

	t.Run("ignored when configured", func(t *testing.T) {
		err := New(handler, WithUnexpectedCalls(IgnoreUnexpected)).ExpectCookie("a", 1).Run().Wait(waitCtx(t))
		assert.NoError(t, err)
	})

	t.Run("uninstrumented method is a no-op", func(t *testing.T) {
		err := New(handler).ExpectStatus(http.StatusOK).Run().Wait(shortCtx(t))
		assert.True(t, errors.Is(err, ErrNotSettled))
	})
}

func TestRun_UnexpectedHeaderField(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		res.Set("Content-Type", "text/plain").Set("X-Extra", "1")
	}

	err := New(handler).ExpectSet("content-type", "text/plain").Run().Wait(waitCtx(t))

	var uc *UnexpectedCallError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "x-extra", uc.Discriminator)
}

func TestRun_HandlerPanic(t *testing.T) {
	handler := func(_ *Request, res *Response) {
		res.Status(http.StatusOK)
		panic("boom")
	}

	err := New(handler).
		ExpectStatus(http.StatusOK).
		ExpectJSON("never").
		Run().
		Wait(waitCtx(t))

	var hp *HandlerPanicError
	require.ErrorAs(t, err, &hp)
	assert.Equal(t, "boom", hp.Value)
	assert.NotEmpty(t, hp.Stack)
}

func TestRun_HandlerPanicWithError(t *testing.T) {
	cause := errors.New("db down")
	err := New(func(*Request, *Response) { panic(cause) }).Run().Wait(waitCtx(t))

	assert.True(t, errors.Is(err, cause))
}

func TestRun_NilHandler(t *testing.T) {
	err := New(nil).ExpectStatus(http.StatusOK).Run().Wait(waitCtx(t))
	assert.True(t, errors.Is(err, ErrNilHandler))
}

func TestRun_Idempotent(t *testing.T) {
	var calls atomic.Int32
	p := New(func(_ *Request, res *Response) {
		calls.Add(1)
		res.Status(http.StatusOK)
	}).ExpectStatus(http.StatusOK)

	first := p.Run()
	second := p.Run()

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoError(t, second.Wait(waitCtx(t)))
	assert.NotEmpty(t, first.ID())
}

func TestRun_ExpectationsSnapshot(t *testing.T) {
	run := New(emptyHandler).ExpectStatus(200).ExpectCookie("a", 1).Run()

	exps := run.Expectations()
	require.Len(t, exps, 2)
	assert.Equal(t, "status", exps[0].Method())
	assert.Equal(t, []any{200}, exps[0].Expected())
	assert.Equal(t, `cookie("a")`, exps[1].String())
	assert.Equal(t, "a", exps[1].Discriminator())
}

func TestRun_LogsUnexpectedCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON, Output: &buf})
	handler := func(_ *Request, res *Response) { res.Cookie("other", 1) }

	err := New(handler, WithLogger(logger), WithUnexpectedCalls(IgnoreUnexpected)).
		ExpectCookie("sid", 1).
		Run().
		Wait(shortCtx(t))

	assert.True(t, errors.Is(err, ErrNotSettled))
	assert.Contains(t, buf.String(), "unexpected response call")
	assert.Contains(t, buf.String(), `"component":"probe"`)
	assert.Contains(t, buf.String(), `"policy":"ignore"`)
}
