package probe

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func emptyHandler(*Request, *Response) {}

func paramsHandler(req *Request, res *Response) {
	res.Status(http.StatusOK).JSON(map[string]any{"response": req.Params["test"]})
}

func queryHandler(req *Request, res *Response) {
	res.Status(http.StatusOK).JSON(map[string]any{"response": req.Query["test"]})
}

func bodyHandler(req *Request, res *Response) {
	body, _ := req.Body.(map[string]any)
	res.Status(http.StatusOK).JSON(map[string]any{"response": body["test"]})
}

// waitCtx bounds Wait so a broken test fails instead of hanging.
func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// shortCtx is for tests that expect Wait to give up.
func shortCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}
