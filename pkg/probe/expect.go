package probe

import (
	"fmt"

	"github.com/abitwise/express-api-test/internal/id"
	"github.com/abitwise/express-api-test/internal/matching"
	"github.com/abitwise/express-api-test/pkg/equality"
)

type registration struct {
	method        string
	discriminator string
	// keyed expectations consume the first call argument as discriminator.
	keyed    bool
	expected []any
	match    func(e *Expectation, args []any) error
}

// register adds an expectation on a method that is not discriminated. With
// a nil match the call arguments are compared position by position.
func (p *Probe) register(method string, expected []any, match func(e *Expectation, args []any) error) *Probe {
	return p.add(registration{method: method, expected: expected, match: match})
}

// registerKeyed adds an expectation bound to one discriminator value.
func (p *Probe) registerKeyed(method, discriminator string, expected ...any) *Probe {
	return p.add(registration{method: method, discriminator: discriminator, keyed: true, expected: expected})
}

func (p *Probe) add(r registration) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run != nil {
		p.setError(frozen("expect " + r.method))
		p.logger.Warn("expectation after run ignored", "method", r.method, "discriminator", r.discriminator)
		return p
	}

	e := &Expectation{
		id:            id.Expectation(r.method),
		method:        r.method,
		discriminator: r.discriminator,
		expected:      r.expected,
		future:        newFuture(),
	}
	if r.keyed {
		e.argOffset = 1
	}
	match := r.match
	if match == nil {
		match = p.compareArgs
	}
	e.match = func(args []any) error { return match(e, args) }

	p.reg.add(e)
	return p
}

func (p *Probe) compareArgs(e *Expectation, args []any) error {
	for i, want := range e.expected {
		var got any
		if i < len(args) {
			got = args[i]
		}
		if err := p.cmp.Equal(got, want); err != nil {
			return &ExpectationError{
				ID:            e.id,
				Method:        e.method,
				Discriminator: e.discriminator,
				Arg:           i + e.argOffset,
				Err:           err,
			}
		}
	}
	return nil
}

// ExpectAppend expects res.Append(field, value). Field names match
// case-insensitively; each expectation is bound to one field, so several
// appends can be expected at once.
func (p *Probe) ExpectAppend(field string, value any) *Probe {
	return p.registerKeyed("append", foldField(field), value)
}

// ExpectAttachment expects res.Attachment, with the given filename or with
// none when filename is omitted.
func (p *Probe) ExpectAttachment(filename ...string) *Probe {
	return p.register("attachment", []any{optionalString(filename)}, nil)
}

// ExpectCookie expects res.Cookie(name, value, opts). Each expectation is
// bound to one cookie name.
func (p *Probe) ExpectCookie(name string, value any, opts ...Options) *Probe {
	return p.registerKeyed("cookie", name, value, firstOptions(opts))
}

// ExpectClearCookie expects res.ClearCookie(name, opts). Each expectation is
// bound to one cookie name.
func (p *Probe) ExpectClearCookie(name string, opts ...Options) *Probe {
	return p.registerKeyed("clearCookie", name, firstOptions(opts))
}

// ExpectDownload expects res.Download(filePath, filename).
func (p *Probe) ExpectDownload(filePath string, filename ...string) *Probe {
	return p.register("download", []any{filePath, optionalString(filename)}, nil)
}

// ExpectEnd expects res.End to be called, with any arguments.
func (p *Probe) ExpectEnd() *Probe {
	return p.register("end", nil, func(*Expectation, []any) error { return nil })
}

// ExpectJSON expects res.JSON(body) with a body deeply equal to expected.
func (p *Probe) ExpectJSON(expected any) *Probe {
	return p.register("json", []any{expected}, nil)
}

// ExpectJSONBody expects res.JSON with a body equivalent to expected once
// both are encoded as JSON, so a struct can be checked against a map.
func (p *Probe) ExpectJSONBody(expected any) *Probe {
	cmp := equality.JSON(p.cmp)
	return p.register("json", []any{expected}, func(e *Expectation, args []any) error {
		if err := cmp.Equal(firstArg(args), expected); err != nil {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: 0, Err: err}
		}
		return nil
	})
}

// ExpectJSONPath expects res.JSON with a body in which the JSONPath
// expression selects a value equal to expected. Numbers compare by value;
// matching.Exists(true|false) checks presence only.
//
// An invalid expression rejects the expectation when res.JSON is called.
func (p *Probe) ExpectJSONPath(path string, expected any) *Probe {
	compiled, compileErr := matching.CompileJSONPath(path)
	return p.register("json", nil, func(e *Expectation, args []any) error {
		if compileErr != nil {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: -1, Err: compileErr}
		}
		doc, err := equality.Normalize(firstArg(args))
		if err != nil {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: 0, Err: err}
		}
		if ok, got := compiled.Match(doc, expected); !ok {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: 0, Err: &equality.MismatchError{
				Actual:   got,
				Expected: expected,
				Detail:   fmt.Sprintf("JSONPath %s", compiled),
			}}
		}
		return nil
	})
}

// ExpectJSONWhere expects res.JSON with a body for which the boolean
// expression holds. The body is bound to the variable "body":
//
//	p.ExpectJSONWhere(`body.total > 0 && len(body.items) == body.total`)
func (p *Probe) ExpectJSONWhere(expression string) *Probe {
	cond, compileErr := matching.CompileCondition(expression)
	return p.register("json", nil, func(e *Expectation, args []any) error {
		if compileErr != nil {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: -1, Err: compileErr}
		}
		doc, err := equality.Normalize(firstArg(args))
		if err != nil {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: 0, Err: err}
		}
		ok, err := cond.Eval(map[string]any{"body": doc})
		if err != nil {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: 0, Err: err}
		}
		if !ok {
			return &ExpectationError{ID: e.id, Method: e.method, Arg: 0, Err: &equality.MismatchError{
				Actual:   doc,
				Expected: cond.String(),
				Detail:   "condition evaluated to false",
			}}
		}
		return nil
	})
}

// ExpectJSONP expects res.JSONP(body).
func (p *Probe) ExpectJSONP(expected any) *Probe {
	return p.register("jsonp", []any{expected}, nil)
}

// ExpectLocation expects res.Location(target).
func (p *Probe) ExpectLocation(target string) *Probe {
	return p.register("location", []any{target}, nil)
}

// ExpectRedirect expects res.Redirect. Pass either the path alone or the
// status and the path:
//
//	p.ExpectRedirect("/login")
//	p.ExpectRedirect(http.StatusMovedPermanently, "/login")
//
// With the path alone only the first argument of the actual call is compared.
func (p *Probe) ExpectRedirect(expected ...any) *Probe {
	if len(expected) > 2 {
		expected = expected[:2]
	}
	return p.register("redirect", expected, nil)
}

// ExpectRender expects res.Render(view, locals).
func (p *Probe) ExpectRender(view string, locals ...map[string]any) *Probe {
	var l map[string]any
	if len(locals) > 0 {
		l = locals[0]
	}
	return p.register("render", []any{view, l}, nil)
}

// ExpectSend expects res.Send(body).
func (p *Probe) ExpectSend(expected any) *Probe {
	return p.register("send", []any{expected}, nil)
}

// ExpectSendFile expects res.SendFile(filePath, opts).
func (p *Probe) ExpectSendFile(filePath string, opts ...Options) *Probe {
	return p.register("sendFile", []any{filePath, firstOptions(opts)}, nil)
}

// ExpectSendStatus expects res.SendStatus(code).
func (p *Probe) ExpectSendStatus(code int) *Probe {
	return p.register("sendStatus", []any{code}, nil)
}

// ExpectSet expects res.Set(field, value). Like ExpectAppend, each
// expectation is bound to one case-insensitive field.
func (p *Probe) ExpectSet(field string, value any) *Probe {
	return p.registerKeyed("set", foldField(field), value)
}

// ExpectStatus expects res.Status(code).
func (p *Probe) ExpectStatus(code int) *Probe {
	return p.register("status", []any{code}, nil)
}

// ExpectType expects res.Type(t) with t exactly as the handler passes it.
func (p *Probe) ExpectType(t string) *Probe {
	return p.register("type", []any{t}, nil)
}

// ExpectVary expects res.Vary(field).
func (p *Probe) ExpectVary(field string) *Probe {
	return p.register("vary", []any{field}, nil)
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
