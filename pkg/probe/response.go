package probe

import (
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
)

// Options is the optional settings object taken by cookie, clearCookie,
// sendFile and download, e.g. Options{"httpOnly": true, "maxAge": 900000}.
type Options map[string]any

// FormatHandler is one branch of Response.Format. Type is a media type, a
// short name ("json", "html") or "default".
type FormatHandler struct {
	Type   string
	Handle func()
}

// FormatHandlers lists Format branches in preference order.
type FormatHandlers []FormatHandler

// Response is the fabricated response handed to the handler under test.
//
// Every method is a stand-in: it records what a real response would track
// (status code, headers), reports the call to the expectation registry and
// returns the Response itself so calls chain, status included. Methods with
// no registered expectation do nothing else.
type Response struct {
	// App is the same back-reference as Request.App.
	App any
	// Locals mirrors res.locals.
	Locals map[string]any

	req *Request
	reg *registry

	mu         sync.Mutex
	statusCode int
	header     http.Header
}

func newResponse(req *Request, reg *registry) *Response {
	return &Response{
		Locals: map[string]any{},
		req:    req,
		reg:    reg,
		header: http.Header{},
	}
}

func (r *Response) call(method, discriminator string, args ...any) *Response {
	r.reg.observe(method, discriminator, args)
	return r
}

// StatusCode returns the last status set through Status, SendStatus or
// Redirect, or 0 when none was set.
func (r *Response) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusCode
}

// Header returns a copy of the headers recorded so far.
func (r *Response) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header.Clone()
}

// Get returns a recorded response header.
func (r *Response) Get(field string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header.Get(field)
}

func (r *Response) setHeader(field, value string) {
	r.mu.Lock()
	r.header.Set(field, value)
	r.mu.Unlock()
}

func (r *Response) setStatus(code int) {
	r.mu.Lock()
	r.statusCode = code
	r.mu.Unlock()
}

// Append appends value to the response header field. value may be a string
// or a []string.
func (r *Response) Append(field string, value any) *Response {
	r.mu.Lock()
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			r.header.Add(field, s)
		}
	case nil:
	default:
		r.header.Add(field, fmt.Sprint(v))
	}
	r.mu.Unlock()
	return r.call("append", foldField(field), value)
}

// Attachment marks the response as a download, optionally naming the file.
func (r *Response) Attachment(filename ...string) *Response {
	disposition := "attachment"
	if len(filename) > 0 && filename[0] != "" {
		disposition = fmt.Sprintf("attachment; filename=%q", path.Base(filename[0]))
		if t := normalizeType(path.Ext(filename[0])); strings.Contains(t, "/") {
			r.setHeader("Content-Type", t)
		}
	}
	r.setHeader("Content-Disposition", disposition)
	return r.call("attachment", "", optionalString(filename))
}

// Cookie sets cookie name to value.
func (r *Response) Cookie(name string, value any, opts ...Options) *Response {
	return r.call("cookie", name, value, firstOptions(opts))
}

// ClearCookie clears cookie name.
func (r *Response) ClearCookie(name string, opts ...Options) *Response {
	return r.call("clearCookie", name, firstOptions(opts))
}

// Download transfers the file at filePath as an attachment.
func (r *Response) Download(filePath string, filename ...string) *Response {
	return r.call("download", "", filePath, optionalString(filename))
}

// End ends the response.
func (r *Response) End(data ...any) *Response {
	return r.call("end", "", data...)
}

// Format runs the handler matching the request's Accept header. When no
// branch is acceptable the "default" branch runs; without one the response
// gets SendStatus(406).
func (r *Response) Format(handlers FormatHandlers) *Response {
	r.call("format", "", handlers)

	var fallback func()
	offers := make([]string, 0, len(handlers))
	branches := make([]FormatHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.Type == "default" {
			fallback = h.Handle
			continue
		}
		offers = append(offers, h.Type)
		branches = append(branches, h)
	}

	r.mu.Lock()
	r.header.Add("Vary", "Accept")
	r.mu.Unlock()

	if i := negotiate(r.req.Get("Accept"), offers); i >= 0 {
		r.setHeader("Content-Type", normalizeType(branches[i].Type))
		if branches[i].Handle != nil {
			branches[i].Handle()
		}
		return r
	}
	if fallback != nil {
		fallback()
		return r
	}
	r.reg.logger.Debug("no acceptable format", "accept", r.req.Get("Accept"))
	return r.SendStatus(http.StatusNotAcceptable)
}

// JSON sends body as JSON.
func (r *Response) JSON(body any) *Response {
	r.defaultContentType("application/json")
	return r.call("json", "", body)
}

// JSONP sends body as JSON with JSONP support.
func (r *Response) JSONP(body any) *Response {
	r.defaultContentType("application/json")
	return r.call("jsonp", "", body)
}

// Links sets the Link header from a rel → URL map.
func (r *Response) Links(links map[string]string) *Response {
	rels := make([]string, 0, len(links))
	for rel := range links {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	parts := make([]string, 0, len(rels))
	for _, rel := range rels {
		parts = append(parts, fmt.Sprintf("<%s>; rel=%q", links[rel], rel))
	}
	r.setHeader("Link", strings.Join(parts, ", "))
	return r.call("links", "", links)
}

// Location sets the Location header.
func (r *Response) Location(target string) *Response {
	r.setHeader("Location", target)
	return r.call("location", "", target)
}

// Redirect redirects to a path, with an optional leading status code:
// Redirect("/login") or Redirect(http.StatusMovedPermanently, "/login").
func (r *Response) Redirect(args ...any) *Response {
	status := http.StatusFound
	var target string
	switch len(args) {
	case 0:
	case 1:
		target = fmt.Sprint(args[0])
	default:
		if code, ok := args[0].(int); ok {
			status = code
		}
		target = fmt.Sprint(args[1])
	}
	r.setStatus(status)
	r.setHeader("Location", target)
	return r.call("redirect", "", args...)
}

// Render renders a view with optional locals.
func (r *Response) Render(view string, locals ...map[string]any) *Response {
	var l map[string]any
	if len(locals) > 0 {
		l = locals[0]
	}
	return r.call("render", "", view, l)
}

// Send sends body.
func (r *Response) Send(body any) *Response {
	switch body.(type) {
	case string:
		r.defaultContentType("text/html")
	case []byte:
		r.defaultContentType("application/octet-stream")
	}
	return r.call("send", "", body)
}

// SendFile transfers the file at filePath.
func (r *Response) SendFile(filePath string, opts ...Options) *Response {
	return r.call("sendFile", "", filePath, firstOptions(opts))
}

// SendStatus sets the status code and sends its text.
func (r *Response) SendStatus(code int) *Response {
	r.setStatus(code)
	return r.call("sendStatus", "", code)
}

// Set sets the response header field to value.
func (r *Response) Set(field string, value any) *Response {
	r.mu.Lock()
	switch v := value.(type) {
	case []string:
		r.header.Del(field)
		for _, s := range v {
			r.header.Add(field, s)
		}
	default:
		r.header.Set(field, fmt.Sprint(v))
	}
	r.mu.Unlock()
	return r.call("set", foldField(field), value)
}

// Status sets the status code.
func (r *Response) Status(code int) *Response {
	r.setStatus(code)
	return r.call("status", "", code)
}

// Type sets the Content-Type from a media type or short name.
func (r *Response) Type(t string) *Response {
	r.setHeader("Content-Type", normalizeType(t))
	return r.call("type", "", t)
}

// Vary adds field to the Vary header.
func (r *Response) Vary(field string) *Response {
	r.mu.Lock()
	r.header.Add("Vary", field)
	r.mu.Unlock()
	return r.call("vary", "", field)
}

func (r *Response) defaultContentType(t string) {
	r.mu.Lock()
	if r.header.Get("Content-Type") == "" {
		r.header.Set("Content-Type", t)
	}
	r.mu.Unlock()
}

// firstOptions returns the optional options argument, typed so an omitted
// argument on both sides of a comparison is equal.
func firstOptions(opts []Options) Options {
	if len(opts) == 0 {
		return nil
	}
	return opts[0]
}

func optionalString(values []string) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}
