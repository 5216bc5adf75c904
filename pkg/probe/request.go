package probe

import (
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"
)

// Request is the fabricated request handed to the handler under test.
// Fields hold whatever the probe was configured with; unset fields keep
// their zero value.
type Request struct {
	// Params is a read-only copy of the parameters installed by
	// Probe.SetParams. Param reads its own table, so assigning or editing
	// Params does not change what Param returns; use SetParams instead.
	Params        map[string]any
	Query         map[string]any
	Body          any
	Cookies       map[string]any
	SignedCookies map[string]any
	// Headers is keyed by case-folded field name. Use Get to look fields up.
	Headers     map[string]string
	Method      string
	Protocol    string
	Hostname    string
	IP          string
	IPs         []string
	BaseURL     string
	OriginalURL string
	Path        string
	Route       any
	Secure      bool
	Fresh       bool
	Stale       bool
	XHR         bool
	Subdomains  []string
	// App is an opaque application back-reference, shared with Response.App.
	App any
	// Swagger holds swagger-tools style parameters, see Probe.SetSwaggerParams.
	Swagger *SwaggerParams
	// Fields is the extension slot for anything the named fields do not cover.
	Fields map[string]any

	params atomic.Pointer[paramTable]
}

// SwaggerParams mirrors the req.swagger object of swagger middleware.
type SwaggerParams struct {
	Params map[string]SwaggerParam
}

// SwaggerParam wraps one parameter value.
type SwaggerParam struct {
	Value any
}

// paramTable is swapped as a whole by SetParams so Param never sees a
// half-updated map.
type paramTable struct {
	values map[string]any
}

func newRequest() *Request {
	r := &Request{Headers: map[string]string{}}
	r.params.Store(&paramTable{values: map[string]any{}})
	return r
}

// Param returns the named path parameter, or nil when it is not set.
func (r *Request) Param(name string) any {
	table := r.params.Load()
	if table == nil {
		return nil
	}
	if v, ok := table.values[name]; ok {
		return v
	}
	return nil
}

// Get returns the request header field, matched case-insensitively.
// "Referer" and "Referrer" are interchangeable.
func (r *Request) Get(field string) string {
	name := foldField(field)
	if v, ok := r.Headers[name]; ok {
		return v
	}
	switch name {
	case "referer":
		return r.Headers["referrer"]
	case "referrer":
		return r.Headers["referer"]
	}
	return ""
}

// Header is an alias for Get.
func (r *Request) Header(field string) string {
	return r.Get(field)
}

// Field returns a value stored in the extension slot.
func (r *Request) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Accepts returns the first of types that the Accept header allows, taking
// quality values into account, or "" when none is acceptable. Types may be
// full media types or short names such as "json" and "html".
func (r *Request) Accepts(types ...string) string {
	if len(types) == 0 {
		return r.Get("Accept")
	}
	if i := negotiate(r.Get("Accept"), types); i >= 0 {
		return types[i]
	}
	return ""
}

// AcceptsCharsets returns the first of charsets the Accept-Charset header
// allows, or "" when none is acceptable. Without arguments it returns the
// header itself.
func (r *Request) AcceptsCharsets(charsets ...string) string {
	return negotiateToken(r.Get("Accept-Charset"), charsets, tokenEqual)
}

// AcceptsEncodings is AcceptsCharsets for the Accept-Encoding header.
func (r *Request) AcceptsEncodings(encodings ...string) string {
	return negotiateToken(r.Get("Accept-Encoding"), encodings, tokenEqual)
}

// AcceptsLanguages is AcceptsCharsets for the Accept-Language header. A
// primary tag such as "en" matches its regional variants.
func (r *Request) AcceptsLanguages(languages ...string) string {
	return negotiateToken(r.Get("Accept-Language"), languages, languageMatch)
}

// Is returns the first of types matching the request Content-Type, or ""
// when the request has no Content-Type or nothing matches. Types may use
// wildcards ("text/*") or short names ("json").
func (r *Request) Is(types ...string) string {
	contentType := r.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	actual := normalizeType(contentType)
	for _, t := range types {
		want := normalizeType(t)
		typ, sub, ok := strings.Cut(want, "/")
		if !ok {
			continue
		}
		if (mediaRange{typ: typ, sub: sub}).matches(actual) {
			return t
		}
	}
	return ""
}

// foldField case-folds a header field name for storage and lookup.
func foldField(field string) string {
	return cases.Fold().String(strings.TrimSpace(field))
}
