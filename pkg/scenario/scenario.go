package scenario

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abitwise/express-api-test/internal/matching"
	"github.com/abitwise/express-api-test/pkg/probe"
)

// DefaultTimeout bounds Run when a scenario has no timeout of its own.
const DefaultTimeout = 2 * time.Second

// Scenario is one request and the response calls expected for it.
type Scenario struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Request     Request `yaml:"request,omitempty" json:"request,omitempty"`
	Expect      Expect  `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Source is the file the scenario was loaded from, if any.
	Source string `yaml:"-" json:"source,omitempty"`
}

// Request mirrors the probe setters. Zero values are not applied.
type Request struct {
	Method        string            `yaml:"method,omitempty" json:"method,omitempty"`
	Path          string            `yaml:"path,omitempty" json:"path,omitempty"`
	BaseURL       string            `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	OriginalURL   string            `yaml:"originalUrl,omitempty" json:"originalUrl,omitempty"`
	Protocol      string            `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	Hostname      string            `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	IP            string            `yaml:"ip,omitempty" json:"ip,omitempty"`
	IPs           []string          `yaml:"ips,omitempty" json:"ips,omitempty"`
	Subdomains    []string          `yaml:"subdomains,omitempty" json:"subdomains,omitempty"`
	Secure        bool              `yaml:"secure,omitempty" json:"secure,omitempty"`
	Fresh         bool              `yaml:"fresh,omitempty" json:"fresh,omitempty"`
	Stale         bool              `yaml:"stale,omitempty" json:"stale,omitempty"`
	XHR           bool              `yaml:"xhr,omitempty" json:"xhr,omitempty"`
	Params        map[string]any    `yaml:"params,omitempty" json:"params,omitempty"`
	Query         map[string]any    `yaml:"query,omitempty" json:"query,omitempty"`
	Body          any               `yaml:"body,omitempty" json:"body,omitempty"`
	Cookies       map[string]any    `yaml:"cookies,omitempty" json:"cookies,omitempty"`
	SignedCookies map[string]any    `yaml:"signedCookies,omitempty" json:"signedCookies,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	SwaggerParams map[string]any    `yaml:"swaggerParams,omitempty" json:"swaggerParams,omitempty"`
	Fields        map[string]any    `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Expect lists the expected response calls. Absent entries register nothing.
type Expect struct {
	Status       *int                   `yaml:"status,omitempty" json:"status,omitempty"`
	SendStatus   *int                   `yaml:"sendStatus,omitempty" json:"sendStatus,omitempty"`
	JSON         any                    `yaml:"json,omitempty" json:"json,omitempty"`
	JSONP        any                    `yaml:"jsonp,omitempty" json:"jsonp,omitempty"`
	JSONPath     map[string]any         `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`
	JSONWhere    []string               `yaml:"jsonWhere,omitempty" json:"jsonWhere,omitempty"`
	Send         any                    `yaml:"send,omitempty" json:"send,omitempty"`
	Type         string                 `yaml:"type,omitempty" json:"type,omitempty"`
	Location     string                 `yaml:"location,omitempty" json:"location,omitempty"`
	Vary         string                 `yaml:"vary,omitempty" json:"vary,omitempty"`
	Redirect     Redirect               `yaml:"redirect,omitempty" json:"redirect,omitempty"`
	Render       *Render                `yaml:"render,omitempty" json:"render,omitempty"`
	Cookies      map[string]Cookie      `yaml:"cookies,omitempty" json:"cookies,omitempty"`
	ClearCookies map[string]ClearCookie `yaml:"clearCookies,omitempty" json:"clearCookies,omitempty"`
	Headers      map[string]any         `yaml:"headers,omitempty" json:"headers,omitempty"`
	Append       map[string]any         `yaml:"append,omitempty" json:"append,omitempty"`
	Attachment   *string                `yaml:"attachment,omitempty" json:"attachment,omitempty"`
	Download     *Download              `yaml:"download,omitempty" json:"download,omitempty"`
	SendFile     *SendFile              `yaml:"sendFile,omitempty" json:"sendFile,omitempty"`
	End          bool                   `yaml:"end,omitempty" json:"end,omitempty"`
}

// Redirect is the expected redirect tuple: a path, or a status and a path.
// In files it is written either as a scalar or as a list.
type Redirect []any

// UnmarshalYAML accepts both "redirect: /login" and "redirect: [301, /login]".
func (r *Redirect) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var values []any
		if err := node.Decode(&values); err != nil {
			return err
		}
		*r = values
		return nil
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return err
	}
	*r = Redirect{value}
	return nil
}

// Render is the expected res.Render call.
type Render struct {
	View   string         `yaml:"view" json:"view"`
	Locals map[string]any `yaml:"locals,omitempty" json:"locals,omitempty"`
}

// Cookie is the expected res.Cookie value and options.
type Cookie struct {
	Value   any            `yaml:"value" json:"value"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// ClearCookie is the expected res.ClearCookie options.
type ClearCookie struct {
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// Download is the expected res.Download call.
type Download struct {
	Path     string `yaml:"path" json:"path"`
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty"`
}

// SendFile is the expected res.SendFile call.
type SendFile struct {
	Path    string         `yaml:"path" json:"path"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// Validate checks what the schema cannot: the timeout parses and every
// JSONPath and condition compiles.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("timeout: %w", err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("timeout: must be positive, got %s", s.Timeout))
		}
	}
	for _, path := range sortedKeys(s.Expect.JSONPath) {
		if _, err := matching.CompileJSONPath(path); err != nil {
			errs = append(errs, fmt.Errorf("expect.jsonPath: %w", err))
		}
	}
	for i, where := range s.Expect.JSONWhere {
		if _, err := matching.CompileCondition(where); err != nil {
			errs = append(errs, fmt.Errorf("expect.jsonWhere[%d]: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return nil
}

// TimeoutOr returns the scenario timeout, or def when it is unset or invalid.
func (s *Scenario) TimeoutOr(def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return def
}

// Apply configures p with the scenario's request and registers its
// expectations. Map entries are applied in key order.
func (s *Scenario) Apply(p *probe.Probe) *probe.Probe {
	s.applyRequest(p)
	s.applyExpect(p)
	return p
}

// Run builds a probe for handler, applies the scenario, runs the handler and
// waits up to the scenario timeout.
func (s *Scenario) Run(ctx context.Context, handler probe.Handler, opts ...probe.Option) error {
	ctx, cancel := context.WithTimeout(ctx, s.TimeoutOr(DefaultTimeout))
	defer cancel()

	p := s.Apply(probe.New(handler, opts...))
	if err := p.Err(); err != nil {
		return err
	}
	return p.Run().Wait(ctx)
}

func (s *Scenario) applyRequest(p *probe.Probe) {
	r := s.Request
	if r.Method != "" {
		p.SetMethod(r.Method)
	}
	if r.Path != "" {
		p.SetPath(r.Path)
	}
	if r.BaseURL != "" {
		p.SetBaseURL(r.BaseURL)
	}
	if r.OriginalURL != "" {
		p.SetOriginalURL(r.OriginalURL)
	}
	if r.Protocol != "" {
		p.SetProtocol(r.Protocol)
	}
	if r.Hostname != "" {
		p.SetHostname(r.Hostname)
	}
	if r.IP != "" {
		p.SetIP(r.IP)
	}
	if r.IPs != nil {
		p.SetIPs(r.IPs)
	}
	if r.Subdomains != nil {
		p.SetSubdomains(r.Subdomains)
	}
	if r.Secure {
		p.SetSecure(true)
	}
	if r.Fresh {
		p.SetFresh(true)
	}
	if r.Stale {
		p.SetStale(true)
	}
	if r.XHR {
		p.SetXHR(true)
	}
	if r.Params != nil {
		p.SetParams(r.Params)
	}
	if r.Query != nil {
		p.SetQuery(r.Query)
	}
	if r.Body != nil {
		p.SetBody(r.Body)
	}
	if r.Cookies != nil {
		p.SetCookies(r.Cookies)
	}
	if r.SignedCookies != nil {
		p.SetSignedCookies(r.SignedCookies)
	}
	if r.Headers != nil {
		p.SetRequestHeaders(r.Headers)
	}
	if r.SwaggerParams != nil {
		p.SetSwaggerParams(r.SwaggerParams)
	}
	for _, name := range sortedKeys(r.Fields) {
		p.SetField(name, r.Fields[name])
	}
}

func (s *Scenario) applyExpect(p *probe.Probe) {
	e := s.Expect
	if e.Status != nil {
		p.ExpectStatus(*e.Status)
	}
	if e.SendStatus != nil {
		p.ExpectSendStatus(*e.SendStatus)
	}
	if e.JSON != nil {
		p.ExpectJSONBody(e.JSON)
	}
	for _, path := range sortedKeys(e.JSONPath) {
		p.ExpectJSONPath(path, e.JSONPath[path])
	}
	for _, where := range e.JSONWhere {
		p.ExpectJSONWhere(where)
	}
	if e.JSONP != nil {
		p.ExpectJSONP(e.JSONP)
	}
	if e.Send != nil {
		p.ExpectSend(e.Send)
	}
	if e.Type != "" {
		p.ExpectType(e.Type)
	}
	if e.Location != "" {
		p.ExpectLocation(e.Location)
	}
	if e.Vary != "" {
		p.ExpectVary(e.Vary)
	}
	if len(e.Redirect) > 0 {
		p.ExpectRedirect(e.Redirect...)
	}
	if e.Render != nil {
		p.ExpectRender(e.Render.View, e.Render.Locals)
	}
	for _, name := range sortedKeys(e.Cookies) {
		c := e.Cookies[name]
		p.ExpectCookie(name, c.Value, options(c.Options)...)
	}
	for _, name := range sortedKeys(e.ClearCookies) {
		p.ExpectClearCookie(name, options(e.ClearCookies[name].Options)...)
	}
	for _, field := range sortedKeys(e.Headers) {
		p.ExpectSet(field, e.Headers[field])
	}
	for _, field := range sortedKeys(e.Append) {
		p.ExpectAppend(field, e.Append[field])
	}
	if e.Attachment != nil {
		if *e.Attachment == "" {
			p.ExpectAttachment()
		} else {
			p.ExpectAttachment(*e.Attachment)
		}
	}
	if e.Download != nil {
		if e.Download.Filename == "" {
			p.ExpectDownload(e.Download.Path)
		} else {
			p.ExpectDownload(e.Download.Path, e.Download.Filename)
		}
	}
	if e.SendFile != nil {
		p.ExpectSendFile(e.SendFile.Path, options(e.SendFile.Options)...)
	}
	if e.End {
		p.ExpectEnd()
	}
}

// options converts a decoded options map; nil means the call has none.
func options(m map[string]any) []probe.Options {
	if m == nil {
		return nil
	}
	return []probe.Options{probe.Options(m)}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
