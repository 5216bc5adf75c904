package probe

import (
	"fmt"
	"maps"
)

func frozen(op string) error {
	return fmt.Errorf("%s: %w", op, ErrFrozen)
}

// SetAppMock sets the application back-reference on both request and response.
func (p *Probe) SetAppMock(app any) *Probe {
	return p.configure("SetAppMock", func(req *Request) {
		req.App = app
		p.res.App = app
	})
}

// SetBaseURL sets req.BaseURL.
func (p *Probe) SetBaseURL(baseURL string) *Probe {
	return p.configure("SetBaseURL", func(req *Request) { req.BaseURL = baseURL })
}

// SetBody sets the submitted body, e.g. map[string]any{"username": "bob"}.
func (p *Probe) SetBody(body any) *Probe {
	return p.configure("SetBody", func(req *Request) { req.Body = body })
}

// SetCookies sets the request cookies as name → value.
func (p *Probe) SetCookies(cookies map[string]any) *Probe {
	return p.configure("SetCookies", func(req *Request) { req.Cookies = cookies })
}

// SetFresh sets req.Fresh.
func (p *Probe) SetFresh(fresh bool) *Probe {
	return p.configure("SetFresh", func(req *Request) { req.Fresh = fresh })
}

// SetHostname sets req.Hostname.
func (p *Probe) SetHostname(hostname string) *Probe {
	return p.configure("SetHostname", func(req *Request) { req.Hostname = hostname })
}

// SetIP sets req.IP.
func (p *Probe) SetIP(ip string) *Probe {
	return p.configure("SetIP", func(req *Request) { req.IP = ip })
}

// SetIPs sets req.IPs.
func (p *Probe) SetIPs(ips []string) *Probe {
	return p.configure("SetIPs", func(req *Request) { req.IPs = ips })
}

// SetMethod sets req.Method.
func (p *Probe) SetMethod(method string) *Probe {
	return p.configure("SetMethod", func(req *Request) { req.Method = method })
}

// SetOriginalURL sets req.OriginalURL.
func (p *Probe) SetOriginalURL(originalURL string) *Probe {
	return p.configure("SetOriginalURL", func(req *Request) { req.OriginalURL = originalURL })
}

// SetParams replaces the path parameters. For /user/:uid/photos/:file use
//
//	map[string]any{"uid": "user123", "file": "file123"}
//
// The map is copied; req.Params and Param each get their own copy.
func (p *Probe) SetParams(params map[string]any) *Probe {
	return p.configure("SetParams", func(req *Request) {
		table := &paramTable{values: maps.Clone(params)}
		if table.values == nil {
			table.values = map[string]any{}
		}
		req.Params = maps.Clone(table.values)
		req.params.Store(table)
	})
}

// SetPath sets req.Path.
func (p *Probe) SetPath(path string) *Probe {
	return p.configure("SetPath", func(req *Request) { req.Path = path })
}

// SetProtocol sets req.Protocol.
func (p *Probe) SetProtocol(protocol string) *Probe {
	return p.configure("SetProtocol", func(req *Request) { req.Protocol = protocol })
}

// SetQuery sets the parsed query. For /shoes?order=desc&shoe[color]=blue use
//
//	map[string]any{"order": "desc", "shoe": map[string]any{"color": "blue"}}
func (p *Probe) SetQuery(query map[string]any) *Probe {
	return p.configure("SetQuery", func(req *Request) { req.Query = query })
}

// SetRequestHeaders replaces the request headers. Field names are stored
// case-folded so Request.Get matches them in any case.
func (p *Probe) SetRequestHeaders(headers map[string]string) *Probe {
	return p.configure("SetRequestHeaders", func(req *Request) {
		folded := make(map[string]string, len(headers))
		for field, value := range headers {
			folded[foldField(field)] = value
		}
		req.Headers = folded
	})
}

// SetRoute sets the matched route descriptor.
func (p *Probe) SetRoute(route any) *Probe {
	return p.configure("SetRoute", func(req *Request) { req.Route = route })
}

// SetSecure sets req.Secure.
func (p *Probe) SetSecure(secure bool) *Probe {
	return p.configure("SetSecure", func(req *Request) { req.Secure = secure })
}

// SetSignedCookies sets the signed request cookies.
func (p *Probe) SetSignedCookies(signedCookies map[string]any) *Probe {
	return p.configure("SetSignedCookies", func(req *Request) { req.SignedCookies = signedCookies })
}

// SetStale sets req.Stale.
func (p *Probe) SetStale(stale bool) *Probe {
	return p.configure("SetStale", func(req *Request) { req.Stale = stale })
}

// SetSubdomains sets req.Subdomains.
func (p *Probe) SetSubdomains(subdomains []string) *Probe {
	return p.configure("SetSubdomains", func(req *Request) { req.Subdomains = subdomains })
}

// SetSwaggerParams sets req.Swagger, wrapping each value the way swagger
// middleware does: {"id": 7} becomes Params["id"] = SwaggerParam{Value: 7}.
func (p *Probe) SetSwaggerParams(params map[string]any) *Probe {
	return p.configure("SetSwaggerParams", func(req *Request) {
		wrapped := make(map[string]SwaggerParam, len(params))
		for name, value := range params {
			wrapped[name] = SwaggerParam{Value: value}
		}
		req.Swagger = &SwaggerParams{Params: wrapped}
	})
}

// SetXHR sets req.XHR.
func (p *Probe) SetXHR(xhr bool) *Probe {
	return p.configure("SetXHR", func(req *Request) { req.XHR = xhr })
}

// SetField stores an arbitrary named value in the request's extension slot.
func (p *Probe) SetField(name string, value any) *Probe {
	return p.configure("SetField", func(req *Request) {
		if req.Fields == nil {
			req.Fields = map[string]any{}
		}
		req.Fields[name] = value
	})
}
