package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abitwise/express-api-test/pkg/probe"
)

func userHandler(req *probe.Request, res *probe.Response) {
	id := req.Param("id")
	res.Set("X-Request-Id", "abc")
	res.Cookie("last_user", id, probe.Options{"httpOnly": true})
	res.Status(http.StatusOK).JSON(map[string]any{"id": id, "name": "Tobi"})
}

func loadOne(t *testing.T, path string) Scenario {
	t.Helper()
	scenarios, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	return scenarios[0]
}

func TestScenario_Apply(t *testing.T) {
	s := loadOne(t, "testdata/user.yaml")
	p := s.Apply(probe.New(userHandler))

	req := p.Request()
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/users/42", req.Path)
	assert.Equal(t, "42", req.Param("id"))
	assert.Equal(t, "application/json", req.Get("accept"))

	var methods []string
	for _, e := range p.Expectations() {
		methods = append(methods, e.String())
	}
	assert.Equal(t, []string{
		"status",
		"json",
		"json",
		"json",
		`cookie("last_user")`,
		`set("x-request-id")`,
	}, methods)
}

func TestScenario_Run(t *testing.T) {
	s := loadOne(t, "testdata/user.yaml")

	assert.NoError(t, s.Run(context.Background(), userHandler))

	notFound := func(_ *probe.Request, res *probe.Response) {
		res.Set("X-Request-Id", "abc")
		res.Cookie("last_user", "42", probe.Options{"httpOnly": true})
		res.Status(http.StatusNotFound).JSON(map[string]any{"error": "not found"})
	}
	err := s.Run(context.Background(), notFound)
	var ee *probe.ExpectationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "status", ee.Method)
}

func TestScenario_RunTimesOut(t *testing.T) {
	s := Scenario{
		Name:    "never answers",
		Timeout: "20ms",
		Expect:  Expect{End: true},
	}

	err := s.Run(context.Background(), func(*probe.Request, *probe.Response) {})
	assert.True(t, errors.Is(err, probe.ErrNotSettled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestScenario_ListScenarios(t *testing.T) {
	scenarios, err := LoadFile("testdata/list.yaml")
	require.NoError(t, err)

	create := func(req *probe.Request, res *probe.Response) {
		body := req.Body.(map[string]any)
		res.Location("/users/43").Status(http.StatusCreated).JSON(body)
	}
	assert.NoError(t, scenarios[0].Run(context.Background(), create))

	moved := func(_ *probe.Request, res *probe.Response) {
		res.Redirect(http.StatusMovedPermanently, "/login")
	}
	assert.NoError(t, scenarios[1].Run(context.Background(), moved))
}

func TestScenario_EnvScenario(t *testing.T) {
	t.Setenv("PROBE_SCENARIO_USER", "loki")
	s := loadOne(t, "testdata/env.yaml")

	greet := func(req *probe.Request, res *probe.Response) {
		res.Send("hello " + req.Query["user"].(string))
	}
	assert.NoError(t, s.Run(context.Background(), greet))
}

func TestScenario_JSONPathNestedNumbers(t *testing.T) {
	doc := `
name: nested numbers
expect:
  jsonPath:
    "$.ids": [1, 2]
    "$.user": {age: 3}
`
	scenarios, err := Parse([]byte(doc), "inline.yaml")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	handler := func(_ *probe.Request, res *probe.Response) {
		res.JSON(map[string]any{"ids": []int{1, 2}, "user": map[string]any{"age": 3}})
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, scenarios[0].Run(ctx, handler))
}

func TestScenario_OptionalShapes(t *testing.T) {
	empty := ""
	s := Scenario{
		Name: "shapes",
		Request: Request{
			Secure:        true,
			XHR:           true,
			SwaggerParams: map[string]any{"id": 1},
			Fields:        map[string]any{"tenant": "acme"},
		},
		Expect: Expect{
			Attachment:   &empty,
			Download:     &Download{Path: "/files/a.pdf"},
			SendFile:     &SendFile{Path: "/files/b.pdf", Options: map[string]any{"maxAge": 1}},
			ClearCookies: map[string]ClearCookie{"old": {}},
			Render:       &Render{View: "index"},
			Redirect:     Redirect{"/home"},
			Append:       map[string]any{"Link": "<a>"},
		},
	}
	handler := func(req *probe.Request, res *probe.Response) {
		tenant, _ := req.Field("tenant")
		if !req.Secure || !req.XHR || tenant != "acme" || req.Swagger.Params["id"].Value != 1 {
			res.Status(http.StatusBadRequest)
			return
		}
		res.Attachment()
		res.Download("/files/a.pdf")
		res.SendFile("/files/b.pdf", probe.Options{"maxAge": 1})
		res.ClearCookie("old")
		res.Render("index")
		res.Redirect("/home")
		res.Append("link", "<a>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Run(ctx, handler))
}

func TestRedirect_UnmarshalYAML(t *testing.T) {
	var got struct {
		A Redirect `yaml:"a"`
		B Redirect `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: /login\nb: [302, /home]\n"), &got))

	assert.Equal(t, Redirect{"/login"}, got.A)
	assert.Equal(t, Redirect{302, "/home"}, got.B)
}

func TestSchema_IsJSON(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(Schema(), &doc))
	assert.Contains(t, doc, "$defs")
}

func TestScenario_TimeoutOr(t *testing.T) {
	assert.Equal(t, 3*time.Second, (&Scenario{}).TimeoutOr(3*time.Second))
	assert.Equal(t, 250*time.Millisecond, (&Scenario{Timeout: "250ms"}).TimeoutOr(time.Second))
	assert.Equal(t, time.Second, (&Scenario{Timeout: "nope"}).TimeoutOr(time.Second))
}
