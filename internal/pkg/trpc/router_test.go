package trpc

import (
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/usercontext"
)

type echoInput struct {
	Name string `json:"name" validate:"required,min=2"`
}

func newTestApp(t *testing.T, uc usercontext.UserContext) *fiber.App {
	t.Helper()
	r := NewRouter()
	r.Query("version.info", func(c *Call) (any, error) {
		return fiber.Map{"commit": "abc1234"}, nil
	})
	r.Query("greet", func(c *Call) (any, error) {
		var in echoInput
		if err := c.Bind(&in); err != nil {
			return nil, err
		}
		return "olá " + in.Name, nil
	})
	r.Mutation("auth.logout", func(c *Call) (any, error) {
		return fiber.Map{"success": true}, nil
	}, Authed)
	r.Query("tenant.list", func(c *Call) (any, error) {
		return []int{1, 2}, nil
	}, Roles(models.ROLE_MASTER_ADMIN))
	r.Query("boom", func(c *Call) (any, error) {
		return nil, errors.New("db down")
	})
	r.Query("whoami", func(c *Call) (any, error) {
		return fiber.Map{"tenant": c.TenantID}, nil
	})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.LocalsUserContext, uc)
		if uc.IsLoggedIn {
			c.Locals(usercontext.LocalsTenantID, uc.TenantID)
		}
		return c.Next()
	})
	app.Get("/api/trpc/*", r.Handler())
	app.Post("/api/trpc/*", r.Handler())
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func q(input string) string {
	return url.QueryEscape(input)
}

func TestSingleQuery(t *testing.T) {
	app := newTestApp(t, usercontext.UserContext{})

	status, body := do(t, app, "GET", "/api/trpc/version.info", "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"result":{"data":{"json":{"commit":"abc1234"}}}}`, body)

	status, body = do(t, app, "GET", "/api/trpc/greet?input="+q(`{"json":{"name":"Ana"}}`), "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"result":{"data":{"json":"olá Ana"}}}`, body)

	status, body = do(t, app, "GET", "/api/trpc/greet?input="+q(`{"name":"Bia"}`), "")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "olá Bia")
}

func TestErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name     string
		uc       usercontext.UserContext
		method   string
		target   string
		body     string
		status   int
		code     string
		rpcCode  string
		contains string
	}{
		{"validation", usercontext.UserContext{}, "GET", "/api/trpc/greet?input=" + q(`{"json":{"name":"A"}}`), "", 400, "BAD_REQUEST", "-32600", "Name"},
		{"missing input", usercontext.UserContext{}, "GET", "/api/trpc/greet", "", 400, "BAD_REQUEST", "-32600", "Entrada"},
		{"parse error", usercontext.UserContext{}, "GET", "/api/trpc/greet?input=" + q(`{nope`), "", 400, "PARSE_ERROR", "-32700", "Invalid JSON"},
		{"unauthorized", usercontext.UserContext{}, "POST", "/api/trpc/auth.logout", `{"json":null}`, 401, "UNAUTHORIZED", "-32001", "login"},
		{"forbidden", usercontext.UserContext{IsLoggedIn: true, Role: models.ROLE_ADMIN}, "GET", "/api/trpc/tenant.list", "", 403, "FORBIDDEN", "-32003", "negado"},
		{"not found", usercontext.UserContext{}, "GET", "/api/trpc/nope.nothing", "", 404, "NOT_FOUND", "-32004", "nope.nothing"},
		{"mutation over GET", usercontext.UserContext{IsLoggedIn: true}, "GET", "/api/trpc/auth.logout", "", 405, "METHOD_NOT_SUPPORTED", "-32005", "Unsupported"},
		{"internal", usercontext.UserContext{}, "GET", "/api/trpc/boom", "", 500, "INTERNAL_SERVER_ERROR", "-32603", "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.uc)
			status, body := do(t, app, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, `"code":"`+tt.code+`"`)
			assert.Contains(t, body, `"code":`+tt.rpcCode)
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestMutationWithSession(t *testing.T) {
	app := newTestApp(t, usercontext.UserContext{IsLoggedIn: true, UserID: 3, TenantID: 4, Role: models.ROLE_ADMIN})
	status, body := do(t, app, "POST", "/api/trpc/auth.logout", `{"json":null}`)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"result":{"data":{"json":{"success":true}}}}`, body)

	status, body = do(t, app, "GET", "/api/trpc/whoami", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"tenant":4`)
}

func TestBatch(t *testing.T) {
	app := newTestApp(t, usercontext.UserContext{})

	input := q(`{"0":{"json":null},"1":{"json":{"name":"Caio"}}}`)
	status, body := do(t, app, "GET", "/api/trpc/version.info,greet?batch=1&input="+input, "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `[{"result":{"data":{"json":{"commit":"abc1234"}}}},{"result":{"data":{"json":"olá Caio"}}}]`, body)

	status, body = do(t, app, "GET", "/api/trpc/version.info,boom?batch=1&input="+q(`{}`), "")
	assert.Equal(t, 207, status)
	assert.Contains(t, body, `"path":"boom"`)

	status, _ = do(t, app, "GET", "/api/trpc/boom,boom?batch=1", "")
	assert.Equal(t, 500, status)

	status, body = do(t, app, "GET", "/api/trpc/version.info?batch=1&input="+q(`[1]`), "")
	assert.Equal(t, 400, status)
	assert.Contains(t, body, "PARSE_ERROR")
}

func TestExposeErrors(t *testing.T) {
	r := NewRouter()
	r.ExposeErrors = true
	r.Query("boom", func(c *Call) (any, error) { return nil, errors.New("db down") })
	app := fiber.New()
	app.Get("/api/trpc/*", r.Handler())

	status, body := do(t, app, "GET", "/api/trpc/boom", "")
	assert.Equal(t, 500, status)
	assert.Contains(t, body, "db down")
}

func TestDuplicateProcedurePanics(t *testing.T) {
	r := NewRouter()
	r.Query("a", func(c *Call) (any, error) { return nil, nil })
	assert.Panics(t, func() { r.Mutation("a", func(c *Call) (any, error) { return nil, nil }) })
	assert.Equal(t, []string{"a"}, r.Paths())
}

func TestCodeTable(t *testing.T) {
	assert.Equal(t, 429, CodeTooManyRequests.HTTPStatus())
	assert.Equal(t, -32029, CodeTooManyRequests.JSONRPC())
	assert.Equal(t, 500, Code("WHATEVER").HTTPStatus())
}
