// Package trpc serves named queries and mutations over the tRPC HTTP
// envelope used by the web client: single and batched calls, superjson-style
// {"json": ...} payloads and tRPC error shapes.
package trpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/internal/pkg/usercontext"
)

type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// HandlerFunc runs one procedure call.
type HandlerFunc func(c *Call) (any, error)

// Guard rejects a call before its handler runs.
type Guard func(c *Call) error

type Procedure struct {
	Path    string
	Kind    Kind
	Guards  []Guard
	Handler HandlerFunc
}

// Call is the per-procedure request context.
type Call struct {
	Path     string
	Input    json.RawMessage
	User     usercontext.UserContext
	TenantID uint
	Fiber    *fiber.Ctx
}

var validate = validator.New()

// Context returns the request context.
func (c *Call) Context() context.Context {
	if c.Fiber == nil {
		return context.Background()
	}
	return c.Fiber.UserContext()
}

// Bind decodes the call input into dst and validates its struct tags.
func (c *Call) Bind(dst any) error {
	if len(c.Input) == 0 || bytes.Equal(c.Input, []byte("null")) {
		return BadRequest("Entrada obrigatória")
	}
	if err := json.Unmarshal(c.Input, dst); err != nil {
		return Wrap(CodeBadRequest, "Entrada inválida", err)
	}
	if err := validate.Struct(dst); err != nil {
		return Wrap(CodeBadRequest, validationMessage(err), err)
	}
	return nil
}

// BindOptional is Bind for procedures whose input may be omitted; dst keeps
// its defaults when there is none.
func (c *Call) BindOptional(dst any) error {
	if len(c.Input) == 0 || bytes.Equal(c.Input, []byte("null")) {
		return nil
	}
	return c.Bind(dst)
}

func validationMessage(err error) string {
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "Dados inválidos"
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return "Dados inválidos: " + strings.Join(fields, ", ")
}

// Authed requires a logged-in user.
func Authed(c *Call) error {
	if !c.User.IsLoggedIn {
		return Unauthorized("Faça login para continuar")
	}
	return nil
}

// Roles requires a logged-in user with one of the roles.
func Roles(roles ...string) Guard {
	return func(c *Call) error {
		if err := Authed(c); err != nil {
			return err
		}
		if !c.User.HasRole(roles...) {
			return Forbidden("Acesso negado")
		}
		return nil
	}
}

// Router is the procedure registry.
type Router struct {
	procs map[string]*Procedure
	// ExposeErrors sends internal error messages to the client (dev only).
	ExposeErrors bool
}

func NewRouter() *Router {
	return &Router{procs: map[string]*Procedure{}}
}

func (r *Router) add(kind Kind, path string, h HandlerFunc, guards []Guard) {
	if _, dup := r.procs[path]; dup {
		panic(fmt.Sprintf("trpc: duplicate procedure %q", path))
	}
	r.procs[path] = &Procedure{Path: path, Kind: kind, Guards: guards, Handler: h}
}

func (r *Router) Query(path string, h HandlerFunc, guards ...Guard) {
	r.add(KindQuery, path, h, guards)
}

func (r *Router) Mutation(path string, h HandlerFunc, guards ...Guard) {
	r.add(KindMutation, path, h, guards)
}

// Paths lists the registered procedures in order.
func (r *Router) Paths() []string {
	out := make([]string, 0, len(r.procs))
	for p := range r.procs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Invoke runs a procedure directly, applying its guards.
func (r *Router) Invoke(call *Call, kind Kind) (any, error) {
	proc, ok := r.procs[call.Path]
	if !ok {
		return nil, NotFound(fmt.Sprintf("No %q-procedure on path %q", kind, call.Path))
	}
	if proc.Kind != kind {
		return nil, NewError(CodeMethodNotSupported, fmt.Sprintf("Unsupported %s-request to %s procedure at path %q", kind, proc.Kind, call.Path))
	}
	for _, g := range proc.Guards {
		if err := g(call); err != nil {
			return nil, err
		}
	}
	return proc.Handler(call)
}

type resultEnvelope struct {
	Result struct {
		Data struct {
			JSON any `json:"json"`
		} `json:"data"`
	} `json:"result"`
}

type errorData struct {
	Code       Code   `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		JSON struct {
			Message string    `json:"message"`
			Code    int       `json:"code"`
			Data    errorData `json:"data"`
		} `json:"json"`
	} `json:"error"`
}

func successBody(v any) resultEnvelope {
	var env resultEnvelope
	env.Result.Data.JSON = v
	return env
}

func errorBody(e *Error, path string) errorEnvelope {
	var env errorEnvelope
	env.Error.JSON.Message = e.Message
	env.Error.JSON.Code = e.Code.JSONRPC()
	env.Error.JSON.Data = errorData{Code: e.Code, HTTPStatus: e.Code.HTTPStatus(), Path: path}
	return env
}

// unwrapInput accepts {"json": X} as sent by superjson clients, and a bare X.
func unwrapInput(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if inner, ok := envelope["json"]; ok {
		if len(envelope) == 1 {
			return inner
		}
		if _, hasMeta := envelope["meta"]; hasMeta && len(envelope) == 2 {
			return inner
		}
	}
	return raw
}

// Handler serves /api/trpc/:path.
func (r *Router) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawPath, err := url.PathUnescape(c.Params("*"))
		if err != nil || rawPath == "" {
			rawPath = c.Params("*")
		}
		kind := KindQuery
		if c.Method() == fiber.MethodPost {
			kind = KindMutation
		}
		batch := c.Query("batch") == "1" || c.Query("batch") == "true"

		var rawInput []byte
		if kind == KindQuery {
			rawInput = []byte(c.Query("input"))
		} else {
			rawInput = c.Body()
		}

		paths := []string{rawPath}
		if batch {
			paths = strings.Split(rawPath, ",")
		}

		inputs, perr := splitInputs(rawInput, len(paths), batch)
		if perr != nil {
			return r.writeSingle(c, nil, perr, rawPath)
		}

		uc := usercontext.GetUserContext(c)
		tenantID := usercontext.GetTenantID(c)

		results := make([]any, len(paths))
		errs := make([]*Error, len(paths))
		for i, p := range paths {
			call := &Call{Path: p, Input: inputs[i], User: uc, TenantID: tenantID, Fiber: c}
			out, err := r.Invoke(call, kind)
			if err != nil {
				te := asError(err, r.ExposeErrors)
				if te.Code == CodeInternalServerError {
					log.Errorf("[tRPC] %s %s failed: %v", kind, p, err)
				} else {
					log.Debugf("[tRPC] %s %s rejected: %v", kind, p, err)
				}
				errs[i] = te
				continue
			}
			results[i] = out
		}

		if !batch {
			return r.writeSingle(c, results[0], errs[0], paths[0])
		}
		return writeBatch(c, paths, results, errs)
	}
}

func (r *Router) writeSingle(c *fiber.Ctx, result any, e *Error, path string) error {
	if e != nil {
		return c.Status(e.Code.HTTPStatus()).JSON(errorBody(e, path))
	}
	return c.Status(fiber.StatusOK).JSON(successBody(result))
}

// writeBatch answers with one entry per call. Mixed outcomes use 207.
func writeBatch(c *fiber.Ctx, paths []string, results []any, errs []*Error) error {
	out := make([]any, len(paths))
	status := 0
	for i := range paths {
		s := fiber.StatusOK
		if errs[i] != nil {
			s = errs[i].Code.HTTPStatus()
			out[i] = errorBody(errs[i], paths[i])
		} else {
			out[i] = successBody(results[i])
		}
		switch {
		case status == 0:
			status = s
		case status != s:
			status = fiber.StatusMultiStatus
		}
	}
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(out)
}

func splitInputs(raw []byte, n int, batch bool) ([]json.RawMessage, *Error) {
	raw = bytes.TrimSpace(raw)
	out := make([]json.RawMessage, n)
	if len(raw) == 0 {
		return out, nil
	}
	if !json.Valid(raw) {
		return nil, NewError(CodeParseError, "Invalid JSON input")
	}
	if !batch {
		out[0] = unwrapInput(raw)
		return out, nil
	}

	var byIndex map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byIndex); err != nil {
		return nil, NewError(CodeParseError, `"input" needs to be an object when doing a batch call`)
	}
	for k, v := range byIndex {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= n {
			continue
		}
		out[i] = unwrapInput(v)
	}
	return out, nil
}
