package trpc

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Code is a tRPC error code name.
type Code string

const (
	CodeParseError          Code = "PARSE_ERROR"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeMethodNotSupported  Code = "METHOD_NOT_SUPPORTED"
	CodeTimeout             Code = "TIMEOUT"
	CodeConflict            Code = "CONFLICT"
	CodePreconditionFailed  Code = "PRECONDITION_FAILED"
	CodeTooManyRequests     Code = "TOO_MANY_REQUESTS"
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
)

var codeTable = map[Code]struct {
	http int
	rpc  int
}{
	CodeParseError:          {fiber.StatusBadRequest, -32700},
	CodeBadRequest:          {fiber.StatusBadRequest, -32600},
	CodeUnauthorized:        {fiber.StatusUnauthorized, -32001},
	CodeForbidden:           {fiber.StatusForbidden, -32003},
	CodeNotFound:            {fiber.StatusNotFound, -32004},
	CodeMethodNotSupported:  {fiber.StatusMethodNotAllowed, -32005},
	CodeTimeout:             {fiber.StatusRequestTimeout, -32008},
	CodeConflict:            {fiber.StatusConflict, -32009},
	CodePreconditionFailed:  {fiber.StatusPreconditionFailed, -32012},
	CodeTooManyRequests:     {fiber.StatusTooManyRequests, -32029},
	CodeInternalServerError: {fiber.StatusInternalServerError, -32603},
}

// HTTPStatus of the code; unknown codes map to 500.
func (c Code) HTTPStatus() int {
	if v, ok := codeTable[c]; ok {
		return v.http
	}
	return fiber.StatusInternalServerError
}

// JSONRPC is the numeric code carried in the error envelope.
func (c Code) JSONRPC() int {
	if v, ok := codeTable[c]; ok {
		return v.rpc
	}
	return -32603
}

// Error is a procedure failure with a client-visible message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause that is logged but not sent to the client.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func BadRequest(message string) *Error   { return NewError(CodeBadRequest, message) }
func Unauthorized(message string) *Error { return NewError(CodeUnauthorized, message) }
func Forbidden(message string) *Error    { return NewError(CodeForbidden, message) }
func NotFound(message string) *Error     { return NewError(CodeNotFound, message) }

// asError classifies any handler error. Unclassified errors become
// INTERNAL_SERVER_ERROR; the original message is exposed only when expose
// is set.
func asError(err error, expose bool) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return Wrap(CodeBadRequest, "Dados inválidos", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, "Tempo de requisição esgotado", err)
	}
	msg := "Internal server error"
	if expose {
		msg = err.Error()
	}
	return Wrap(CodeInternalServerError, msg, err)
}
