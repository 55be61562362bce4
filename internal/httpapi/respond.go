// Package httpapi owns the JSON envelope every endpoint speaks:
// {"success":true,"data":...} on success, {"success":false,"error":{...}}
// on failure, with a stable machine-readable code.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmind/shopmind/internal/logging"
)

// Error codes surfaced to clients.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeTokenMalformed  = "TOKEN_MALFORMED"
	CodeForbidden       = "FORBIDDEN"
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

func NewError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func Unauthenticated(code, message string) *APIError {
	return NewError(http.StatusUnauthorized, code, message)
}

func Forbidden(message string) *APIError {
	return NewError(http.StatusForbidden, CodeForbidden, message)
}

func BadRequest(message string) *APIError {
	return NewError(http.StatusBadRequest, CodeValidation, message)
}

func NotFound(message string) *APIError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func fail(c echo.Context, e *APIError) error {
	return c.JSON(e.Status, echo.Map{"success": false, "error": e})
}

// ErrorHandler resolves every error to the envelope. Internals are logged
// with full detail and leave the process as a sanitized INTERNAL_ERROR.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		_ = fail(c, apiErr)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := CodeInternal
		switch he.Code {
		case http.StatusNotFound:
			code = CodeNotFound
		case http.StatusBadRequest:
			code = CodeValidation
		case http.StatusUnauthorized:
			code = CodeUnauthenticated
		case http.StatusForbidden:
			code = CodeForbidden
		}
		_ = fail(c, NewError(he.Code, code, http.StatusText(he.Code)))
		return
	}

	l := logging.FromContext(c.Request().Context())
	l.Error("unhandled_error", "path", c.Path(), "error", err)
	_ = fail(c, NewError(http.StatusInternalServerError, CodeInternal, "internal error"))
}
