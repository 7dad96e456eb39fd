// Package apperr carries an HTTP status and a stable client-facing code
// alongside the underlying error.
package apperr

import "net/http"

// AppError is what handlers render. Code and Message reach the client; Err
// stays server side.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	status  int
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Code
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e == nil || e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

// Detail describes the cause for logs. It falls back to Code when there is
// no wrapped error.
func (e *AppError) Detail() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Body is the JSON object written to the client.
func (e *AppError) Body() map[string]string {
	return map[string]string{"error": e.Code, "message": e.Message}
}

func New(status int, code, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Err: err, status: status}
}

func BadRequest(code, msg string, err error) *AppError {
	return New(http.StatusBadRequest, code, msg, err)
}

func Unauthorized(code, msg string, err error) *AppError {
	return New(http.StatusUnauthorized, code, msg, err)
}

func Forbidden(code, msg string, err error) *AppError {
	return New(http.StatusForbidden, code, msg, err)
}

func NotFound(code, msg string, err error) *AppError {
	return New(http.StatusNotFound, code, msg, err)
}

func Conflict(code, msg string, err error) *AppError {
	return New(http.StatusConflict, code, msg, err)
}

func TooManyRequests(code, msg string) *AppError {
	return New(http.StatusTooManyRequests, code, msg, nil)
}

func Unavailable(code, msg string, err error) *AppError {
	return New(http.StatusServiceUnavailable, code, msg, err)
}

func Internal(code, msg string, err error) *AppError {
	return New(http.StatusInternalServerError, code, msg, err)
}
