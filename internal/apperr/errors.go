// Package apperr holds the error taxonomy shared by the relay's services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotConfigured         = errors.New("not configured")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrValidation            = errors.New("validation error")
	ErrAllProvidersExhausted = errors.New("جميع محركات الذكاء الاصطناعي مشغولة حالياً، يرجى المحاولة بعد دقيقة واحدة.")
	ErrUnauthorized          = errors.New("unauthorized")
)

// UpstreamHTTPError is a non-2xx answer from a provider or the identity service.
type UpstreamHTTPError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error: %d", e.Service, e.Status)
}

// Validation wraps ErrValidation with a caller-facing message.
func Validation(msg string) error {
	return WithMessage(ErrValidation, msg)
}

// WithMessage ties a caller-facing message to one of the sentinels above.
// errors.Is still matches kind; Error returns msg alone.
func WithMessage(kind error, msg string) error {
	return &messageError{kind: kind, msg: msg}
}

type messageError struct {
	kind error
	msg  string
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.kind }

// HTTPStatus maps an error to the status code the handlers answer with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
