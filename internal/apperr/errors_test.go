package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad slug"), http.StatusBadRequest},
		{fmt.Errorf("rename: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("fetch: %w", ErrNotFound), http.StatusNotFound},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrAllProvidersExhausted, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestValidationMessage(t *testing.T) {
	err := Validation("Slug must be between 3 and 50 characters")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Slug must be between 3 and 50 characters", err.Error())
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrConflict, "This URL name is already taken. Please choose another one.")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("rename: %w", err)))
	assert.Equal(t, "This URL name is already taken. Please choose another one.", err.Error())
}

func TestUpstreamHTTPError(t *testing.T) {
	withMsg := &UpstreamHTTPError{Service: "openrouter", Status: 429, Message: "Rate limit exceeded"}
	assert.Equal(t, "openrouter: HTTP 429: Rate limit exceeded", withMsg.Error())

	bare := &UpstreamHTTPError{Service: "azure", Status: 503}
	assert.Equal(t, "azure API error: 503", bare.Error())

	var target *UpstreamHTTPError
	assert.True(t, errors.As(fmt.Errorf("call: %w", bare), &target))
	assert.Equal(t, 503, target.Status)
}
