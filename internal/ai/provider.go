// Package ai relays prompts to the text-generation providers with ordered
// fallback and cleans what comes back.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
)

// ProviderID names one of the supported text-generation services.
type ProviderID string

const (
	Azure      ProviderID = "azure"
	OpenRouter ProviderID = "openrouter"
	Gemini     ProviderID = "gemini"
)

// precedence is the fixed fallback order. Gemini is the terminal fallback.
var precedence = []ProviderID{Azure, OpenRouter, Gemini}

// Label is the human-readable provider name used in fallback notices.
func (p ProviderID) Label() string {
	switch p {
	case Azure:
		return "Azure OpenAI"
	case OpenRouter:
		return "OpenRouter"
	case Gemini:
		return "Gemini"
	default:
		return string(p)
	}
}

// ParseProvider validates a caller-supplied preference. Empty input yields def.
func ParseProvider(s string, def ProviderID) (ProviderID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	for _, id := range precedence {
		if string(id) == s {
			return id, nil
		}
	}
	return "", apperr.Validation(fmt.Sprintf("unknown provider %q", s))
}

// Request is one completion call. Zero MaxTokens/Temperature select the provider default.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
	// MaxTokensFor overrides MaxTokens for the listed providers only.
	MaxTokensFor map[ProviderID]int
	// Clean runs on each answer before the emptiness check.
	Clean func(string) string
}

// For returns the request as sent to provider id.
func (r Request) For(id ProviderID) Request {
	if n, ok := r.MaxTokensFor[id]; ok {
		r.MaxTokens = n
	}
	r.MaxTokensFor = nil
	return r
}

// Provider is the uniform adapter contract. Complete makes exactly one outbound
// call and returns apperr.ErrNotConfigured before any I/O when credentials are missing.
type Provider interface {
	ID() ProviderID
	Configured() bool
	Complete(ctx context.Context, req Request) (string, error)
}

func notConfigured(id ProviderID) error {
	return fmt.Errorf("%s: %w", id, apperr.ErrNotConfigured)
}

func malformed(id ProviderID, detail string) error {
	if detail == "" {
		return fmt.Errorf("%s: %w", id, apperr.ErrMalformedResponse)
	}
	return fmt.Errorf("%s: %w: %s", id, apperr.ErrMalformedResponse, detail)
}
