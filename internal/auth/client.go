// Package auth delegates signup, login and token checks to the external
// identity provider (a GoTrue-compatible HTTP API).
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

const maxBodyBytes = 1 << 20

// Client calls the identity provider's /auth/v1 endpoints with the project's
// public key.
type Client struct {
	baseURL    string
	apiKey     string
	configured bool
	httpClient *http.Client
}

func NewClient(cfg config.AuthConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    cfg.URL + "/auth/v1",
		apiKey:     cfg.AnonKey,
		configured: cfg.Configured(),
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool { return c.configured }

// Signup registers a user. full_name is stored in the user's metadata.
func (c *Client) Signup(ctx context.Context, email, password, fullName string) (*Grant, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	raw, err := c.do(ctx, http.MethodPost, "/signup", "", body)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("auth: %w: %v", apperr.ErrMalformedResponse, err)
	}
	// With email confirmation on, the answer is the bare user object.
	if s.AccessToken == "" {
		return &Grant{User: raw}, nil
	}
	return &Grant{User: s.User, Session: &s}, nil
}

// Login exchanges email and password for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Grant, error) {
	raw, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.AccessToken == "" {
		return nil, fmt.Errorf("auth: %w: no session in token response", apperr.ErrMalformedResponse)
	}
	return &Grant{User: s.User, Session: &s}, nil
}

// Logout revokes the session behind token.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/logout", token, nil)
	return err
}

// User returns the raw user object the token belongs to.
func (c *Client) User(ctx context.Context, token string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/user", token, nil)
}

// Identity resolves token to its owner through the /user endpoint.
func (c *Client) Identity(ctx context.Context, token string) (*Identity, error) {
	raw, err := c.User(ctx, token)
	if err != nil {
		return nil, err
	}
	var u struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("auth: %w: %v", apperr.ErrMalformedResponse, err)
	}
	sub, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: %w: user id %q", apperr.ErrMalformedResponse, u.ID)
	}
	return &Identity{Subject: sub, Email: u.Email, Role: u.Role}, nil
}

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorEnvelope) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (json.RawMessage, error) {
	if !c.configured {
		return nil, fmt.Errorf("identity provider: %w", apperr.ErrNotConfigured)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("auth: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("auth: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &apperr.UpstreamHTTPError{Service: "auth", Status: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			e.Message = env.text()
		}
		return nil, e
	}
	return raw, nil
}
