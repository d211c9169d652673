package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

const (
	testUserID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testUser   = `{"id":"7c9e6679-7425-40de-944b-e07fc1f90ae7","email":"sara@example.com","role":"authenticated"}`
)

// fakeIdentityProvider answers like a GoTrue server with one known user.
func fakeIdentityProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		var body struct {
			Email string            `json:"email"`
			Data  map[string]string `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Email == "taken@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"msg":"User already registered"}`))
			return
		}
		assert.Equal(t, "Sara", body.Data["full_name"])
		_, _ = w.Write([]byte(testUser))
	})
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"user-token","token_type":"bearer","expires_in":3600,"refresh_token":"r1","user":` + testUser + `}`))
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT: unable to parse or verify signature"}`))
			return
		}
		_, _ = w.Write([]byte(testUser))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(config.AuthConfig{URL: server.URL, AnonKey: "anon-key"}, server.Client())
}

func call(t *testing.T, h http.HandlerFunc, method, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/auth", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"standard":   {"Bearer abc.def", "abc.def", true},
		"lower case": {"bearer abc", "abc", true},
		"empty":      {"", "", false},
		"basic":      {"Basic dXNlcjpwYXNz", "", false},
		"no token":   {"Bearer   ", "", false},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if c.header != "" {
				r.Header.Set("Authorization", c.header)
			}
			token, ok := BearerToken(r)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.token, token)
		})
	}
}

func TestClient(t *testing.T) {
	c := newTestClient(fakeIdentityProvider(t))
	ctx := context.Background()

	t.Run("signup awaiting confirmation has no session", func(t *testing.T) {
		g, err := c.Signup(ctx, "sara@example.com", "secret", "Sara")
		require.NoError(t, err)
		assert.Nil(t, g.Session)
		assert.JSONEq(t, testUser, string(g.User))
	})

	t.Run("signup rejected", func(t *testing.T) {
		_, err := c.Signup(ctx, "taken@example.com", "secret", "Sara")
		var upstream *apperr.UpstreamHTTPError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusUnprocessableEntity, upstream.Status)
		assert.Equal(t, "User already registered", upstream.Message)
	})

	t.Run("login", func(t *testing.T) {
		g, err := c.Login(ctx, "sara@example.com", "secret")
		require.NoError(t, err)
		require.NotNil(t, g.Session)
		assert.Equal(t, "user-token", g.Session.AccessToken)
		assert.JSONEq(t, testUser, string(g.User))
	})

	t.Run("identity", func(t *testing.T) {
		id, err := c.Identity(ctx, "user-token")
		require.NoError(t, err)
		assert.Equal(t, uuid.MustParse(testUserID), id.Subject)
		assert.Equal(t, "sara@example.com", id.Email)
	})

	t.Run("not configured", func(t *testing.T) {
		empty := NewClient(config.AuthConfig{}, nil)
		_, err := empty.Login(ctx, "a", "b")
		assert.ErrorIs(t, err, apperr.ErrNotConfigured)
	})
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTVerifier(t *testing.T) {
	v := NewVerifier(config.AuthConfig{JWTSecret: "project-secret"}, nil)
	require.IsType(t, &JWTVerifier{}, v)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("valid", func(t *testing.T) {
		token := signed(t, "project-secret", jwt.MapClaims{
			"sub": testUserID, "email": "sara@example.com", "role": "authenticated", "exp": exp,
		})
		id, err := v.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, uuid.MustParse(testUserID), id.Subject)
		assert.Equal(t, "authenticated", id.Role)
	})

	t.Run("expired", func(t *testing.T) {
		token := signed(t, "project-secret", jwt.MapClaims{"sub": testUserID, "exp": time.Now().Add(-time.Minute).Unix()})
		_, err := v.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signed(t, "other-secret", jwt.MapClaims{"sub": testUserID, "exp": exp})
		_, err := v.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("anon key has no subject", func(t *testing.T) {
		token := signed(t, "project-secret", jwt.MapClaims{"role": "anon", "exp": exp})
		_, err := v.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestRemoteVerifier(t *testing.T) {
	c := newTestClient(fakeIdentityProvider(t))
	v := NewVerifier(config.AuthConfig{URL: "x", AnonKey: "anon-key"}, c)
	require.IsType(t, &RemoteVerifier{}, v)

	id, err := v.Verify(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(testUserID), id.Subject)

	_, err = v.Verify(context.Background(), "expired-token")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = (&RemoteVerifier{}).Verify(context.Background(), "user-token")
	assert.ErrorIs(t, err, apperr.ErrNotConfigured)
}

func TestHandler(t *testing.T) {
	h := NewHandler(newTestClient(fakeIdentityProvider(t)), zap.NewNop().Sugar())

	t.Run("signup", func(t *testing.T) {
		rec, out := call(t, h.Signup, http.MethodPost, `{"email":"sara@example.com","password":"secret","fullName":"Sara"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, out["success"])
		assert.Contains(t, out["message"], "check your email")
		assert.Nil(t, out["session"])
		assert.Equal(t, testUserID, out["user"].(map[string]any)["id"])
	})

	t.Run("signup missing password", func(t *testing.T) {
		rec, out := call(t, h.Signup, http.MethodPost, `{"email":"sara@example.com"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email and password are required", out["error"])
	})

	t.Run("signup rejected", func(t *testing.T) {
		rec, out := call(t, h.Signup, http.MethodPost, `{"email":"taken@example.com","password":"secret","fullName":"Sara"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "User already registered", out["error"])
	})

	t.Run("login", func(t *testing.T) {
		rec, out := call(t, h.Login, http.MethodPost, `{"email":"sara@example.com","password":"secret"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Login successful!", out["message"])
		assert.Equal(t, "user-token", out["session"].(map[string]any)["access_token"])
	})

	t.Run("login bad credentials", func(t *testing.T) {
		rec, out := call(t, h.Login, http.MethodPost, `{"email":"sara@example.com","password":"nope"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid login credentials", out["error"])
	})

	t.Run("logout", func(t *testing.T) {
		rec, out := call(t, h.Logout, http.MethodPost, ``, "user-token")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Logged out successfully", out["message"])

		rec, _ = call(t, h.Logout, http.MethodPost, ``, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("user", func(t *testing.T) {
		rec, out := call(t, h.User, http.MethodGet, ``, "user-token")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sara@example.com", out["user"].(map[string]any)["email"])
	})

	t.Run("user without header", func(t *testing.T) {
		rec, out := call(t, h.User, http.MethodGet, ``, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "No authorization header", out["error"])
	})

	t.Run("user with bad token", func(t *testing.T) {
		rec, _ := call(t, h.User, http.MethodGet, ``, "forged")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandlerNotConfigured(t *testing.T) {
	h := NewHandler(NewClient(config.AuthConfig{}, nil), zap.NewNop().Sugar())
	for name, fn := range map[string]http.HandlerFunc{
		"signup": h.Signup, "login": h.Login, "logout": h.Logout, "user": h.User,
	} {
		t.Run(name, func(t *testing.T) {
			rec, out := call(t, fn, http.MethodPost, `{}`, "")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, false, out["success"])
		})
	}
}
