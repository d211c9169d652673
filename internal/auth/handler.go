package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
)

// Handler exposes HTTP endpoints that pass through to the identity provider.
type Handler struct {
	client *Client
	logger *zap.SugaredLogger
}

func NewHandler(client *Client, logger *zap.SugaredLogger) *Handler {
	return &Handler{client: client, logger: logger}
}

// GrantResponse is the body of a successful signup or login.
type GrantResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    json.RawMessage `json:"user"`
	Session *Session        `json:"session"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	grant, err := h.client.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.upstreamError(w, "signup", http.StatusBadRequest, err)
		return
	}
	h.writeJSON(w, http.StatusOK, GrantResponse{
		Success: true,
		Message: "Account created successfully! Please check your email to verify your account.",
		User:    nullIfEmpty(grant.User),
		Session: grant.Session,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	grant, err := h.client.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.upstreamError(w, "login", http.StatusUnauthorized, err)
		return
	}
	h.writeJSON(w, http.StatusOK, GrantResponse{
		Success: true,
		Message: "Login successful!",
		User:    nullIfEmpty(grant.User),
		Session: grant.Session,
	})
}

// Logout revokes the caller's session when a bearer token is sent. Without
// one there is nothing server-side to end.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if token, ok := BearerToken(r); ok {
		if err := h.client.Logout(r.Context(), token); err != nil {
			h.upstreamError(w, "logout", http.StatusBadRequest, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	token, ok := BearerToken(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "No authorization header")
		return
	}
	user, err := h.client.User(r.Context(), token)
	if err != nil {
		h.upstreamError(w, "get user", http.StatusUnauthorized, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.client.Configured() {
		return true
	}
	h.writeError(w, http.StatusInternalServerError,
		"Supabase is not configured. Please add SUPABASE_URL and SUPABASE_ANON_KEY to .env file")
	return false
}

// upstreamError answers with status when the identity provider rejected the
// request and 500 when it could not be reached.
func (h *Handler) upstreamError(w http.ResponseWriter, op string, status int, err error) {
	var upstream *apperr.UpstreamHTTPError
	if errors.As(err, &upstream) {
		h.logger.Debugw(op+" rejected", "status", upstream.Status, "err", err)
		msg := upstream.Message
		if msg == "" {
			msg = upstream.Error()
		}
		h.writeError(w, status, msg)
		return
	}
	h.logger.Warnw(op+" failed", "err", err)
	h.writeError(w, http.StatusInternalServerError, err.Error())
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
