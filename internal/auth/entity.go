package auth

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Session is the token bundle the identity provider issues on login or an
// auto-confirmed signup.
type Session struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	ExpiresAt    int64           `json:"expires_at,omitempty"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user,omitempty"`
}

// Grant is the outcome of signup or login. User is forwarded to the browser
// untouched; Session is nil while the email still awaits confirmation.
type Grant struct {
	User    json.RawMessage
	Session *Session
}

// Identity is the verified owner behind a bearer token.
type Identity struct {
	Subject uuid.UUID
	Email   string
	Role    string
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
