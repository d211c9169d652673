package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

// Verifier turns a bearer token into the identity that owns it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// NewVerifier checks tokens locally when the project JWT secret is known and
// falls back to asking the identity provider otherwise.
func NewVerifier(cfg config.AuthConfig, client *Client) Verifier {
	if cfg.JWTSecret != "" {
		return &JWTVerifier{secret: []byte(cfg.JWTSecret)}
	}
	return &RemoteVerifier{client: client}
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("bearer ") || !strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[len("bearer "):])
	return token, token != ""
}

// JWTVerifier validates HS256 access tokens signed with the project secret.
type JWTVerifier struct {
	secret []byte
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthorized)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", apperr.ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &Identity{Subject: id, Email: email, Role: role}, nil
}

// RemoteVerifier asks the identity provider's /user endpoint.
type RemoteVerifier struct {
	client *Client
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if v.client == nil || !v.client.Configured() {
		return nil, fmt.Errorf("token verification: %w", apperr.ErrNotConfigured)
	}
	id, err := v.client.Identity(ctx, token)
	if err != nil {
		var upstream *apperr.UpstreamHTTPError
		if errors.As(err, &upstream) && upstream.Status < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %s", apperr.ErrUnauthorized, upstream.Error())
		}
		return nil, err
	}
	return id, nil
}
