package entity

import (
	"time"

	"github.com/google/uuid"
)

// Portfolio is one published HTML document in the `portfolios` table.
type Portfolio struct {
	ID        int64      `db:"id" json:"id"`
	Slug      string     `db:"slug" json:"slug"`
	HTML      string     `db:"html" json:"html"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Summary is the projection returned when listing an owner's portfolios.
type Summary struct {
	ID        int64     `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Scope selects the store privileges a request runs with.
type Scope int

const (
	// ScopeAnonymous runs as the public role; row policies see no user.
	ScopeAnonymous Scope = iota
	// ScopeBearer runs as the authenticated role with the caller's claims.
	ScopeBearer
	// ScopeService bypasses row policies.
	ScopeService
)

func (s Scope) String() string {
	switch s {
	case ScopeBearer:
		return "bearer"
	case ScopeService:
		return "service"
	default:
		return "anonymous"
	}
}

// Access is the resolved scope of one request and the owner it acts for.
type Access struct {
	Scope Scope
	Owner *uuid.UUID
	Email string
}
