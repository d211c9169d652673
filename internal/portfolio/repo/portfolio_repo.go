package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio/entity"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/database"
)

// PortfolioRepo runs each statement in its own transaction under the
// Postgres role that matches the caller's access scope, so the table's row
// policies decide what the caller may touch.
type PortfolioRepo struct {
	db    *sqlx.DB
	roles config.StoreConfig
}

func NewPortfolioRepo(db *sqlx.DB, roles config.StoreConfig) *PortfolioRepo {
	return &PortfolioRepo{db: db, roles: roles}
}

// EnsureTable creates the portfolios table and its owner index if missing.
// Slugs default to eight random hex characters.
func (r *PortfolioRepo) EnsureTable(ctx context.Context) error {
	var tblName sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT to_regclass('public.portfolios')").Scan(&tblName); err != nil {
		return err
	}
	if !tblName.Valid {
		const ddl = `CREATE TABLE portfolios (
  id BIGSERIAL PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE DEFAULT substr(md5(random()::text || clock_timestamp()::text), 1, 8),
  html TEXT NOT NULL,
  user_id UUID,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	_, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_portfolios_user_id ON portfolios (user_id, created_at DESC)`)
	return err
}

func (r *PortfolioRepo) role(s entity.Scope) string {
	switch s {
	case entity.ScopeService:
		return r.roles.ServiceRole
	case entity.ScopeBearer:
		return r.roles.AuthenticatedRole
	default:
		return r.roles.AnonRole
	}
}

// inScope opens a transaction, assumes the scope's role and, for bearer
// scope, publishes the caller's claims the way the hosted store's auth.uid()
// expects them.
func (r *PortfolioRepo) inScope(ctx context.Context, a entity.Access, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if role := r.role(a.Scope); r.roles.SwitchRoles && role != "" {
		if _, err := tx.ExecContext(ctx, "SET LOCAL ROLE "+database.QuoteIdent(role)); err != nil {
			return fmt.Errorf("set role %s: %w", role, err)
		}
	}
	if a.Scope == entity.ScopeBearer && a.Owner != nil {
		claims, err := json.Marshal(map[string]string{
			"sub":   a.Owner.String(),
			"role":  r.roles.AuthenticatedRole,
			"email": a.Email,
		})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "SELECT set_config('request.jwt.claims', $1, true)", string(claims)); err != nil {
			return fmt.Errorf("set claims: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Insert stores html for owner and returns the generated slug.
func (r *PortfolioRepo) Insert(ctx context.Context, a entity.Access, html string, owner *uuid.UUID) (string, error) {
	var slug string
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &slug, `INSERT INTO portfolios (html, user_id) VALUES ($1, $2) RETURNING slug`, html, owner)
	})
	return slug, err
}

// Update replaces html (and owner when given) of the row with slug.
func (r *PortfolioRepo) Update(ctx context.Context, a entity.Access, slug, html string, owner *uuid.UUID) (string, error) {
	var out string
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		const q = `UPDATE portfolios SET html = $1, user_id = COALESCE($2, user_id) WHERE slug = $3 RETURNING slug`
		return tx.GetContext(ctx, &out, q, html, owner, slug)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	return out, err
}

func (r *PortfolioRepo) Get(ctx context.Context, a entity.Access, slug string) (*entity.Portfolio, error) {
	var p entity.Portfolio
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &p, `SELECT id, slug, html, user_id, created_at FROM portfolios WHERE slug = $1`, slug)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PortfolioRepo) Delete(ctx context.Context, a entity.Access, slug string) error {
	var id int64
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &id, `DELETE FROM portfolios WHERE slug = $1 RETURNING id`, slug)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

func (r *PortfolioRepo) Exists(ctx context.Context, a entity.Access, slug string) (bool, error) {
	var exists bool
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM portfolios WHERE slug = $1)`, slug)
	})
	return exists, err
}

// Rename moves the row at oldSlug to newSlug. A duplicate newSlug surfaces
// as the driver's unique-violation error.
func (r *PortfolioRepo) Rename(ctx context.Context, a entity.Access, oldSlug, newSlug string) error {
	var id int64
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &id, `UPDATE portfolios SET slug = $1 WHERE slug = $2 RETURNING id`, newSlug, oldSlug)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

// ListByOwner returns the owner's portfolios, newest first.
func (r *PortfolioRepo) ListByOwner(ctx context.Context, a entity.Access, owner uuid.UUID) ([]entity.Summary, error) {
	out := []entity.Summary{}
	err := r.inScope(ctx, a, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out,
			`SELECT id, slug, created_at FROM portfolios WHERE user_id = $1 ORDER BY created_at DESC`, owner)
	})
	return out, err
}
