// Package portfolio persists published documents under their slug and
// decides which store privileges each request runs with.
package portfolio

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/auth"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio/entity"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/database"
)

// Store is the persistence the service needs; repo.PortfolioRepo implements it.
type Store interface {
	Insert(ctx context.Context, a entity.Access, html string, owner *uuid.UUID) (string, error)
	Update(ctx context.Context, a entity.Access, slug, html string, owner *uuid.UUID) (string, error)
	Get(ctx context.Context, a entity.Access, slug string) (*entity.Portfolio, error)
	Delete(ctx context.Context, a entity.Access, slug string) error
	Exists(ctx context.Context, a entity.Access, slug string) (bool, error)
	Rename(ctx context.Context, a entity.Access, oldSlug, newSlug string) error
	ListByOwner(ctx context.Context, a entity.Access, owner uuid.UUID) ([]entity.Summary, error)
}

const (
	minSlugLen = 3
	maxSlugLen = 50
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

var (
	ErrPortfolioNotFound = apperr.WithMessage(apperr.ErrNotFound, "Portfolio not found")
	ErrSlugTaken         = apperr.WithMessage(apperr.ErrConflict, "This URL name is already taken. Please choose another one.")
)

// Service is the store gateway used by the portfolio endpoints.
type Service struct {
	store       Store
	verifier    auth.Verifier
	serviceRole bool
	logger      *zap.SugaredLogger
}

// NewService wires the gateway. serviceRole reports whether a privileged
// store context is configured for the whole process.
func NewService(store Store, verifier auth.Verifier, serviceRole bool, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, verifier: verifier, serviceRole: serviceRole, logger: logger}
}

// Resolve picks the access scope for one request: service when configured,
// otherwise the bearer token's owner when it verifies, otherwise anonymous.
// claimed is the owner id the caller put in the request; it is trusted in
// service and anonymous scope and replaced by the verified subject in bearer
// scope. An expired or forged token downgrades silently to anonymous.
func (s *Service) Resolve(ctx context.Context, token string, claimed *uuid.UUID) entity.Access {
	if s.serviceRole {
		return entity.Access{Scope: entity.ScopeService, Owner: claimed}
	}
	if token != "" && s.verifier != nil {
		id, err := s.verifier.Verify(ctx, token)
		if err == nil {
			return entity.Access{Scope: entity.ScopeBearer, Owner: &id.Subject, Email: id.Email}
		}
		s.logger.Infow("bearer token rejected, continuing as anonymous", "err", err)
	}
	return entity.Access{Scope: entity.ScopeAnonymous, Owner: claimed}
}

// PublishResult reports where a document was saved.
type PublishResult struct {
	Slug    string
	Updated bool
	IsGuest bool
}

// Publish updates the portfolio at slug, or creates a new one when slug is
// empty. A create rejected by the store's row policies is retried once as an
// anonymous guest without owner.
func (s *Service) Publish(ctx context.Context, a entity.Access, html, slug string) (*PublishResult, error) {
	if strings.TrimSpace(html) == "" {
		return nil, apperr.Validation("No HTML provided")
	}

	if slug != "" {
		out, err := s.store.Update(ctx, a, slug, html, a.Owner)
		if err != nil {
			return nil, s.notFound(err)
		}
		s.logger.Infow("portfolio updated", "slug", out, "scope", a.Scope, "owner", a.Owner)
		return &PublishResult{Slug: out, Updated: true}, nil
	}

	out, err := s.store.Insert(ctx, a, html, a.Owner)
	if err == nil {
		s.logger.Infow("portfolio created", "slug", out, "scope", a.Scope, "owner", a.Owner)
		return &PublishResult{Slug: out}, nil
	}
	if !database.IsInsufficientPrivilege(err) {
		return nil, err
	}

	s.logger.Warnw("insert denied by store policy, retrying as guest", "scope", a.Scope, "err", err)
	out, err = s.store.Insert(ctx, entity.Access{Scope: entity.ScopeAnonymous}, html, nil)
	if err != nil {
		return nil, err
	}
	return &PublishResult{Slug: out, IsGuest: true}, nil
}

func (s *Service) Fetch(ctx context.Context, a entity.Access, slug string) (*entity.Portfolio, error) {
	p, err := s.store.Get(ctx, a, slug)
	if err != nil {
		return nil, s.notFound(err)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, a entity.Access, slug string) error {
	if err := s.store.Delete(ctx, a, slug); err != nil {
		return s.notFound(err)
	}
	s.logger.Infow("portfolio deleted", "slug", slug, "scope", a.Scope)
	return nil
}

// ValidateSlug checks the format first, then the length.
func ValidateSlug(slug string) error {
	if slug == "" {
		return apperr.Validation("New slug is required")
	}
	if !slugPattern.MatchString(slug) {
		return apperr.Validation("Invalid slug format. Use only lowercase letters, numbers, and hyphens.")
	}
	if len(slug) < minSlugLen || len(slug) > maxSlugLen {
		return apperr.Validation("Slug must be between 3 and 50 characters")
	}
	return nil
}

// Rename moves a portfolio to newSlug. A taken slug is a conflict whether the
// pre-flight check or the unique index catches it.
func (s *Service) Rename(ctx context.Context, a entity.Access, oldSlug, newSlug string) error {
	if err := ValidateSlug(newSlug); err != nil {
		return err
	}
	taken, err := s.store.Exists(ctx, a, newSlug)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlugTaken
	}
	if err := s.store.Rename(ctx, a, oldSlug, newSlug); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return s.notFound(err)
	}
	s.logger.Infow("portfolio renamed", "from", oldSlug, "to", newSlug, "scope", a.Scope)
	return nil
}

// ListByOwner returns the owner's portfolios, newest first.
func (s *Service) ListByOwner(ctx context.Context, a entity.Access, owner string) ([]entity.Summary, error) {
	id, err := uuid.Parse(owner)
	if err != nil {
		return nil, apperr.Validation("Invalid user id")
	}
	return s.store.ListByOwner(ctx, a, id)
}

func (s *Service) notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrPortfolioNotFound
	}
	return err
}
