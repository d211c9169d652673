package repo

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio/entity"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/database"
)

var supabaseRoles = config.StoreConfig{
	SwitchRoles:       true,
	AnonRole:          "anon",
	AuthenticatedRole: "authenticated",
	ServiceRole:       "service_role",
}

func newMockRepo(t *testing.T, roles config.StoreConfig) (*PortfolioRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPortfolioRepo(sqlx.NewDb(db, "postgres"), roles), mock
}

// claimsFor matches the request.jwt.claims payload of one caller.
type claimsFor struct {
	sub, role, email string
}

func (c claimsFor) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(s), &got); err != nil {
		return false
	}
	return got["sub"] == c.sub && got["role"] == c.role && got["email"] == c.email
}

const (
	insertSQL = `INSERT INTO portfolios (html, user_id) VALUES ($1, $2) RETURNING slug`
	claimsSQL = `SELECT set_config('request.jwt.claims', $1, true)`
)

func TestInScopeBearer(t *testing.T) {
	r, mock := newMockRepo(t, supabaseRoles)
	owner := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL ROLE "authenticated"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(claimsSQL).
		WithArgs(claimsFor{sub: owner.String(), role: "authenticated", email: "sara@example.com"}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertSQL).
		WithArgs("<html></html>", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("a1b2c3d4"))
	mock.ExpectCommit()

	slug, err := r.Insert(context.Background(),
		entity.Access{Scope: entity.ScopeBearer, Owner: &owner, Email: "sara@example.com"}, "<html></html>", &owner)
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", slug)
}

func TestInScopeAnonymousAndService(t *testing.T) {
	for _, tc := range []struct {
		scope entity.Scope
		role  string
	}{
		{entity.ScopeAnonymous, `"anon"`},
		{entity.ScopeService, `"service_role"`},
	} {
		t.Run(tc.scope.String(), func(t *testing.T) {
			r, mock := newMockRepo(t, supabaseRoles)

			mock.ExpectBegin()
			mock.ExpectExec(`SET LOCAL ROLE ` + tc.role).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT EXISTS (SELECT 1 FROM portfolios WHERE slug = $1)`).
				WithArgs("sara").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			mock.ExpectCommit()

			ok, err := r.Exists(context.Background(), entity.Access{Scope: tc.scope}, "sara")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestInScopeWithoutRoleSwitching(t *testing.T) {
	r, mock := newMockRepo(t, config.StoreConfig{AuthenticatedRole: "authenticated"})
	owner := uuid.New()

	// claims are still published for bearer callers
	mock.ExpectBegin()
	mock.ExpectExec(claimsSQL).
		WithArgs(claimsFor{sub: owner.String(), role: "authenticated"}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`DELETE FROM portfolios WHERE slug = $1 RETURNING id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := r.Delete(context.Background(), entity.Access{Scope: entity.ScopeBearer, Owner: &owner}, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInScopeRoleRejected(t *testing.T) {
	r, mock := newMockRepo(t, supabaseRoles)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL ROLE "anon"`).WillReturnError(&pq.Error{Code: database.CodeInsufficientPrivilege})
	mock.ExpectRollback()

	_, err := r.Insert(context.Background(), entity.Access{}, "<html></html>", nil)
	require.Error(t, err)
	assert.True(t, database.IsInsufficientPrivilege(err), "got %v", err)
}
