package database

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	rls := &pq.Error{Code: "42501", Message: "new row violates row-level security policy"}
	dup := &pq.Error{Code: "23505", Message: "duplicate key value"}

	assert.True(t, IsInsufficientPrivilege(rls))
	assert.True(t, IsInsufficientPrivilege(fmt.Errorf("insert: %w", rls)))
	assert.False(t, IsInsufficientPrivilege(dup))
	assert.True(t, IsUniqueViolation(dup))
	assert.False(t, IsUniqueViolation(errors.New("42501")))
	assert.False(t, HasCode(nil, CodeUniqueViolation))
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, "'Asia/Riyadh'", quoteOption("Asia/Riyadh"))
	assert.Equal(t, `'o\'clock'`, quoteOption("o'clock"))
	assert.Equal(t, `"service_role"`, QuoteIdent("service_role"))
}

func TestWithTimeZone(t *testing.T) {
	t.Run("empty zone leaves dsn alone", func(t *testing.T) {
		dsn, err := withTimeZone("postgres://u:p@localhost/db?sslmode=disable", "")
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@localhost/db?sslmode=disable", dsn)
	})

	t.Run("url form", func(t *testing.T) {
		dsn, err := withTimeZone("postgres://u:p@localhost:5432/db?sslmode=disable", "Asia/Riyadh")
		require.NoError(t, err)
		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "Asia/Riyadh", u.Query().Get("timezone"))
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
		assert.Equal(t, "localhost:5432", u.Host)
	})

	t.Run("key value form", func(t *testing.T) {
		dsn, err := withTimeZone("host=localhost dbname=db ", "UTC")
		require.NoError(t, err)
		assert.Equal(t, "host=localhost dbname=db timezone='UTC'", dsn)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := withTimeZone("postgres://u:p@[::1/db", "UTC")
		assert.Error(t, err)
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "postgres://u:p@db.example.co:5432/postgres")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://u:p@db.example.co:5432/postgres", cfg.DSN)

	t.Setenv("DATABASE_URL", "postgres://primary")
	assert.Equal(t, "postgres://primary", ConfigFromEnv().DSN)
}
