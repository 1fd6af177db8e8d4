package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a();\n-- +migrate Down\nDROP TABLE a;"
	assert.Equal(t, "\nCREATE TABLE a();\n", upSection(content))
	assert.Equal(t, "CREATE TABLE b();", upSection("CREATE TABLE b();"))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	content, err := migrationFS.ReadFile("migrations/0001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, upSection(string(content)), "group_memberships_group_user_key")
	assert.NotContains(t, upSection(string(content)), "DROP TABLE")
}

func TestEmbeddedLockoutMigration(t *testing.T) {
	content, err := migrationFS.ReadFile("migrations/0002_auth_lockouts.sql")
	assert.NoError(t, err)
	assert.Contains(t, upSection(string(content)), "auth_lockouts")
	assert.NotContains(t, upSection(string(content)), "DROP TABLE")
}
