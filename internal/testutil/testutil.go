// Package testutil holds helpers shared by unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateAll empties every application table and restarts identities.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE incidents, users RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a regular user with a unique email. The hash is a
// placeholder; tests that log in must hash a real password.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	return &model.User{
		Email:        UniqueEmail("user"),
		PasswordHash: "placeholder-hash",
		Role:         model.RoleRegular,
	}
}

// NewTestAdmin creates an admin user with a unique email.
func NewTestAdmin(t testing.TB) *model.User {
	t.Helper()
	user := NewTestUser(t)
	user.Email = UniqueEmail("admin")
	user.Role = model.RoleAdmin
	return user
}

// NewTestIncident creates an open incident with sensible defaults.
func NewTestIncident(t testing.TB, title string) *model.Incident {
	t.Helper()
	return &model.Incident{
		Title:     title,
		Status:    model.StatusOpen,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
