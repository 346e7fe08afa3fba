package test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/internal/version"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/db"
)

// NewTestingStore opens a migrated SQLite store in a temporary directory.
// Demo mode loads the sample knowledge base and flow versions.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return newTestingStore(ctx, t, "demo")
}

// NewEmptyTestingStore opens a migrated store without sample data.
func NewEmptyTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return newTestingStore(ctx, t, "dev")
}

func newTestingStore(ctx context.Context, t *testing.T, mode string) *store.Store {
	t.Helper()
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:    mode,
		Data:    dir,
		DSN:     filepath.Join(dir, fmt.Sprintf("ispkb_%s.db", mode)),
		Driver:  "sqlite",
		Version: version.GetCurrentVersion(mode),
	}
	dbDriver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	s := store.New(dbDriver, p)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func createTestingUser(ctx context.Context, s *store.Store, username string, role store.Role) (*store.User, error) {
	return s.CreateUser(ctx, &store.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
	})
}
