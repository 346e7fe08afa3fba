package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
	teststore "github.com/hrygo/ispkb/store/test"
)

func newTestService(ctx context.Context, t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s := teststore.NewEmptyTestingStore(ctx, t)
	return NewService(s, NewTokenIssuer("test-secret", time.Minute)), s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(ctx, t)

	user, token, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, store.RoleUser, user.Role)
	assert.NotEmpty(t, token)

	authed, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, token, err = svc.Login(ctx, "alice", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUnauthorized))
	_, _, err = svc.Login(ctx, "nobody", "s3cret!")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUnauthorized))
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(ctx, t)

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "alice", "other@example.com", "pw")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeConflict))
	_, _, err = svc.Register(ctx, "bob", "alice@example.com", "pw")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeConflict))

	// Empty emails never collide.
	_, _, err = svc.Register(ctx, "carol", "", "pw")
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "dave", "", "pw")
	require.NoError(t, err)
}

func TestDisabledUser(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(ctx, t)

	user, token, err := svc.Register(ctx, "alice", "", "pw")
	require.NoError(t, err)
	inactive := false
	_, err = s.UpdateUser(ctx, &store.UpdateUser{ID: user.ID, IsActive: &inactive})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "pw")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeForbidden))
	_, err = svc.Authenticate(ctx, token)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeForbidden))
}

func TestAuthenticateDeletedUser(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(ctx, t)

	user, token, err := svc.Register(ctx, "alice", "", "pw")
	require.NoError(t, err)
	require.NoError(t, s.DeleteUser(ctx, &store.DeleteUser{ID: user.ID}))

	_, err = svc.Authenticate(ctx, token)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUnauthorized))

	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUnauthorized))
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(ctx, t)

	require.NoError(t, svc.BootstrapAdmin(ctx, "", ""))
	require.Error(t, svc.BootstrapAdmin(ctx, "admin", ""))

	require.NoError(t, svc.BootstrapAdmin(ctx, "admin", "admin123"))
	_, token, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	admin, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, admin.Role)

	// An existing admin keeps the bootstrap from running again.
	require.NoError(t, svc.BootstrapAdmin(ctx, "root", "changeme"))
	users, err := s.ListUsers(ctx, &store.FindUser{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
