package auth

import (
	"context"

	"github.com/hrygo/ispkb/store"
)

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns the authenticated user, or nil.
func GetUser(ctx context.Context) *store.User {
	user, _ := ctx.Value(userKey{}).(*store.User)
	return user
}

// GetUserID returns the authenticated user's id, or 0 for anonymous requests.
func GetUserID(ctx context.Context) int32 {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return 0
}
