package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/server/auth"
	"github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
)

// Authenticator resolves an access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*store.User, error)
}

// Authenticate requires a valid Bearer token, or a token query parameter,
// and stores the user in the request context.
func Authenticate(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			token := auth.ExtractToken(req.Header.Get(echo.HeaderAuthorization), c.QueryParam("token"))
			if token == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return errors.Unauthorized("missing access token")
			}
			user, err := a.Authenticate(req.Context(), token)
			if err != nil {
				if errors.IsCode(err, errors.ErrCodeUnauthorized) {
					c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				}
				return err
			}

			if reqCtx, ok := observability.FromContext(req.Context()); ok {
				reqCtx.UserID = user.ID
			}
			c.SetRequest(req.WithContext(auth.WithUser(req.Context(), user)))
			return next(c)
		}
	}
}

// RequireAdmin rejects authenticated users without the admin role.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := auth.GetUser(c.Request().Context())
			if user == nil {
				return errors.Unauthorized("missing access token")
			}
			if user.Role != store.RoleAdmin {
				return errors.Forbidden("admin role required")
			}
			return next(c)
		}
	}
}
