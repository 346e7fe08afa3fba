package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ispkb/server/auth"
	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type userResponse struct {
	ID        int32      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      store.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func convertUser(u *store.User) *userResponse {
	return &userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: time.Unix(u.CreatedTs, 0).UTC(),
	}
}

type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *userResponse `json:"user"`
}

func (s *APIV1Service) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, token, err := s.AuthService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if apierrors.IsCode(err, apierrors.ErrCodeUnauthorized) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: convertUser(user)})
}

func (s *APIV1Service) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, token, err := s.AuthService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: convertUser(user)})
}

func (*APIV1Service) GetCurrentUser(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return apierrors.Unauthorized("authentication required")
	}
	return c.JSON(http.StatusOK, convertUser(user))
}
