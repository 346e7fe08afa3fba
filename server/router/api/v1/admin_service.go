package v1

import (
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/server/auth"
	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/server/stats"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

// chatLogPreview is how many runes of a message the chat log shows.
const chatLogPreview = 100

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

type updateUserRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	Email    *string `json:"email" validate:"omitnil,omitempty,email"`
	Password *string `json:"password" validate:"omitnil,min=6,max=72"`
	Role     *string `json:"role" validate:"omitnil,oneof=admin user"`
	IsActive *bool   `json:"is_active"`
}

type chatLogResponse struct {
	ID             int32          `json:"id"`
	User           string         `json:"user"`
	SessionID      string         `json:"session_id"`
	MessageType    store.ChatRole `json:"message_type"`
	Content        string         `json:"content"`
	ResponseTimeMs int32          `json:"response_time_ms"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (s *APIV1Service) ListUsers(c echo.Context) error {
	skip, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	users, err := s.Store.ListUsers(c.Request().Context(), &store.FindUser{
		Pagination: store.Pagination{Limit: &limit, Offset: &skip},
	})
	if err != nil {
		return apierrors.Internal("failed to list users", err)
	}
	result := make([]*userResponse, 0, len(users))
	for _, u := range users {
		result = append(result, convertUser(u))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role := store.RoleUser
	if req.Role != "" {
		role = store.Role(req.Role)
	}
	user, err := s.AuthService.CreateUser(c.Request().Context(), req.Username, req.Email, req.Password, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convertUser(user))
}

func (s *APIV1Service) getUser(c echo.Context) (*store.User, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return nil, apierrors.InvalidArgument("user id must be an integer").WithContext("id", c.Param("id"))
	}
	userID := int32(id)
	user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{ID: &userID})
	if err != nil {
		return nil, apierrors.Internal("failed to get user", err)
	}
	if user == nil {
		return nil, apierrors.NotFound("user not found").WithContext("id", userID)
	}
	return user, nil
}

func (s *APIV1Service) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := s.getUser(c)
	if err != nil {
		return err
	}

	update := &store.UpdateUser{ID: user.ID, IsActive: req.IsActive}
	if req.Username != nil && *req.Username != user.Username {
		taken, err := s.Store.GetUser(ctx, &store.FindUser{Username: req.Username})
		if err != nil {
			return apierrors.Internal("failed to find user", err)
		}
		if taken != nil {
			return apierrors.Conflict("username already exists").WithContext("username", *req.Username)
		}
		update.Username = req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if *req.Email != "" {
			taken, err := s.Store.GetUser(ctx, &store.FindUser{Email: req.Email})
			if err != nil {
				return apierrors.Internal("failed to find user", err)
			}
			if taken != nil {
				return apierrors.Conflict("email already exists").WithContext("email", *req.Email)
			}
		}
		update.Email = req.Email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return apierrors.Internal("failed to hash password", err)
		}
		update.PasswordHash = &hash
	}
	if req.Role != nil {
		role := store.Role(*req.Role)
		update.Role = &role
	}

	updated, err := s.Store.UpdateUser(ctx, update)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apierrors.Conflict("user already exists")
		}
		return apierrors.Internal("failed to update user", err)
	}
	return c.JSON(http.StatusOK, convertUser(updated))
}

// DeleteUser removes a user other than the caller.
func (s *APIV1Service) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := s.getUser(c)
	if err != nil {
		return err
	}
	if user.ID == auth.GetUserID(ctx) {
		return apierrors.InvalidArgument("cannot delete yourself")
	}
	if err := s.Store.DeleteUser(ctx, &store.DeleteUser{ID: user.ID}); err != nil {
		return apierrors.Internal("failed to delete user", err)
	}
	return message(c, "user deleted")
}

func (s *APIV1Service) GetSystemStats(c echo.Context) error {
	overview, err := s.StatsCollector.Overview(c.Request().Context())
	if err != nil {
		return apierrors.Internal("failed to collect statistics", err)
	}
	return c.JSON(http.StatusOK, overview)
}

func (s *APIV1Service) GetDailyStats(c echo.Context) error {
	days, err := queryInt(c, "days", stats.DefaultDays)
	if err != nil {
		return err
	}
	if days < 1 || days > stats.MaxDays {
		return apierrors.InvalidArgument("days must be between 1 and 30").WithContext("days", days)
	}
	daily, err := s.StatsCollector.Daily(c.Request().Context(), days)
	if err != nil {
		return apierrors.Internal("failed to collect daily statistics", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"daily_stats": daily})
}

// ClearCache clears one cache class, or every class for cache_type=all.
func (s *APIV1Service) ClearCache(c echo.Context) error {
	ctx := c.Request().Context()
	cacheType := c.QueryParam("cache_type")
	var cleared bool
	if cacheType == "all" {
		cleared = s.Cache.ClearAll(ctx)
	} else {
		class, ok := cache.ParseClass(cacheType)
		if !ok {
			return apierrors.InvalidArgument("cache_type must be one of knowledge, flow, search, chat or all").
				WithContext("cache_type", cacheType)
		}
		cacheType = string(class)
		cleared = s.Cache.Invalidate(ctx, class)
	}

	msg := cacheType + " cache cleared"
	if !cleared {
		msg = cacheType + " cache could not be fully cleared; entries expire by TTL"
	}
	return c.JSON(http.StatusOK, map[string]any{"message": msg, "cleared": cleared})
}

func (s *APIV1Service) GetCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Cache.Manager().Stats(c.Request().Context()))
}

// ListChatLogs lists every user's messages, newest first, with long
// contents cut to a preview.
func (s *APIV1Service) ListChatLogs(c echo.Context) error {
	skip, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	messages, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{
		Latest:     true,
		Pagination: store.Pagination{Limit: &limit, Offset: &skip},
	})
	if err != nil {
		return apierrors.Internal("failed to list chat logs", err)
	}
	logs := make([]*chatLogResponse, 0, len(messages))
	for _, m := range messages {
		logs = append(logs, &chatLogResponse{
			ID:             m.ID,
			User:           m.Username,
			SessionID:      m.SessionID,
			MessageType:    m.Role,
			Content:        preview(m.Content, chatLogPreview),
			ResponseTimeMs: m.ResponseTimeMs,
			CreatedAt:      time.Unix(m.CreatedTs, 0).UTC(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"logs": logs})
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
