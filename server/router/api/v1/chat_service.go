package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ispkb/server/auth"
	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
)

type chatMessageRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id" validate:"max=64"`
}

type chatHistoryResponse struct {
	ID             int32          `json:"id"`
	SessionID      string         `json:"session_id"`
	Role           store.ChatRole `json:"role"`
	Content        string         `json:"content"`
	ResponseTimeMs int32          `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type chatSessionResponse struct {
	SessionID       string         `json:"session_id"`
	LastMessage     string         `json:"last_message"`
	LastMessageRole store.ChatRole `json:"last_message_role"`
	LastMessageTime time.Time      `json:"last_message_time"`
	MessageCount    int32          `json:"message_count"`
}

func (s *APIV1Service) SendChatMessage(c echo.Context) error {
	var req chatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	reply, err := s.ChatService.SendMessage(ctx, auth.GetUserID(ctx), req.SessionID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

// StreamChatMessage answers as server-sent events: one unnamed event per
// chunk, then a "done" event carrying the full reply. Failures before the
// first chunk are ordinary error responses; later ones become an "error" event.
func (s *APIV1Service) StreamChatMessage(c echo.Context) error {
	var req chatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		header := c.Response().Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set(echo.HeaderCacheControl, "no-cache")
		header.Set("Connection", "keep-alive")
		c.Response().WriteHeader(http.StatusOK)
	}

	reply, err := s.ChatService.StreamMessage(ctx, auth.GetUserID(ctx), req.SessionID, req.Message, func(chunk string) error {
		start()
		return writeEvent(c, "", map[string]string{"content": chunk})
	})
	if err != nil {
		if !started {
			return err
		}
		code := apierrors.GetCodeFromError(err, apierrors.ErrCodeInternal)
		msg := "stream failed"
		if apiErr, ok := apierrors.As(err); ok {
			msg = apiErr.Message
		}
		return writeEvent(c, "error", map[string]string{"error_code": string(code), "message": msg})
	}
	start()
	return writeEvent(c, "done", reply)
}

func writeEvent(c echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	w := c.Response()
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func (s *APIV1Service) ListChatHistory(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	messages, err := s.ChatService.History(ctx, auth.GetUserID(ctx), c.QueryParam("session_id"), limit)
	if err != nil {
		return err
	}
	result := make([]*chatHistoryResponse, 0, len(messages))
	for _, m := range messages {
		result = append(result, &chatHistoryResponse{
			ID:             m.ID,
			SessionID:      m.SessionID,
			Role:           m.Role,
			Content:        m.Content,
			ResponseTimeMs: m.ResponseTimeMs,
			CreatedAt:      time.Unix(m.CreatedTs, 0).UTC(),
		})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) ListChatSessions(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	sessions, err := s.ChatService.Sessions(ctx, auth.GetUserID(ctx), limit)
	if err != nil {
		return err
	}
	result := make([]*chatSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, &chatSessionResponse{
			SessionID:       session.SessionID,
			LastMessage:     session.LastMessage,
			LastMessageRole: session.LastMessageRole,
			LastMessageTime: time.Unix(session.LastMessageTs, 0).UTC(),
			MessageCount:    session.MessageCount,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": result})
}

func (s *APIV1Service) DeleteChatSession(c echo.Context) error {
	ctx := c.Request().Context()
	deleted, err := s.ChatService.DeleteSession(ctx, auth.GetUserID(ctx), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": fmt.Sprintf("deleted %d messages", deleted),
		"deleted": deleted,
	})
}
