package store

import "context"

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	ID             int32
	UserID         int32
	SessionID      string
	Role           ChatRole
	Content        string
	ResponseTimeMs int32
	CreatedTs      int64

	// Username is filled when listing across users.
	Username string
}

type FindChatMessage struct {
	UserID    *int32
	SessionID *string
	// Latest returns the newest messages first.
	Latest bool
	Pagination
}

type DeleteChatMessage struct {
	UserID    int32
	SessionID string
}

// ChatSession summarizes the messages a user exchanged under one session id.
type ChatSession struct {
	SessionID       string
	LastMessage     string
	LastMessageRole ChatRole
	LastMessageTs   int64
	MessageCount    int32
}

type FindChatSession struct {
	UserID int32
	Pagination
}

func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

// ListChatMessages returns messages oldest first unless find.Latest is set.
func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

// DeleteChatMessages removes a user's session and reports how many messages went.
func (s *Store) DeleteChatMessages(ctx context.Context, delete *DeleteChatMessage) (int64, error) {
	return s.driver.DeleteChatMessages(ctx, delete)
}

// ListChatSessions returns the user's sessions, most recently active first.
func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}
