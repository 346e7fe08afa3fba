package chat

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/plugin/ai"
	"github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/server/search"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

const (
	// historyMessages is how many earlier messages of the session go to the model.
	historyMessages = 10
	// contextItems is how many ranked knowledge items ground the answer.
	contextItems = 5

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	DefaultSessionLimit = 20
	MaxSessionLimit     = 100
)

// Source is a knowledge item the answer was grounded in.
type Source struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Category     string `json:"category,omitempty"`
	ExternalLink string `json:"external_link,omitempty"`
}

// Reply is the assistant's answer to one message.
type Reply struct {
	Response       string    `json:"response"`
	SessionID      string    `json:"session_id"`
	ResponseTimeMs int32     `json:"response_time_ms"`
	Sources        []*Source `json:"sources"`
}

// Session is the snapshot cached under the session id after every exchange.
type Session struct {
	UserID       int32  `json:"user_id"`
	LastMessage  string `json:"last_message"`
	LastResponse string `json:"last_response"`
}

// Service runs chat exchanges grounded in the knowledge base.
type Service struct {
	store   *store.Store
	cache   *cache.Domain
	llm     ai.LLMService
	metrics *observability.Metrics
}

// NewService creates a chat service. A nil llm makes every exchange fail
// with an upstream error while history and sessions keep working.
func NewService(s *store.Store, c *cache.Domain, llm ai.LLMService, m *observability.Metrics) *Service {
	return &Service{store: s, cache: c, llm: llm, metrics: m}
}

// exchange is a prepared prompt waiting for the model's answer.
type exchange struct {
	userID    int32
	sessionID string
	message   string
	messages  []ai.Message
	sources   []*Source
}

func (s *Service) prepare(ctx context.Context, userID int32, sessionID, message string) (*exchange, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.InvalidArgument("message is required")
	}
	if s.llm == nil {
		return nil, errors.Upstream("AI service is not configured", nil)
	}
	if sessionID == "" {
		sessionID = shortuuid.New()
	}

	history, err := s.history(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	knowledge, sources, err := s.knowledgeContext(ctx, message)
	if err != nil {
		return nil, err
	}
	return &exchange{
		userID:    userID,
		sessionID: sessionID,
		message:   message,
		messages:  ai.FormatMessages(ai.AnswerSystemPrompt(knowledge), message, history),
		sources:   sources,
	}, nil
}

// history returns the latest messages of the session, oldest first.
func (s *Service) history(ctx context.Context, userID int32, sessionID string) ([]ai.Message, error) {
	limit := historyMessages
	messages, err := s.store.ListChatMessages(ctx, &store.FindChatMessage{
		UserID:     &userID,
		SessionID:  &sessionID,
		Latest:     true,
		Pagination: store.Pagination{Limit: &limit},
	})
	if err != nil {
		return nil, errors.Internal("failed to load chat history", err)
	}
	slices.Reverse(messages)

	history := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == store.ChatRoleUser {
			history = append(history, ai.UserMessage(m.Content))
		} else {
			history = append(history, ai.AssistantMessage(m.Content))
		}
	}
	return history, nil
}

// knowledgeContext ranks knowledge items against the message's keywords and
// renders the best ones as "title\ndescription" blocks.
func (s *Service) knowledgeContext(ctx context.Context, message string) (string, []*Source, error) {
	keywords := ai.ExtractKeywords(message)
	if len(keywords) == 0 {
		return "", []*Source{}, nil
	}
	items, err := s.store.ListKnowledgeItems(ctx, &store.FindKnowledgeItem{
		Keywords:           keywords,
		ActiveCategoryOnly: true,
	})
	if err != nil {
		return "", nil, errors.Internal("failed to load knowledge context", err)
	}

	ranked := search.Rank(search.NewQuery(strings.Join(keywords, " ")), items, contextItems)
	blocks := make([]string, 0, len(ranked))
	sources := make([]*Source, 0, len(ranked))
	for _, r := range ranked {
		item := r.Record
		blocks = append(blocks, item.Title+"\n"+item.Description)
		sources = append(sources, &Source{
			Type:         "knowledge",
			Title:        item.Title,
			Category:     item.CategoryTitle,
			ExternalLink: item.ExternalLink,
		})
	}
	return strings.Join(blocks, "\n\n"), sources, nil
}

// finish stores both sides of the exchange and refreshes the session snapshot.
func (s *Service) finish(ctx context.Context, ex *exchange, response string, elapsed time.Duration) (*Reply, error) {
	responseTimeMs := int32(elapsed.Milliseconds())
	if _, err := s.store.CreateChatMessage(ctx, &store.ChatMessage{
		UserID:    ex.userID,
		SessionID: ex.sessionID,
		Role:      store.ChatRoleUser,
		Content:   ex.message,
	}); err != nil {
		return nil, errors.Internal("failed to save message", err)
	}
	if _, err := s.store.CreateChatMessage(ctx, &store.ChatMessage{
		UserID:         ex.userID,
		SessionID:      ex.sessionID,
		Role:           store.ChatRoleAssistant,
		Content:        response,
		ResponseTimeMs: responseTimeMs,
	}); err != nil {
		return nil, errors.Internal("failed to save response", err)
	}

	s.cache.SetChatSession(ctx, ex.sessionID, &Session{
		UserID:       ex.userID,
		LastMessage:  ex.message,
		LastResponse: response,
	})
	return &Reply{
		Response:       response,
		SessionID:      ex.sessionID,
		ResponseTimeMs: responseTimeMs,
		Sources:        ex.sources,
	}, nil
}

// SendMessage answers message within the session, starting a new session
// when sessionID is empty. Model failures are reported as upstream errors
// and leave the session untouched.
func (s *Service) SendMessage(ctx context.Context, userID int32, sessionID, message string) (*Reply, error) {
	ex, err := s.prepare(ctx, userID, sessionID, message)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.llm.Chat(ctx, ex.messages)
	elapsed := time.Since(start)
	s.metrics.RecordLLMCall(err, elapsed)
	if err != nil {
		observability.Logger(ctx).Warn("chat completion failed",
			slog.String("session_id", ex.sessionID),
			slog.String("error", err.Error()))
		return nil, errors.Upstream("AI service error", err)
	}
	return s.finish(ctx, ex, result.Content, elapsed)
}

// StreamMessage works like SendMessage but hands every chunk of the answer
// to onChunk as it arrives. The exchange is stored once the stream ends.
func (s *Service) StreamMessage(ctx context.Context, userID int32, sessionID, message string, onChunk func(string) error) (*Reply, error) {
	ex, err := s.prepare(ctx, userID, sessionID, message)
	if err != nil {
		return nil, err
	}

	// Cancelling stops the producer when onChunk gives up early.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	chunks, errc := s.llm.ChatStream(streamCtx, ex.messages)
	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return nil, err
		}
	}
	err = <-errc
	elapsed := time.Since(start)
	s.metrics.RecordLLMCall(err, elapsed)
	if err != nil {
		return nil, errors.Upstream("AI service error", err)
	}
	if sb.Len() == 0 {
		return nil, errors.Upstream("AI service error", ai.ErrEmptyResponse)
	}
	return s.finish(ctx, ex, sb.String(), elapsed)
}

// History returns the user's latest messages, oldest first, optionally
// restricted to one session.
func (s *Service) History(ctx context.Context, userID int32, sessionID string, limit int) ([]*store.ChatMessage, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, errors.InvalidArgument("limit must be between 1 and 200").WithContext("limit", limit)
	}
	find := &store.FindChatMessage{
		UserID:     &userID,
		Latest:     true,
		Pagination: store.Pagination{Limit: &limit},
	}
	if sessionID != "" {
		find.SessionID = &sessionID
	}
	messages, err := s.store.ListChatMessages(ctx, find)
	if err != nil {
		return nil, errors.Internal("failed to list chat history", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

// Sessions lists the user's sessions, most recently active first.
func (s *Service) Sessions(ctx context.Context, userID int32, limit int) ([]*store.ChatSession, error) {
	if limit == 0 {
		limit = DefaultSessionLimit
	}
	if limit < 1 || limit > MaxSessionLimit {
		return nil, errors.InvalidArgument("limit must be between 1 and 100").WithContext("limit", limit)
	}
	sessions, err := s.store.ListChatSessions(ctx, &store.FindChatSession{
		UserID:     userID,
		Pagination: store.Pagination{Limit: &limit},
	})
	if err != nil {
		return nil, errors.Internal("failed to list chat sessions", err)
	}
	return sessions, nil
}

// CachedSession returns the snapshot of the session's last exchange, if cached.
func (s *Service) CachedSession(ctx context.Context, sessionID string) (*Session, bool) {
	var session Session
	if !s.cache.GetChatSession(ctx, sessionID, &session) {
		return nil, false
	}
	return &session, true
}

// DeleteSession removes the user's messages of the session and reports how
// many were deleted.
func (s *Service) DeleteSession(ctx context.Context, userID int32, sessionID string) (int64, error) {
	deleted, err := s.store.DeleteChatMessages(ctx, &store.DeleteChatMessage{UserID: userID, SessionID: sessionID})
	if err != nil {
		return 0, errors.Internal("failed to delete chat session", err)
	}
	s.cache.DeleteChatSession(ctx, sessionID)
	return deleted, nil
}
