package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/plugin/ai"
	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
	teststore "github.com/hrygo/ispkb/store/test"
)

// scriptedLLM answers every call with the next reply and records the prompts.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts [][]ai.Message
}

func (l *scriptedLLM) next(messages []ai.Message) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, messages)
	if l.err != nil {
		return "", l.err
	}
	reply := l.replies[0]
	l.replies = l.replies[1:]
	return reply, nil
}

func (l *scriptedLLM) Chat(_ context.Context, messages []ai.Message) (*ai.ChatResult, error) {
	reply, err := l.next(messages)
	if err != nil {
		return nil, err
	}
	return &ai.ChatResult{Content: reply}, nil
}

func (l *scriptedLLM) ChatStream(_ context.Context, messages []ai.Message) (<-chan string, <-chan error) {
	content, errc := make(chan string), make(chan error, 1)
	go func() {
		defer close(content)
		defer close(errc)
		reply, err := l.next(messages)
		if err != nil {
			errc <- err
			return
		}
		for _, word := range strings.SplitAfter(reply, " ") {
			content <- word
		}
	}()
	return content, errc
}

func (l *scriptedLLM) lastPrompt() []ai.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prompts[len(l.prompts)-1]
}

func newTestService(ctx context.Context, t *testing.T, llm ai.LLMService) (*Service, *store.Store, *cache.Domain) {
	t.Helper()
	s := teststore.NewTestingStore(ctx, t)
	backend, err := cache.NewMemoryBackend(0)
	require.NoError(t, err)
	d := cache.NewDomain(cache.NewManager(backend, cache.Options{}))
	return NewService(s, d, llm, nil), s, d
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedLLM{replies: []string{"Gray world assumes an achromatic average.", "It fails on dominant colors."}}
	svc, s, _ := newTestService(ctx, t, llm)

	reply, err := svc.SendMessage(ctx, 1, "", "How does white balance work?")
	require.NoError(t, err)
	assert.Equal(t, "Gray world assumes an achromatic average.", reply.Response)
	assert.NotEmpty(t, reply.SessionID)

	// The knowledge context is the ranked matches as title and description blocks.
	prompt := llm.lastPrompt()
	require.Len(t, prompt, 2)
	assert.Equal(t, "system", prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "Auto White Balance\n")
	assert.Equal(t, ai.UserMessage("How does white balance work?"), prompt[1])
	require.NotEmpty(t, reply.Sources)
	assert.Equal(t, "knowledge", reply.Sources[0].Type)
	assert.Equal(t, "Auto White Balance", reply.Sources[0].Title)
	assert.Equal(t, "ISP Pipeline", reply.Sources[0].Category)

	cached, ok := svc.CachedSession(ctx, reply.SessionID)
	require.True(t, ok)
	assert.Equal(t, &Session{UserID: 1, LastMessage: "How does white balance work?", LastResponse: reply.Response}, cached)

	// The follow-up carries the earlier exchange as history.
	second, err := svc.SendMessage(ctx, 1, reply.SessionID, "When does it fail?")
	require.NoError(t, err)
	assert.Equal(t, reply.SessionID, second.SessionID)
	prompt = llm.lastPrompt()
	require.Len(t, prompt, 4)
	assert.Equal(t, ai.UserMessage("How does white balance work?"), prompt[1])
	assert.Equal(t, ai.AssistantMessage("Gray world assumes an achromatic average."), prompt[2])

	sessionID := reply.SessionID
	messages, err := s.ListChatMessages(ctx, &store.FindChatMessage{SessionID: &sessionID})
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, store.ChatRoleUser, messages[0].Role)
	assert.Equal(t, store.ChatRoleAssistant, messages[3].Role)
}

func TestSendMessageHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	replies := make([]string, 8)
	for i := range replies {
		replies[i] = "ok"
	}
	llm := &scriptedLLM{replies: replies}
	svc, _, _ := newTestService(ctx, t, llm)

	sessionID := "s-bounded"
	for i := 0; i < 8; i++ {
		_, err := svc.SendMessage(ctx, 1, sessionID, "question")
		require.NoError(t, err)
	}
	// System prompt, ten history messages and the new question.
	assert.Len(t, llm.lastPrompt(), historyMessages+2)
}

func TestSendMessageWithoutKeywords(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedLLM{replies: []string{"hello"}}
	svc, _, _ := newTestService(ctx, t, llm)

	reply, err := svc.SendMessage(ctx, 1, "", "how does?")
	require.NoError(t, err)
	assert.Empty(t, reply.Sources)
	assert.NotContains(t, llm.lastPrompt()[0].Content, "\n\n")
}

func TestSendMessageErrors(t *testing.T) {
	ctx := context.Background()

	svc, s, _ := newTestService(ctx, t, &scriptedLLM{err: errors.New("503 from upstream")})
	_, err := svc.SendMessage(ctx, 1, "s1", "explain demosaic")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstream))
	userID := int32(1)
	messages, err := s.ListChatMessages(ctx, &store.FindChatMessage{UserID: &userID})
	require.NoError(t, err)
	assert.Empty(t, messages)

	_, err = svc.SendMessage(ctx, 1, "s1", "   ")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidArgument))

	unconfigured, _, _ := newTestService(ctx, t, nil)
	_, err = unconfigured.SendMessage(ctx, 1, "", "explain demosaic")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeUpstream))
}

func TestStreamMessage(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedLLM{replies: []string{"Demosaic interpolates missing colors."}}
	svc, _, _ := newTestService(ctx, t, llm)

	var chunks []string
	reply, err := svc.StreamMessage(ctx, 1, "", "explain demosaic", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Demosaic interpolates missing colors.", reply.Response)
	assert.Equal(t, reply.Response, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1)

	history, err := svc.History(ctx, 1, reply.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, reply.Response, history[1].Content)
}

func TestHistorySessionsAndDelete(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedLLM{replies: []string{"a1", "a2", "a3"}}
	svc, _, _ := newTestService(ctx, t, llm)

	_, err := svc.SendMessage(ctx, 1, "s1", "first question")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, 1, "s2", "second question")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, 2, "s3", "someone else")
	require.NoError(t, err)

	history, err := svc.History(ctx, 1, "", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "a1", history[0].Content)
	assert.Equal(t, "a2", history[2].Content)

	_, err = svc.History(ctx, 1, "", MaxHistoryLimit+1)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidArgument))

	sessions, err := svc.Sessions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.EqualValues(t, 2, sessions[0].MessageCount)

	deleted, err := svc.DeleteSession(ctx, 1, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	_, ok := svc.CachedSession(ctx, "s1")
	assert.False(t, ok)

	// Another user's session is out of reach.
	deleted, err = svc.DeleteSession(ctx, 1, "s3")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	_, ok = svc.CachedSession(ctx, "s2")
	assert.True(t, ok)
}
