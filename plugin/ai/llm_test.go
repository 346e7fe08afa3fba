package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletions serves /chat/completions, failing the first `failures`
// calls with status.
func fakeCompletions(t *testing.T, failures int32, status int, answer string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen-turbo", req.Model)

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"error":{"message":"fail %d","type":"server_error"}}`, n)
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: answer}}},
			Usage:   openai.Usage{PromptTokens: 12, CompletionTokens: 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestService(t *testing.T, baseURL string) *llmService {
	t.Helper()
	cfg := &LLMConfig{APIKey: "sk-test", BaseURL: baseURL, Model: "qwen-turbo", Timeout: 5 * time.Second, MaxRetries: 2}
	require.NoError(t, cfg.Validate())
	s := newLLMService(cfg)
	s.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s
}

func TestChat(t *testing.T) {
	srv, calls := fakeCompletions(t, 0, 0, "AWB neutralizes color casts.")
	s := newTestService(t, srv.URL)

	result, err := s.Chat(context.Background(), FormatMessages("system", "what is awb", nil))
	require.NoError(t, err)
	assert.Equal(t, "AWB neutralizes color casts.", result.Content)
	assert.Equal(t, 12, result.PromptTokens)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatRetriesServerErrors(t *testing.T) {
	srv, calls := fakeCompletions(t, 2, http.StatusServiceUnavailable, "ok")
	s := newTestService(t, srv.URL)

	result, err := s.Chat(context.Background(), []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatGivesUpAfterMaxRetries(t *testing.T) {
	srv, calls := fakeCompletions(t, 10, http.StatusInternalServerError, "never")
	s := newTestService(t, srv.URL)

	_, err := s.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	srv, calls := fakeCompletions(t, 10, http.StatusUnauthorized, "never")
	s := newTestService(t, srv.URL)

	_, err := s.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, isClientError(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatCircuitOpens(t *testing.T) {
	srv, calls := fakeCompletions(t, 100, http.StatusBadGateway, "never")
	s := newTestService(t, srv.URL)
	s.config.MaxRetries = 0

	for i := 0; i < 5; i++ {
		_, err := s.Chat(context.Background(), []Message{UserMessage("hi")})
		require.Error(t, err)
	}
	before := calls.Load()
	_, err := s.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.Equal(t, before, calls.Load(), "open circuit must not reach the backend")
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Demo", "saic"} {
			chunk := openai.ChatCompletionStreamResponse{
				Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: part}}},
			}
			b, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	s := newTestService(t, srv.URL)

	contentChan, errChan := s.ChatStream(context.Background(), []Message{UserMessage("hi")})
	var got string
	for part := range contentChan {
		got += part
	}
	assert.NoError(t, <-errChan)
	assert.Equal(t, "Demosaic", got)
}

func TestConvertMessages(t *testing.T) {
	messages := FormatMessages("You are a helpful assistant", "How are you?", []Message{
		UserMessage("Hello"),
		AssistantMessage("Hi there"),
	})
	llmMessages := convertMessages(messages)
	require.Len(t, llmMessages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, llmMessages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, llmMessages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, llmMessages[2].Role)
	assert.Equal(t, "How are you?", llmMessages[3].Content)
}
