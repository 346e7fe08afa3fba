package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/hrygo/ispkb/plugin/ai/timeout"
)

// ErrEmptyResponse is returned when the backend answers without choices.
var ErrEmptyResponse = errors.New("empty response")

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// ChatResult is a completed answer and how long the backend took.
type ChatResult struct {
	Content          string
	Duration         time.Duration
	PromptTokens     int
	CompletionTokens int
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs synchronous chat.
	Chat(ctx context.Context, messages []Message) (*ChatResult, error)

	// ChatStream performs streaming chat.
	ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

type llmService struct {
	client  *openai.Client
	config  *LLMConfig
	breaker *gobreaker.CircuitBreaker
	// newBackOff is swapped in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// NewLLMService creates a new LLMService.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	if cfg == nil {
		return nil, errors.New("LLM config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newLLMService(cfg), nil
}

func newLLMService(cfg *LLMConfig) *llmService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     timeout.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= timeout.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// Client errors say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})

	return &llmService{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		breaker: breaker,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = cfg.Timeout
			return b
		},
	}
}

func (s *llmService) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    convertMessages(messages),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		TopP:        s.config.TopP,
		Stream:      stream,
	}
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (*ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	req := s.request(messages, false)
	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.config.MaxRetries)), ctx)

	resp, err := backoff.RetryWithData(func() (openai.ChatCompletionResponse, error) {
		out, err := s.breaker.Execute(func() (interface{}, error) {
			return s.client.CreateChatCompletion(ctx, req)
		})
		if err != nil {
			if isClientError(err) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return openai.ChatCompletionResponse{}, backoff.Permanent(err)
			}
			return openai.ChatCompletionResponse{}, err
		}
		return out.(openai.ChatCompletionResponse), nil
	}, policy)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		Duration:         time.Since(start),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (s *llmService) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, timeout.StreamTimeout)
		defer cancel()

		out, err := s.breaker.Execute(func() (interface{}, error) {
			return s.client.CreateChatCompletionStream(ctx, s.request(messages, true))
		})
		if err != nil {
			errChan <- err
			return
		}
		stream := out.(*openai.ChatCompletionStream)
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errChan <- err
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case contentChan <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return contentChan, errChan
}

// isClientError reports 4xx responses other than 429, which retrying cannot fix.
func isClientError(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// FormatMessages formats messages for prompt templates.
func FormatMessages(systemPrompt string, userContent string, history []Message) []Message {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}
