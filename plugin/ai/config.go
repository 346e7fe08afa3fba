package ai

import (
	"errors"
	"time"

	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/plugin/ai/timeout"
)

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	BaseURL     string // OpenAI compatible endpoint
	APIKey      string
	Model       string  // qwen-turbo
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	TopP        float32 // default: 0.9
	Timeout     time.Duration
	MaxRetries  int
}

// NewLLMConfigFromProfile creates LLM config from profile. The result is nil
// when no API key is configured.
func NewLLMConfigFromProfile(p *profile.Profile) *LLMConfig {
	if !p.IsAIEnabled() {
		return nil
	}
	return &LLMConfig{
		BaseURL:     p.AIBaseURL,
		APIKey:      p.AIAPIKey,
		Model:       p.AIModel,
		MaxTokens:   2048,
		Temperature: 0.7,
		TopP:        0.9,
		Timeout:     timeout.LLMTimeout,
		MaxRetries:  timeout.LLMMaxRetries,
	}
}

// Validate validates the configuration and fills defaults.
func (c *LLMConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.BaseURL == "" {
		return errors.New("LLM base URL is required")
	}
	if c.Model == "" {
		return errors.New("LLM model is required")
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout <= 0 {
		c.Timeout = timeout.LLMTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return nil
}
