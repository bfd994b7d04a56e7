// Package deepseek registers DeepSeek, which serves the OpenAI chat
// completions protocol.
package deepseek

import (
	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/Rrens/invitation-agent/internal/llm/openai"
)

// NewProvider creates a new DeepSeek provider
func NewProvider(cfg config.DeepSeekConfig) *openai.Provider {
	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	return openai.NewProvider(cfg.APIKey, model,
		openai.WithName("deepseek"),
		openai.WithBaseURL(baseURL),
		openai.WithModels("deepseek-chat", "deepseek-reasoner"),
	)
}
