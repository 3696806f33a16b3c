package gateway

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/learnloop/mentor-be/internal/config"
)

// llmBackend adapts a langchaingo model to the Backend interface
type llmBackend struct {
	name  string
	model llms.Model
}

// NewLLMBackend builds one OpenAI-compatible backend from config
func NewLLMBackend(cfg config.BackendConfig) (Backend, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey()),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model backend %q: %w", cfg.Name, err)
	}

	return &llmBackend{name: cfg.Name, model: llm}, nil
}

// NewBackends builds the backend chain in config order
func NewBackends(cfg *config.ModelsConfig) ([]Backend, error) {
	backends := make([]Backend, 0, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		b, err := NewLLMBackend(bc)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}

func (b *llmBackend) Name() string {
	return b.name
}

func (b *llmBackend) Generate(ctx context.Context, req Request) (string, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	resp, err := b.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend %q returned no choices", b.name)
	}

	return resp.Choices[0].Content, nil
}
