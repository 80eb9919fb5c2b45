package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIConfig holds the settings for an OpenAI-compatible chat endpoint
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible gateways
	Model   string
	System  string // optional system instruction sent with every prompt
}

// NewOpenAIClient builds an explicitly configured openai-go client. SDK level
// retries are disabled; rate limits are retried by the caller's RetryPolicy
func NewOpenAIClient(cfg OpenAIConfig) (openai.Client, error) {
	if cfg.APIKey == "" {
		return openai.Client{}, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return openai.NewClient(opts...), nil
}

// CompletionsProvider implements Provider with the chat completions API
type CompletionsProvider struct {
	client openai.Client
	model  string
	system string
}

// NewCompletionsProvider creates a provider bound to one model
func NewCompletionsProvider(client openai.Client, cfg OpenAIConfig) *CompletionsProvider {
	return &CompletionsProvider{
		client: client,
		model:  cfg.Model,
		system: cfg.System,
	}
}

// Generate sends the prompt as a single user message
func (p *CompletionsProvider) Generate(ctx context.Context, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if p.system != "" {
		messages = append(messages, openai.SystemMessage(p.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", Classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
