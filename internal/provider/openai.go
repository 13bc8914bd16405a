package provider

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/cchalm/shopchat/internal/chat"
)

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIProvider calls an OpenAI-compatible chat completions API, such as OpenRouter
type OpenAIProvider struct {
	name   string
	client *go_openai.Client
	model  string
}

// NewOpenAIProvider creates a provider reported under name
func NewOpenAIProvider(name string, cfg OpenAIConfig) *OpenAIProvider {
	config := go_openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIProvider{
		name:   name,
		client: go_openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	completion, err := p.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: openAIMessages(req),
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s chat completion failed", p.name)
	}

	log.Debug().
		Str("provider", p.name).
		Str("model", completion.Model).
		Int("prompt_tokens", completion.Usage.PromptTokens).
		Int("completion_tokens", completion.Usage.CompletionTokens).
		Msg("Chat completion finished")

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func openAIMessages(req Request) []go_openai.ChatCompletionMessage {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := go_openai.ChatMessageRoleUser
		if m.Role == chat.RoleAssistant {
			role = go_openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return msgs
}

// Describe returns the upstream's own error message when err carries one, otherwise err's text
func Describe(err error) string {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
