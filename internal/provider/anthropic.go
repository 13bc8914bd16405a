package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/cchalm/shopchat/internal/chat"
)

const anthropicMaxTokens = 1024

// AnthropicConfig configures the Anthropic messages API
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// AnthropicProvider calls the Anthropic messages API, accumulating the streamed response into one reply
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(2),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(cfg.Model),
	}
}

func (p *AnthropicProvider) Name() string {
	return NameAnthropic
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  anthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	response := anthropic.Message{}
	for stream.Next() {
		if err := response.Accumulate(stream.Current()); err != nil {
			return "", errors.Wrap(err, "failed to accumulate response content stream")
		}
	}
	if err := stream.Err(); err != nil {
		return "", errors.Wrap(err, "anthropic message request failed")
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to marshal malformed message for inspection")
		}
		return "", errors.Errorf("malformed message: %s", string(b))
	}

	log.Debug().
		Str("provider", NameAnthropic).
		Int64("input_tokens", response.Usage.InputTokens).
		Int64("output_tokens", response.Usage.OutputTokens).
		Msg("Message finished")

	var sb strings.Builder
	for _, block := range response.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String(), nil
}

// anthropicMessages converts chat messages into alternating user/assistant turns. Consecutive messages with the same
// role are merged into one turn, and leading assistant messages are dropped because a conversation must open with
// the user.
func anthropicMessages(msgs []chat.Message) []anthropic.MessageParam {
	var params []anthropic.MessageParam
	var blocks []anthropic.ContentBlockParamUnion
	var role chat.Role

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if role == chat.RoleUser {
			params = append(params, anthropic.NewUserMessage(blocks...))
		} else {
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		}
		blocks = nil
	}

	for _, m := range msgs {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if len(params) == 0 && len(blocks) == 0 && m.Role != chat.RoleUser {
			continue
		}
		if m.Role != role {
			flush()
			role = m.Role
		}
		blocks = append(blocks, anthropic.NewTextBlock(m.Text))
	}
	flush()
	return params
}
