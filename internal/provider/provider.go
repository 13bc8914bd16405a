// Package provider adapts upstream chat-completion APIs to the relay's single-reply contract.
package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/transport"
)

const (
	NameOpenRouter = "openrouter"
	NameOpenAI     = "openai"
	NameAnthropic  = "anthropic"

	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"

	DefaultOpenRouterModel = "nex-agi/deepseek-v3.1-nex-n1:free"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAnthropicModel  = "claude-sonnet-4-0"
)

// Request is a single completion request: a system instruction followed by the conversation so far, ending with the
// message to answer
type Request struct {
	System   string
	Messages []chat.Message
}

// Provider produces one reply for a completion request
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Settings selects and configures a provider
type Settings struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	// Referer is sent as HTTP-Referer, which OpenRouter uses for attribution
	Referer string
}

// New creates the provider named in s. The HTTP client honors 429 retry-after responses.
func New(s Settings) (Provider, error) {
	if s.APIKey == "" {
		return nil, errors.Errorf("no API key for provider %s", s.Name)
	}

	var rt http.RoundTripper = transport.WithRateLimiting(nil)
	if s.Referer != "" {
		rt = transport.WithHeaders(rt, map[string]string{"HTTP-Referer": s.Referer})
	}
	httpClient := &http.Client{Transport: rt}

	switch strings.ToLower(s.Name) {
	case NameOpenRouter, "":
		return NewOpenAIProvider(NameOpenRouter, OpenAIConfig{
			APIKey:     s.APIKey,
			BaseURL:    orDefault(s.BaseURL, OpenRouterBaseURL),
			Model:      orDefault(s.Model, DefaultOpenRouterModel),
			HTTPClient: httpClient,
		}), nil
	case NameOpenAI:
		return NewOpenAIProvider(NameOpenAI, OpenAIConfig{
			APIKey:     s.APIKey,
			BaseURL:    orDefault(s.BaseURL, OpenAIBaseURL),
			Model:      orDefault(s.Model, DefaultOpenAIModel),
			HTTPClient: httpClient,
		}), nil
	case NameAnthropic:
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      orDefault(s.Model, DefaultAnthropicModel),
			HTTPClient: httpClient,
		}), nil
	}
	return nil, errors.Errorf("unknown provider %q", s.Name)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
