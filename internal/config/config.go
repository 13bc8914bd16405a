// Package config provides configuration management for the shopchat relay and client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys shared by viper, environment variables (SHOPCHAT_<KEY>) and cobra flag bindings
const (
	KeyLogLevel         = "log_level"
	KeyListenAddr       = "listen_addr"
	KeyProvider         = "provider"
	KeyModel            = "model"
	KeyBaseURL          = "base_url"
	KeyReferer          = "referer"
	KeySystemPrompt     = "system_prompt"
	KeyAllowedOrigins   = "allowed_origins"
	KeyRelayURL         = "relay_url"
	KeyRelayTimeout     = "relay_timeout"
	KeyStoreBackend     = "store_backend"
	KeyStorePath        = "store_path"
	KeyTelemetryEnabled = "telemetry_enabled"
	KeyOTLPEndpoint     = "otlp_endpoint"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the configuration for both the relay server and the chat client
type Config struct {
	LogLevel string

	// Relay server
	ListenAddr     string
	Provider       string
	APIKey         string // Only ever read from the environment
	Model          string
	BaseURL        string
	Referer        string
	SystemPrompt   string
	AllowedOrigins []string

	// Chat client
	RelayURL     string
	RelayTimeout time.Duration
	StoreBackend string
	StorePath    string

	// Telemetry
	TelemetryEnabled bool
	OTLPEndpoint     string
}

// apiKeyEnv maps a provider name to the environment variable holding its credential
var apiKeyEnv = map[string]string{
	"openrouter": "OPENROUTER_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
}

// NewViper returns a viper instance with defaults set and SHOPCHAT_* environment variables bound
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("shopchat")
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListenAddr, ":3000")
	v.SetDefault(KeyProvider, "openrouter")
	v.SetDefault(KeyReferer, "http://localhost:3000")
	v.SetDefault(KeyAllowedOrigins, "*")
	v.SetDefault(KeyRelayURL, "http://localhost:3000")
	v.SetDefault(KeyRelayTimeout, 20*time.Second)
	v.SetDefault(KeyStoreBackend, BackendFile)
	v.SetDefault(KeyStorePath, defaultStorePath())
	v.SetDefault(KeyTelemetryEnabled, false)
	return v
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "shopchat")
}

// Load reads the configuration from v. The provider credential is read from the provider's environment variable.
func Load(v *viper.Viper) Config {
	provider := strings.ToLower(v.GetString(KeyProvider))
	config := Config{
		LogLevel: v.GetString(KeyLogLevel),

		ListenAddr:     v.GetString(KeyListenAddr),
		Provider:       provider,
		APIKey:         os.Getenv(apiKeyEnv[provider]),
		Model:          v.GetString(KeyModel),
		BaseURL:        v.GetString(KeyBaseURL),
		Referer:        v.GetString(KeyReferer),
		SystemPrompt:   v.GetString(KeySystemPrompt),
		AllowedOrigins: splitList(v.GetString(KeyAllowedOrigins)),

		RelayURL:     v.GetString(KeyRelayURL),
		RelayTimeout: v.GetDuration(KeyRelayTimeout),
		StoreBackend: strings.ToLower(v.GetString(KeyStoreBackend)),
		StorePath:    v.GetString(KeyStorePath),

		TelemetryEnabled: v.GetBool(KeyTelemetryEnabled),
		OTLPEndpoint:     v.GetString(KeyOTLPEndpoint),
	}
	return config
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateServer checks that the relay server configuration is usable
func (c Config) ValidateServer() error {
	envVar, ok := apiKeyEnv[c.Provider]
	if !ok {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("missing required environment variable: %s", envVar)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}

// ValidateClient checks that the chat client configuration is usable
func (c Config) ValidateClient() error {
	if c.RelayURL == "" {
		return fmt.Errorf("relay URL must not be empty")
	}
	switch c.StoreBackend {
	case BackendFile, BackendSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("store path must not be empty for the %s backend", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	return nil
}
