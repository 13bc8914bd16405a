package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cchalm/shopchat/internal/config"
)

var (
	v   = config.NewViper()
	cfg config.Config
)

// flagKeys maps command-line flag names to configuration keys. Credentials are deliberately absent: they are only
// read from the environment.
var flagKeys = map[string]string{
	"log-level":       config.KeyLogLevel,
	"listen":          config.KeyListenAddr,
	"provider":        config.KeyProvider,
	"model":           config.KeyModel,
	"base-url":        config.KeyBaseURL,
	"referer":         config.KeyReferer,
	"system-prompt":   config.KeySystemPrompt,
	"allowed-origins": config.KeyAllowedOrigins,
	"relay-url":       config.KeyRelayURL,
	"timeout":         config.KeyRelayTimeout,
	"store-backend":   config.KeyStoreBackend,
	"store-path":      config.KeyStorePath,
	"telemetry":       config.KeyTelemetryEnabled,
	"otlp-endpoint":   config.KeyOTLPEndpoint,
}

// loadConfig binds the executing command's flags and reads the configuration. Flags take precedence over
// SHOPCHAT_* environment variables, which take precedence over defaults.
func loadConfig(cmd *cobra.Command) config.Config {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
	return config.Load(v)
}

// addClientFlags registers the flags shared by commands that use local conversation storage
func addClientFlags(cmd *cobra.Command) {
	defaults := config.Load(config.NewViper())
	cmd.Flags().String("store-backend", defaults.StoreBackend, "Conversation storage backend (file, sqlite, memory)")
	cmd.Flags().String("store-path", defaults.StorePath, "Directory holding conversation storage")
}
