package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cchalm/shopchat/internal/provider"
	"github.com/cchalm/shopchat/internal/server"
	"github.com/cchalm/shopchat/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat relay server",
	Long: `Run the HTTP relay that accepts POST /chat requests from storefront clients and
forwards them to the configured language-model provider. The provider credential
is read from OPENROUTER_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY depending on
the selected provider.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":3000", "Address to listen on")
	serveCmd.Flags().String("provider", provider.NameOpenRouter, "Model provider (openrouter, openai, anthropic)")
	serveCmd.Flags().String("model", "", "Model name (defaults to the provider's default model)")
	serveCmd.Flags().String("base-url", "", "Override the provider API base URL")
	serveCmd.Flags().String("referer", "http://localhost:3000", "HTTP-Referer sent to OpenRouter")
	serveCmd.Flags().String("system-prompt", "", "Override the assistant system prompt")
	serveCmd.Flags().String("allowed-origins", "*", "Comma-separated CORS origins")
	serveCmd.Flags().Bool("telemetry", false, "Export traces over OTLP/HTTP")
	serveCmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP endpoint (host:port)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := setupContext()

	p, err := provider.New(provider.Settings{
		Name:    cfg.Provider,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.TelemetryEnabled,
		Endpoint: cfg.OTLPEndpoint,
		Insecure: true,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down telemetry")
		}
	}()

	srv := server.New(p, server.Options{
		SystemPrompt:   cfg.SystemPrompt,
		AllowedOrigins: cfg.AllowedOrigins,
		Tracer:         tp.Tracer(),
	})

	return srv.Run(ctx, cfg.ListenAddr)
}
