package cmd

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shopchat",
	Short: "Storefront support chat relay and client",
	Long: `Shopchat is a customer-support chat for an electronics storefront. The serve
command runs the relay that forwards chat turns to a hosted language model; the
chat command is a terminal client that keeps the five most recent conversations
in local storage.`,
	PersistentPreRunE: loadRootConfig,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(cmd *cobra.Command, _ []string) error {
	// Load .env file
	envErr := godotenv.Load()

	cfg = loadConfig(cmd)
	setupLogging(cfg.LogLevel)

	if envErr != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
}
