package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cchalm/shopchat/internal/config"
	"github.com/cchalm/shopchat/internal/store"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		log.Info().Msg("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		log.Fatal().Msg("Forcing shutdown")
	}()

	return ctx
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// openStore creates the storage adapter for the configured backend. The returned function releases the backend.
func openStore(ctx context.Context, c config.Config) (*store.Adapter, func() error, error) {
	noop := func() error { return nil }

	switch c.StoreBackend {
	case config.BackendFile:
		backend, err := store.NewFileBackend(c.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return store.NewAdapter(backend), noop, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(c.StorePath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		backend, err := store.OpenSQLiteBackend(ctx, filepath.Join(c.StorePath, "shopchat.db"))
		if err != nil {
			return nil, nil, err
		}
		return store.NewAdapter(backend), backend.Close, nil
	case config.BackendMemory:
		return store.NewAdapter(store.NewMemoryBackend()), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}
