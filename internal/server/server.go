// Package server implements the relay: a stateless HTTP endpoint that forwards a chat turn to the upstream model
// provider and returns its reply.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/provider"
	"github.com/cchalm/shopchat/internal/relay"
)

// DefaultSystemPrompt constrains the assistant to the storefront's support persona
//
//go:embed system_prompt.md
var DefaultSystemPrompt string

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second

	replyMessageRequired = "Message is required"
	replyEmptyCompletion = "Sorry, something went wrong"
)

// Options configures a Server
type Options struct {
	// SystemPrompt replaces DefaultSystemPrompt when non-empty
	SystemPrompt string
	// AllowedOrigins lists origins allowed by CORS. "*" allows any origin.
	AllowedOrigins []string
	Tracer         trace.Tracer
}

// Server is the relay HTTP server
type Server struct {
	echo           *echo.Echo
	provider       provider.Provider
	systemPrompt   string
	allowedOrigins []string
	tracer         trace.Tracer
}

// chatRequest is relay.ChatRequest with history entries decoded individually, so unsupported entries can be skipped
type chatRequest struct {
	Message string            `json:"message"`
	History []json.RawMessage `json:"history"`
}

// New creates a relay server forwarding to p
func New(p provider.Provider, opts Options) *Server {
	s := &Server{
		echo:           echo.New(),
		provider:       p,
		systemPrompt:   opts.SystemPrompt,
		allowedOrigins: opts.AllowedOrigins,
		tracer:         opts.Tracer,
	}
	if s.systemPrompt == "" {
		s.systemPrompt = DefaultSystemPrompt
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}

	s.echo.Use(s.cors)
	s.echo.POST(relay.ChatPath, s.handleChat)
	s.echo.OPTIONS(relay.ChatPath, s.handlePreflight)
	s.echo.GET("/healthz", s.handleHealth)
	return s
}

// Handler returns the server's HTTP handler with request size limiting and access logging applied
func (s *Server) Handler() http.Handler {
	return accessLog(http.MaxBytesHandler(s.echo, maxRequestBytes))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Str("provider", s.provider.Name()).Msg("Relay server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down relay server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleChat(c *echo.Context) error {
	ctx, span := s.tracer.Start(c.Request().Context(), "relay.chat")
	defer span.End()

	var req chatRequest
	if err := c.Bind(&req); err != nil || req.Message == "" {
		span.SetStatus(codes.Error, replyMessageRequired)
		return c.JSON(http.StatusBadRequest, relay.ChatResponse{Reply: replyMessageRequired})
	}

	messages := append(decodeHistory(req.History), chat.UserMessage(req.Message))
	span.SetAttributes(
		attribute.String("relay.provider", s.provider.Name()),
		attribute.Int("relay.history_length", len(messages)-1),
	)

	reply, err := s.provider.Complete(ctx, provider.Request{
		System:   s.systemPrompt,
		Messages: messages,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", s.provider.Name()).Msg("Upstream completion failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream completion failed")
		return c.JSON(http.StatusInternalServerError, relay.ChatResponse{Reply: "Error: " + provider.Describe(err)})
	}
	if reply == "" {
		reply = replyEmptyCompletion
	}
	return c.JSON(http.StatusOK, relay.ChatResponse{Reply: reply})
}

// decodeHistory keeps user and assistant entries with text, in order
func decodeHistory(raw []json.RawMessage) []chat.Message {
	msgs := make([]chat.Message, 0, len(raw))
	for _, r := range raw {
		var m chat.Message
		if err := json.Unmarshal(r, &m); err != nil {
			log.Debug().Err(err).Msg("Skipping unsupported history entry")
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func (s *Server) handlePreflight(c *echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// cors sets the CORS headers for allowed origins
func (s *Server) cors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		origin := c.Request().Header.Get("Origin")
		if origin != "" {
			header := c.Response().Header()
			header.Add("Vary", "Origin")
			allowed := ""
			if slices.Contains(s.allowedOrigins, "*") {
				allowed = "*"
			} else if slices.Contains(s.allowedOrigins, origin) {
				allowed = origin
			}
			if allowed != "" {
				header.Set("Access-Control-Allow-Origin", allowed)
				header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Content-Type")
			}
		}
		return next(c)
	}
}

// statusRecorder captures the response status for access logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
