// package server contains the bot's small HTTP surface: the OAuth callback
// used during interactive login and the status endpoint used by the host's
// health checks.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"auxcord/internal/auth"
	"auxcord/internal/shared"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with
// additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the path patterns it serves, so
// handlers can encapsulate their own route definitions.
type Handler interface {
	http.Handler
	Routes() []string
}

// Server wraps http.Server with the bot's router and graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New creates a Server listening on addr with the given router.
func New(addr string, router *BasicRouter, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// CredentialReporter exposes the token lifecycle state for the status
// endpoint. Satisfied by [auth.Manager].
type CredentialReporter interface {
	State(ctx context.Context) auth.State
}

// StatusHandler reports process health and credential state as JSON.
type StatusHandler struct {
	creds     CredentialReporter
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler; uptime counts from now.
func NewStatusHandler(creds CredentialReporter) *StatusHandler {
	return &StatusHandler{creds: creds, startedAt: time.Now()}
}

func (h *StatusHandler) Routes() []string {
	// "/" keeps free-tier host pings happy; /health and /healthz are for
	// real probes.
	return []string{"/", "/health", "/healthz"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.creds != nil {
		body["credential"] = h.creds.State(r.Context()).String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
