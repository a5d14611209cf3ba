// Package server exposes the HTTP surface: document automation, draft
// and backlog generation, DOCX/XLSX rendering, email delivery, retro
// and code-review analysis, and chat.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/draftmill/draftmill/automation"
	"github.com/draftmill/draftmill/config"
	"github.com/draftmill/draftmill/docgen"
	"github.com/draftmill/draftmill/mailer"
	"github.com/draftmill/draftmill/remote"
)

// Server wires the orchestrator and supporting services behind an
// http.Server with the standard middleware chain.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *Metrics

	orchestrator *automation.Orchestrator
	mailer       *mailer.Mailer
	templates    *docgen.TemplateStore

	allowedOrigins  []string
	maxBodyBytes    int64
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMailer sets the outbound mailer used by the email endpoint.
func WithMailer(m *mailer.Mailer) Option {
	return func(s *Server) {
		s.mailer = m
	}
}

// WithTemplateStore sets the named DOCX template store. Without one,
// only uploaded templates can be rendered.
func WithTemplateStore(store *docgen.TemplateStore) Option {
	return func(s *Server) {
		s.templates = store
	}
}

// New builds a Server from the given orchestrator and server config.
func New(orchestrator *automation.Orchestrator, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		logger:          slog.Default(),
		metrics:         NewMetrics(),
		orchestrator:    orchestrator,
		allowedOrigins:  cfg.AllowedOrigins,
		maxBodyBytes:    cfg.MaxBodyBytes,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = 10 << 20
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 15 * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /fully-automate", s.wrap("/fully-automate", s.handleFullyAutomate))
	mux.Handle("POST /ai-draft", s.wrap("/ai-draft", s.handleDraft))
	mux.Handle("POST /generate-docx", s.wrap("/generate-docx", s.handleGenerateDocx))
	mux.Handle("POST /generate-user-stories", s.wrap("/generate-user-stories", s.handleGenerateUserStories))
	mux.Handle("POST /user-stories-xlsx", s.wrap("/user-stories-xlsx", s.handleUserStoriesXLSX))
	mux.Handle("POST /email-doc", s.wrap("/email-doc", s.handleEmailDoc))
	mux.Handle("POST /sprint-retro-analyze", s.wrap("/sprint-retro-analyze", s.handleRetroAnalyze))
	mux.Handle("POST /code-review", s.wrap("/code-review", s.handleCodeReview))
	mux.Handle("POST /api/chat", s.wrap("/api/chat", s.handleChat))
	mux.Handle("GET /health", s.wrap("/health", s.handleHealth))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return s.cors(mux)
}

// Start serves until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("write response", "error", err)
	}
}

// writeError maps domain errors onto status codes: caller mistakes and
// missing credentials are 400s, downstream and everything else is 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case automation.IsValidation(err), automation.IsConfiguration(err):
		status = http.StatusBadRequest
	case remote.IsDownstream(err):
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
