// Package server exposes the turn pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/napfox-dev/napfox/internal/pipeline"
	"github.com/napfox-dev/napfox/internal/session"
	metrics "github.com/napfox-dev/napfox/pkg/observability"
	"github.com/napfox-dev/napfox/pkg/security"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Config holds HTTP server settings.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server binds the pipeline, session store and request hygiene to routes.
type Server struct {
	pipeline  *pipeline.Pipeline
	store     session.Store
	limiter   *security.RateLimiter
	validator *security.InputValidator
	cfg       Config

	httpServer *http.Server
}

// New creates a server. limiter may be nil to disable rate limiting.
func New(p *pipeline.Pipeline, store session.Store, limiter *security.RateLimiter, cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		pipeline:  p,
		store:     store,
		limiter:   limiter,
		validator: security.NewInputValidator(0, 0),
		cfg:       cfg,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turn", s.handleTurn)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/sessions/{sessionID}", s.handleDeleteSession)
	})

	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on %s", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil {
		clientID := clientKey(r)
		if !s.limiter.Allow(clientID) {
			metrics.RecordRateLimited()
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"status":       "rate_limited",
				"message":      "Too many requests. Please slow down.",
				"retryAfterMs": s.limiter.RetryAfter(clientID).Milliseconds(),
			})
			return
		}
	}

	var req pipeline.TurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": pipeline.StatusError,
			"error":  "invalid request body",
		})
		return
	}

	contents := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		contents = append(contents, m.Content)
	}
	if err := s.validator.ValidateTranscript(contents); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": pipeline.StatusError,
			"error":  err.Error(),
		})
		return
	}

	result := s.pipeline.Turn(r.Context(), req)
	s.saveSnapshot(r.Context(), req, result)
	writeJSON(w, http.StatusOK, result)
}

// saveSnapshot persists the turn outcome best effort. The protocol is
// client-held state, so a store failure never fails the turn.
func (s *Server) saveSnapshot(ctx context.Context, req pipeline.TurnRequest, result pipeline.TurnResult) {
	if s.store == nil || result.SessionID == "" {
		return
	}
	snap := &session.Snapshot{
		SessionID:      result.SessionID,
		Messages:       req.Messages,
		Fields:         result.Fields,
		QuestionsAsked: result.QuestionsAsked,
		Status:         result.Status,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		log.Printf("failed to save session %s: %v", result.SessionID, err)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session persistence disabled"})
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := s.store.Load(r.Context(), sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		log.Printf("failed to load session %s: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load session"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.store.Delete(r.Context(), sessionID); err != nil {
		log.Printf("failed to delete session %s: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clientKey identifies the caller for rate limiting. RealIP middleware has
// already folded X-Forwarded-For into RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
