package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// Server provides HTTP endpoints for health and metrics.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a new observability server listening on addr.
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Start starts the observability server. Blocks until shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", MetricsHandler())

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

var startTime = time.Now()

type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	NumGoroutines int     `json:"num_goroutines"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(startTime).Seconds(),
		NumGoroutines: runtime.NumGoroutine(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
