package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"vetml/internal/api/health"
	"vetml/internal/metrics"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// ServerConfig contains configuration for the HTTP server
type ServerConfig struct {
	Addr        string
	WSPath      string
	ServiceName string
	Version     string
}

// Server wraps the HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer wires all routes. The websocket and predict handlers share one
// dispatcher so both transports behave identically.
func NewServer(cfg ServerConfig, ws http.Handler, predict http.Handler, healthHandler *health.Handler, log *logger.Logger) *Server {
	log = log.Component("http")
	mux := http.NewServeMux()

	wsPath := cfg.WSPath
	if wsPath == "" {
		wsPath = "/ws"
	}
	mux.Handle(wsPath, ws)
	mux.Handle("/api/v1/predict", predict)

	// Kubernetes probes
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service":   cfg.ServiceName,
			"version":   cfg.Version,
			"status":    "running",
			"websocket": wsPath,
		})
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8765"
	}

	log.Infow("HTTP server configured", "addr", addr, "ws_path", wsPath)

	// No WriteTimeout: it would cut long-lived websocket connections
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Handler exposes the routed mux
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests.
// Blocks until the server is stopped or fails.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.httpServer.Addr)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.log.Infow("Starting HTTP server", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
// Waits for active requests to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}
