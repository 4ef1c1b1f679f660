package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/memofeed/service/metrics"
)

// Server represents the HTTP server for the feed API.
type Server struct {
	addr    string
	feed    FeedReader
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, feed FeedReader, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		feed:    feed,
		metrics: m,
		logger:  logger,
	}
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Feed routes
	s.route(mux, "GET /api/posts", "/api/posts", handleGetFeed(s.feed, s.logger))
	s.route(mux, "GET /api/accounts/{account}/posts", "/api/accounts/{account}/posts", handleGetFeedByAccount(s.feed, s.logger))
	s.route(mux, "GET /api/posts/{id}", "/api/posts/{id}", handleGetPost(s.feed, s.logger))
	s.route(mux, "GET /api/posts/{id}/comments", "/api/posts/{id}/comments", handleGetPostComments(s.feed, s.logger))
	s.route(mux, "GET /api/posts/{id}/likes", "/api/posts/{id}/likes", handleGetPostLikes(s.feed, s.logger))
	s.route(mux, "GET /api/posts/{id}/thread", "/api/posts/{id}/thread", handleGetPostThread(s.feed, s.logger))

	// User routes
	s.route(mux, "GET /api/user/info", "/api/user/info", handleGetUserInfo(s.feed, s.logger))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.Handler) {
	mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr, "metrics", s.metrics != nil)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
