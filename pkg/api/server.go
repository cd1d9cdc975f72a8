// Package api exposes the graph engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/seclens/alertgraph/pkg/api/middleware"
	"github.com/seclens/alertgraph/pkg/auth"
	"github.com/seclens/alertgraph/pkg/config"
	"github.com/seclens/alertgraph/pkg/engine"
	"github.com/seclens/alertgraph/pkg/health"
	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/metrics"
)

// Server is the HTTP facade over the graph engine.
type Server struct {
	engine    *engine.Service
	sessions  *engine.SessionRegistry
	validator *auth.TokenValidator
	checker   *health.HealthChecker
	logger    logging.Logger
	metrics   *metrics.Registry
	cfg       config.ServerConfig
	startTime time.Time

	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(
	eng *engine.Service,
	sessions *engine.SessionRegistry,
	validator *auth.TokenValidator,
	checker *health.HealthChecker,
	logger logging.Logger,
	reg *metrics.Registry,
	cfg config.ServerConfig,
) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		engine:    eng,
		sessions:  sessions,
		validator: validator,
		checker:   checker,
		logger:    logger,
		metrics:   reg,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// Handler builds the full middleware/handler chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated operational endpoints
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Graph endpoints, bearer token required
	mux.Handle("GET /graph/lateral-movement", s.requireAuth(s.handleLateralMovement))
	mux.Handle("GET /graph/{alertID}", s.requireAuth(s.handleGraph))
	mux.Handle("POST /graph/expand", s.requireAuth(s.handleExpandNode))
	mux.Handle("POST /graph/correlate", s.requireAuth(s.handleCorrelate))

	corsConfig := middleware.DefaultCORSConfig()
	if len(s.cfg.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = s.cfg.AllowedOrigins
	}

	var handler http.Handler = mux
	handler = middleware.CORS(corsConfig)(handler)
	handler = middleware.PanicRecovery(s.logger)(handler)
	if s.metrics != nil {
		handler = middleware.Metrics(s.metrics)(handler)
	}
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID()(handler)
	return handler
}

// Start runs the HTTP server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", logging.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("api server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
