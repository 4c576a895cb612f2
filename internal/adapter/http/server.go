package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/infra/middleware"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	router *mux.Router
	server *http.Server
	logger logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// Middlewares are the optional request guards. Nil entries are skipped.
type Middlewares struct {
	RateLimit *middleware.RateLimitMiddleware
	Auth      *middleware.AuthMiddleware
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, workloadUseCase WorkloadUseCase, mw Middlewares, log logger.Logger) *Server {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.CorrelationIDMiddleware)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(config.AllowedOrigins))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	if mw.RateLimit != nil {
		api.Use(mw.RateLimit.RateLimit)
	}
	if mw.Auth != nil {
		api.Use(mw.Auth.RequireAuth)
	}
	NewWorkloadHandler(workloadUseCase, log, config.MaxBodyBytes).RegisterRoutes(api)

	addr := config.Host + ":" + config.Port
	return &Server{
		addr:   addr,
		router: router,
		logger: log,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
