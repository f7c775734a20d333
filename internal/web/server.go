// Package web hosts the HTTP API, the live MJPEG stream and the websocket
// event feed of the attendance service.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/smart-presence/internal/config"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
	"github.com/kozaktomas/smart-presence/internal/web/handlers"
	"github.com/kozaktomas/smart-presence/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	engine     handlers.Engine
	store      *store.Store
	settings   *settings.Cache
	registry   *prometheus.Registry
	log        zerolog.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server over the engine and its store.
func NewServer(eng handlers.Engine, st *store.Store, cache *settings.Cache,
	registry *prometheus.Registry, webCfg config.WebConfig, log zerolog.Logger) *Server {

	r := chi.NewRouter()

	s := &Server{
		engine:   eng,
		store:    st,
		settings: cache,
		registry: registry,
		log:      log.With().Str("component", "web").Logger(),
		router:   r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(webCfg.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", webCfg.Host, webCfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No write timeout: the MJPEG stream and the websocket feed stay
		// open for as long as the client watches.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
