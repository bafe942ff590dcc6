// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/gatekeep/internal/platform/constants"
	"github.com/taibuivan/gatekeep/internal/platform/middleware"
	"github.com/taibuivan/gatekeep/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all HTTP handler sets mounted by [NewServer].
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 when all dependencies are healthy.
	Readiness http.HandlerFunc

	// Auth serves the authentication and user administration routes.
	Auth *auth.Handler

	// Metrics exposes Prometheus collectors. Optional.
	Metrics http.Handler
}

// Options configures the transport concerns of the server.
type Options struct {
	// Port is the TCP port to listen on.
	Port string

	// AuthLimiter throttles the /auth routes per client IP. Optional.
	AuthLimiter *middleware.RateLimiter

	// Instrument wraps every request with metrics collection. Optional.
	Instrument func(http.Handler) http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// Authentication is not applied globally: public /auth routes never look at
// the Authorization header.
func NewServer(options Options, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery(log))
	if options.Instrument != nil {
		r.Use(options.Instrument)
	}
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	r.Route(constants.APIPrefix, func(api chi.Router) {
		api.Group(func(authRoutes chi.Router) {
			if options.AuthLimiter != nil {
				authRoutes.Use(options.AuthLimiter.Handler)
			}
			authRoutes.Mount(constants.AuthPath, h.Auth.Routes())
		})
		api.Mount(constants.UsersPath, h.Auth.UserRoutes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + options.Port,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
