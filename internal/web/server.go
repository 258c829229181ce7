// Package web provides the HTTP API for single toll and fuel lookups and for
// bulk CSV runs.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tollbatch/internal/config"
	"github.com/JonMunkholm/tollbatch/internal/core"
	"github.com/JonMunkholm/tollbatch/internal/tollapi"
	"github.com/JonMunkholm/tollbatch/internal/web/middleware"
)

// Server is the HTTP server for the toll API.
type Server struct {
	cfg     *config.Config
	service *core.Service
	client  *tollapi.Client
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, service *core.Service, client *tollapi.Client) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		client:  client,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.ClientIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.With(s.requestTimeout).Post("/toll", s.handleToll)
		r.With(s.requestTimeout).Post("/fuel-price", s.handleFuelPrice)

		r.Route("/bulk", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Security))

			// Progress streams stay open for the length of a run.
			r.Get("/{runID}/progress", s.handleBulkProgress)

			r.Group(func(r chi.Router) {
				r.Use(s.requestTimeout)

				r.Get("/template", s.handleBulkTemplate)
				r.Get("/history", s.handleBulkHistory)
				r.Get("/status", s.handleBulkStatus)
				r.Post("/", s.handleBulkUpload)
				r.Get("/{runID}", s.handleBulkRun)
				r.Get("/{runID}/result", s.handleBulkResult)
				r.Post("/{runID}/cancel", s.handleBulkCancel)
			})
		})
	})

	// Paths used by the original single-page front end.
	s.router.With(s.requestTimeout).Post("/get_toll_data", s.handleToll)
	s.router.With(s.requestTimeout).Post("/get_fuel_price", s.handleFuelPrice)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sample_mode": s.client.SampleMode(),
		"runs":        s.service.LimiterStatus(),
	})
}

// requestTimeout cancels the request context after the configured timeout.
func (s *Server) requestTimeout(next http.Handler) http.Handler {
	if s.cfg.Server.RequestTimeout <= 0 {
		return next
	}
	return chimw.Timeout(s.cfg.Server.RequestTimeout)(next)
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
