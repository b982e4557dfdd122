package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	if s.metrics.Enabled {
		registerMetrics()
		r.Use(instrumentMiddleware)
	}
	if s.secCfg.RateLimit.Enabled {
		r.Use(s.rateLimitMiddleware(ctx))
	}

	// Prometheus scrape endpoint (no auth; expose internally only)
	if s.metrics.Enabled {
		r.Handle("/metrics", metricsHandler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Session endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/password", s.handleChangePassword)

			// User management
			r.Route("/users", func(r chi.Router) {
				r.With(s.requirePermission("user", "view")).Get("/", s.handleListUsers)
				r.With(s.requirePermission("user", "create")).Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission("user", "view")).Get("/", s.handleGetUser)
					r.With(s.requirePermission("user", "edit")).Patch("/", s.handleUpdateUser)
					r.With(s.requirePermission("user", "edit")).Put("/status", s.handleSetUserStatus)
					r.With(s.requirePermission("user", "delete")).Delete("/", s.handleDeleteUser)
				})
			})

			// Role management
			r.Route("/roles", func(r chi.Router) {
				r.With(s.requirePermission("role", "view")).Get("/", s.handleListRoles)
				r.With(s.requirePermission("role", "create")).Post("/", s.handleCreateRole)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission("role", "view")).Get("/", s.handleGetRole)
					r.With(s.requirePermission("role", "edit")).Put("/permissions", s.handleSetRolePermissions)
				})
			})

			// Audit trail
			r.With(s.requirePermission("audit", "view")).Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// handleHealth returns the server health status, including database
// connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "degraded",
				"version": s.version,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
	})
}
