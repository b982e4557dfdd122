// Package api provides the HTTP REST API for Shoplane Core.
//
// It exposes session endpoints (register, login, refresh, logout) and
// permission-gated management endpoints (users, roles, audit) to storefront
// and admin clients.
//
// The server follows a simple lifecycle:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shoplane/shoplane-core/internal/audit"
	"github.com/shoplane/shoplane-core/internal/auth"
	"github.com/shoplane/shoplane-core/internal/infrastructure/config"
	"github.com/shoplane/shoplane-core/internal/infrastructure/database"
	"github.com/shoplane/shoplane-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Metrics  config.MetricsConfig
	Logger   *logging.Logger
	Sessions *auth.Service
	Codec    *auth.TokenCodec
	Users    auth.UserStore
	Roles    auth.RoleStore
	Hasher   *auth.PasswordHasher
	Audit    audit.Recorder
	DB       *database.DB
	Version  string
}

// Server is the HTTP API server for Shoplane Core.
//
// It manages the HTTP listener, routes and middleware. The server is created
// with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	secCfg   config.SecurityConfig
	metrics  config.MetricsConfig
	logger   *logging.Logger
	sessions *auth.Service
	codec    *auth.TokenCodec
	users    auth.UserStore
	roles    auth.RoleStore
	hasher   *auth.PasswordHasher
	audit    audit.Recorder
	db       *database.DB
	version  string
	server   *http.Server
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if deps.Codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if deps.Roles == nil {
		return nil, fmt.Errorf("role store is required")
	}

	return &Server{
		cfg:      deps.Config,
		secCfg:   deps.Security,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		sessions: deps.Sessions,
		codec:    deps.Codec,
		users:    deps.Users,
		roles:    deps.Roles,
		hasher:   deps.Hasher,
		audit:    deps.Audit,
		db:       deps.DB,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	router := s.buildRouter(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
// It waits up to 10 seconds for in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
