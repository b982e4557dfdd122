// Shoplane Core - E-commerce Platform Auth Service
//
// This is the main entry point for the Shoplane Core application. It provides
// the authentication and role-based authorisation backbone for the platform:
// account registration and login, access/refresh token lifecycle, and
// permission-gated management endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/shoplane/shoplane-core/migrations"

	"github.com/shoplane/shoplane-core/internal/api"
	"github.com/shoplane/shoplane-core/internal/audit"
	"github.com/shoplane/shoplane-core/internal/auth"
	"github.com/shoplane/shoplane-core/internal/infrastructure/config"
	"github.com/shoplane/shoplane-core/internal/infrastructure/database"
	"github.com/shoplane/shoplane-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Shoplane Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")

	// Wire the auth core
	userStore := auth.NewUserStore(db.DB)
	roleStore := auth.NewRoleStore(db.DB)
	hasher := auth.NewPasswordHasher(cfg.Security.Password.BcryptCost)
	codec := auth.NewTokenCodec(cfg.Security.JWT.Secret, cfg.AccessTokenTTL())
	cache := auth.NewPermissionCache(roleStore, cfg.PermissionCacheTTL())
	sessions := auth.NewService(userStore, roleStore, hasher, codec, cache, log.With("component", "auth"))
	recorder := audit.NewSQLiteRecorder(db.DB)

	// Seed the first admin account on an empty database
	if _, err := auth.SeedAdmin(ctx, userStore, roleStore, hasher, log.Logger); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	// Start the HTTP API
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Metrics:  cfg.Metrics,
		Logger:   log.With("component", "api"),
		Sessions: sessions,
		Codec:    codec,
		Users:    userStore,
		Roles:    roleStore,
		Hasher:   hasher,
		Audit:    recorder,
		DB:       db,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Shoplane Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SHOPLANE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SHOPLANE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
