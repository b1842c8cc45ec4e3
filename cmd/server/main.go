/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the store-flow ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment
  2. Initialize SQLite-backed tabular store
  3. Validate the report sheet schema (fail fast on drift)
  4. Create API handler with dependencies
  5. Start the expiry sweep scheduler
  6. Start server with graceful shutdown

CONFIGURATION (environment, prefix APP_):
  APP_ADDR                  listen address (default: :8080)
  APP_DB_PATH               SQLite database path (default: fluxo.db)
                            Use ":memory:" for an in-memory database
  APP_RESERVATION_MAX_AGE   reservation lifetime before expiry (default: 72h)
  APP_SWEEP_INTERVAL        scheduler check interval (default: 15m)
  APP_SWEEP_MIN_INTERVAL    cross-session sweep throttle (default: 5m)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sweep scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - api/scheduler.go: Background expiry sweeps
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/CelioCruz/fluxo-de-loja-DNZ/api"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/ledger"
	"github.com/CelioCruz/fluxo-de-loja-DNZ/store/sqlite"
)

// Config holds all runtime configuration, loaded from APP_* variables.
type Config struct {
	Addr              string        `envconfig:"ADDR" default:":8080"`
	DBPath            string        `envconfig:"DB_PATH" default:"fluxo.db"`
	ReservationMaxAge time.Duration `envconfig:"RESERVATION_MAX_AGE" default:"72h"`
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m"`
	SweepMinInterval  time.Duration `envconfig:"SWEEP_MIN_INTERVAL" default:"5m"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("APP", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// A report sheet with drifted columns would silently corrupt every
	// derived balance, so refuse to start.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ledger.CheckReportSchema(ctx, store); err != nil {
		cancel()
		log.Fatalf("Report sheet schema check failed: %v", err)
	}
	cancel()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.Sweeper.MinInterval = cfg.SweepMinInterval
	handler.MaxAge = cfg.ReservationMaxAge

	// Background expiry sweeps
	scheduler := api.NewSweepScheduler(handler.Sweeper, cfg.ReservationMaxAge)
	scheduler.CheckInterval = cfg.SweepInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on %s", cfg.Addr)
		log.Printf("📊 API available at %s/api", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
