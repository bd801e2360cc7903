/*
main.go - Application entry point

PURPOSE:
  Starts the payroll engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Read configuration (flags, defaulting to environment variables)
  2. Load tax tables (embedded, or -tables file)
  3. Open SQLite store and seed the standard pay item catalog
  4. Create API handler and router
  5. Start server with graceful shutdown

CONFIGURATION:
  -port              PORT              HTTP server port (default: 8080)
  -db                DATABASE_PATH     SQLite database path (default: payroll.db)
                                       Use ":memory:" for in-memory database
  -tables            TAX_TABLES_PATH   YAML tax tables (default: embedded)
  -log-level         LOG_LEVEL         debug|info|warn|error (default: info)
  -cors-origins      CORS_ORIGINS      comma-separated origins
  -shutdown-timeout  SHUTDOWN_TIMEOUT  default 30s

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/payroll.db"
  ./server -db=":memory:" -tables=./tables-2026.yaml
  PORT=3000 LOG_LEVEL=debug ./server

SEE ALSO:
  - api/server.go: Router configuration
  - tax/factory.go: Tax table loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folha/payroll-engine/api"
	"github.com/folha/payroll-engine/payroll"
	"github.com/folha/payroll-engine/store/sqlite"
	"github.com/folha/payroll-engine/tax"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	logger := initLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	tables := tax.Default()
	if cfg.TaxTablesPath != "" {
		loaded, err := tax.LoadFile(cfg.TaxTablesPath)
		if err != nil {
			return fmt.Errorf("load tax tables: %w", err)
		}
		tables = loaded
	}
	for _, t := range tables.Tables() {
		logger.Debug("tax table loaded", "name", t.Name, "effective_from", t.EffectiveFrom.String())
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	if err := store.SeedCatalog(context.Background(), payroll.StandardItems()); err != nil {
		return fmt.Errorf("seed pay items: %w", err)
	}

	handler := api.NewHandler(store, payroll.NewEngine(tables), logger)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.AllowedOrigins})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "db", cfg.DatabasePath, "tax_tables", len(tables.Tables()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
