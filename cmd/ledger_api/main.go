package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/famvault/custodial-ledger/internal/api"
	"github.com/famvault/custodial-ledger/internal/config"
	"github.com/famvault/custodial-ledger/internal/data/postgres"
	"github.com/famvault/custodial-ledger/internal/domain/policy"
	"github.com/famvault/custodial-ledger/internal/ledger"
	"github.com/famvault/custodial-ledger/internal/logger"
	"github.com/famvault/custodial-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Build the distribution policy. A table that does not account for the
	// whole deposit keeps the process from starting.
	pol, err := buildPolicy(&cfg.Ledger)
	if err != nil {
		log.Error("Failed to build distribution policy", "error", err)
		os.Exit(1)
	}
	log.Info("Distribution policy loaded",
		"reserve_pct", cfg.Ledger.ReservePct,
		"categories", pol.Categories(),
	)

	// Initialize PostgreSQL with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	distributionRepo := postgres.NewDistributionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize the allocation engine
	engine := ledger.NewEngine(
		log,
		postgresDB,
		accountRepo,
		transactionRepo,
		distributionRepo,
		outboxRepo,
		pol,
		cfg.Ledger.Currency,
	)

	// Initialize REST server
	server := api.NewServer(log, cfg, engine, engine)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

// buildPolicy parses the configured reserve fraction and category weight
// table into a validated policy.
func buildPolicy(cfg *config.LedgerConfig) (*policy.Policy, error) {
	reservePct, err := decimal.NewFromString(cfg.ReservePct)
	if err != nil {
		return nil, fmt.Errorf("invalid reserve fraction %q: %w", cfg.ReservePct, err)
	}

	weights, err := policy.ParseWeights(cfg.CategoryWeights)
	if err != nil {
		return nil, err
	}

	return policy.New(reservePct, weights)
}
