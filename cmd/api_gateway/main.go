package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matteobad/badget-sync/internal/api_gateway"
	"github.com/matteobad/badget-sync/internal/balance"
	"github.com/matteobad/badget-sync/internal/config"
	"github.com/matteobad/badget-sync/internal/data/mongo"
	"github.com/matteobad/badget-sync/internal/data/postgres"
	"github.com/matteobad/badget-sync/internal/importer"
	"github.com/matteobad/badget-sync/internal/ledger"
	"github.com/matteobad/badget-sync/internal/logger"
	"github.com/matteobad/badget-sync/internal/normalize"
	"github.com/matteobad/badget-sync/internal/platform/messaging/producers"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for sync tasks
	taskProducer, err := producers.NewSyncTaskProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sync task producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	connectionRepo := postgres.NewConnectionRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	snapshotRepo := postgres.NewSnapshotRepository(log, postgresDB)
	syncLogRepo := mongo.NewSyncLogRepository(log, mongoDB.Database())

	// Initialize services
	engine := balance.NewEngine(postgresDB, accountRepo, transactionRepo, snapshotRepo, log)
	ledgerService := ledger.NewService(postgresDB, accountRepo, transactionRepo, engine, log)
	normalizer := normalize.NewNormalizer(log)
	importService := importer.NewService(
		accountRepo,
		transactionRepo,
		engine,
		normalizer,
		syncLogRepo,
		cfg.Import.ChunkSize,
		log,
	)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, api_gateway.Dependencies{
		LedgerService: ledgerService,
		ImportService: importService,
		Transactions:  transactionRepo,
		Accounts:      accountRepo,
		Connections:   connectionRepo,
		Snapshots:     snapshotRepo,
		SyncLog:       syncLogRepo,
		TaskPublisher: taskProducer,
		Engine:        engine,
	})
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

	if err = taskProducer.Close(); err != nil {
		log.Error("Error closing sync task producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

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
