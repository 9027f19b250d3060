package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/matteobad/badget-sync/internal/balance"
	"github.com/matteobad/badget-sync/internal/config"
	"github.com/matteobad/badget-sync/internal/data/mongo"
	"github.com/matteobad/badget-sync/internal/data/postgres"
	"github.com/matteobad/badget-sync/internal/logger"
	"github.com/matteobad/badget-sync/internal/normalize"
	"github.com/matteobad/badget-sync/internal/platform/messaging/consumers"
	"github.com/matteobad/badget-sync/internal/platform/messaging/producers"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
	"github.com/matteobad/badget-sync/internal/provider"
	"github.com/matteobad/badget-sync/internal/syncer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Sync Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	connectionRepo := postgres.NewConnectionRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	snapshotRepo := postgres.NewSnapshotRepository(log, postgresDB)
	syncLogRepo := mongo.NewSyncLogRepository(log, mongoDB.Database())

	// Initialize Kafka consumer and producers
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	taskProducer, err := producers.NewSyncTaskProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sync task producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A nil *DLQProducer stored in the interface would defeat the handler's
	// nil check, so the interface stays nil when the DLQ is disabled.
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	// Provider clients are registered here as integrations come online.
	providerRegistry := provider.NewRegistry()

	// Assemble the sync pipeline
	engine := balance.NewEngine(postgresDB, accountRepo, transactionRepo, snapshotRepo, log)
	normalizer := normalize.NewNormalizer(log)
	healthChecker := syncer.NewHealthChecker(connectionRepo, accountRepo, log)

	connectionSyncer := syncer.NewConnectionSyncer(
		connectionRepo,
		accountRepo,
		providerRegistry,
		taskProducer,
		syncLogRepo,
		cfg.Sync.FanOutDelay,
		log,
	)
	accountSyncer := syncer.NewAccountSyncer(
		accountRepo,
		providerRegistry,
		normalizer,
		taskProducer,
		syncLogRepo,
		healthChecker,
		cfg.Sync.UpsertBatchSize,
		cfg.Sync.BackgroundLookback,
		log,
	)
	upserter := syncer.NewUpserter(transactionRepo, engine, log)
	dispatcher := syncer.NewDispatcher(connectionSyncer, accountSyncer, upserter)

	pooledProcessor, err := syncer.NewWorkerPoolProcessor(dispatcher, syncer.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	taskHandler := syncer.NewTaskEventHandler(log, pooledProcessor, taskProducer, deadLetters)

	scheduler := syncer.NewScheduler(connectionRepo, taskProducer, cfg.Sync.SchedulerInterval, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SyncTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.SyncTopic, cfg.Kafka.ConsumerGroup, taskHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start background sync scheduler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	pooledProcessor.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producers and consumer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = taskProducer.Close(); err != nil {
		log.Error("Error closing sync task producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Sync Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Sync Worker shutdown completed with errors")
	} else {
		log.Info("Sync Worker shutdown completed successfully")
	}
}
