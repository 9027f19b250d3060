package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matteobad/badget-sync/internal/api_gateway/handler"
	"github.com/matteobad/badget-sync/internal/balance"
	"github.com/matteobad/badget-sync/internal/config"
	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/connection"
	"github.com/matteobad/badget-sync/internal/domain/snapshot"
	"github.com/matteobad/badget-sync/internal/domain/synclog"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/importer"
	"github.com/matteobad/badget-sync/internal/ledger"
	"github.com/matteobad/badget-sync/internal/syncer"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// Dependencies collects everything the HTTP surface needs
type Dependencies struct {
	LedgerService *ledger.Service
	ImportService *importer.Service
	Transactions  transaction.Repository
	Accounts      account.Repository
	Connections   connection.Repository
	Snapshots     snapshot.Repository
	SyncLog       synclog.Repository
	TaskPublisher syncer.TaskPublisher
	Engine        *balance.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	transactionHandler := handler.NewTransactionHandler(log, deps.LedgerService, deps.Transactions, deps.Accounts)
	snapshotHandler := handler.NewSnapshotHandler(log, deps.Accounts, deps.Snapshots, deps.Engine)
	syncHandler := handler.NewSyncHandler(log, deps.Connections, deps.TaskPublisher, deps.SyncLog)
	importHandler := handler.NewImportHandler(log, deps.ImportService)

	setupRouter(log, httpRouter, transactionHandler, snapshotHandler, syncHandler, importHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
