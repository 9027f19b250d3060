package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matteobad/badget-sync/internal/api_gateway/handler"
	"github.com/matteobad/badget-sync/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	snapshotHandler *handler.SnapshotHandler,
	syncHandler *handler.SyncHandler,
	importHandler *handler.ImportHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Ledger transaction operations
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.PATCH("/:id", transactionHandler.Update)
			transactions.DELETE("/:id", transactionHandler.Delete)
		}
		v1.DELETE("/transfers/:id", transactionHandler.DeleteTransferGroup)

		// Account-scoped reads and imports
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id/transactions", transactionHandler.ListByAccount)
			accounts.GET("/:id/snapshots", snapshotHandler.ListByAccount)
			accounts.POST("/:id/recalculate", snapshotHandler.Recalculate)
			accounts.POST("/:id/import", importHandler.Import)
		}

		// Sync orchestration
		connections := v1.Group("/connections")
		{
			connections.POST("/:id/sync", syncHandler.TriggerSync)
		}
		v1.GET("/sync-runs", syncHandler.ListSyncRuns)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
