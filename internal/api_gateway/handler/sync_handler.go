package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/connection"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/synclog"
	"github.com/matteobad/badget-sync/internal/syncer"
)

// syncRunsDefaultLimit bounds the sync-run history returned per request
const syncRunsDefaultLimit = 50

// SyncHandler handles HTTP requests for sync orchestration
type SyncHandler struct {
	connections connection.Repository
	publisher   syncer.TaskPublisher
	syncLog     synclog.Repository
	logger      *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, connections connection.Repository, publisher syncer.TaskPublisher, syncLog synclog.Repository) *SyncHandler {
	return &SyncHandler{
		connections: connections,
		publisher:   publisher,
		syncLog:     syncLog,
		logger:      logger,
	}
}

// TriggerSync enqueues a manual, full-history sync of one connection
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid connection ID")
		return
	}

	conn, err := h.connections.GetByID(c.Request.Context(), connectionID)
	if err != nil {
		var notFound connection.ErrConnectionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "")
			return
		}
		h.logger.Error("Failed to load connection", "connection_id", connectionID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if conn.OrganizationID != orgID {
		RespondNotFound(c, "")
		return
	}

	task, err := shared.NewSyncTask(shared.TaskKindSyncConnection, &shared.SyncConnectionPayload{
		ConnectionID: connectionID,
		ManualSync:   true,
	})
	if err != nil {
		h.logger.Error("Failed to build sync task", "connection_id", connectionID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), connectionID.String(), task); err != nil {
		h.logger.Error("Failed to enqueue sync task", "connection_id", connectionID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	h.logger.Info("Manual sync enqueued", "connection_id", connectionID.String())
	RespondAccepted(c, gin.H{"connection_id": connectionID.String(), "status": "enqueued"})
}

// ListSyncRuns returns the organization's recent sync and import runs
func (h *SyncHandler) ListSyncRuns(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	entries, err := h.syncLog.ListByOrganization(c.Request.Context(), orgID, syncRunsDefaultLimit)
	if err != nil {
		h.logger.Error("Failed to list sync runs", "organization_id", orgID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]SyncRunResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapSyncRunToResponse(entry))
	}
	RespondOK(c, responses)
}
