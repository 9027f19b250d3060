package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/balance"
	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/snapshot"
)

// SnapshotHandler handles HTTP requests for balance snapshot reads and
// on-demand recalculation
type SnapshotHandler struct {
	accounts  account.Repository
	snapshots snapshot.Repository
	engine    *balance.Engine
	logger    *slog.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(logger *slog.Logger, accounts account.Repository, snapshots snapshot.Repository, engine *balance.Engine) *SnapshotHandler {
	return &SnapshotHandler{
		accounts:  accounts,
		snapshots: snapshots,
		engine:    engine,
		logger:    logger,
	}
}

// ListByAccount returns the account's daily closing balances in a date range.
// The range defaults to the trailing year.
func (h *SnapshotHandler) ListByAccount(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), accountID)
	if err != nil {
		var notFound account.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "")
			return
		}
		h.logger.Error("Failed to load account", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if acc.OrganizationID != orgID {
		RespondNotFound(c, "")
		return
	}

	to := time.Now()
	from := to.AddDate(-1, 0, 0)
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			RespondBadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			RespondBadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
	}

	snaps, err := h.snapshots.ListByAccount(c.Request.Context(), accountID, from, to)
	if err != nil {
		h.logger.Error("Failed to list snapshots", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		responses = append(responses, mapSnapshotToResponse(snap))
	}
	RespondOK(c, responses)
}

// Recalculate rebuilds the account's whole snapshot series from its earliest
// transaction. Recovery hatch for series corrupted by out-of-band changes.
func (h *SnapshotHandler) Recalculate(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), accountID)
	if err != nil {
		var notFound account.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "")
			return
		}
		h.logger.Error("Failed to load account", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if acc.OrganizationID != orgID {
		RespondNotFound(c, "")
		return
	}

	if err := h.engine.ForceRecalculateAll(c.Request.Context(), accountID); err != nil {
		h.logger.Error("Failed to recalculate snapshots", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"status": "recalculated"})
}
