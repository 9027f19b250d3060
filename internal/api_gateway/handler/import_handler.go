package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/importer"
)

// ImportHandler handles CSV file uploads into an account's ledger
type ImportHandler struct {
	importService *importer.Service
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(logger *slog.Logger, importService *importer.Service) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Import runs a CSV import against one account. The request is multipart:
// the file under "file", the column mapping under "date_column",
// "description_column", "amount_column" and optional "currency_column",
// plus an optional "inverted" flag.
func (h *ImportHandler) Import(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	mapping := importer.FieldMapping{
		Date:        c.PostForm("date_column"),
		Description: c.PostForm("description_column"),
		Amount:      c.PostForm("amount_column"),
		Currency:    c.PostForm("currency_column"),
	}
	if mapping.Date == "" || mapping.Description == "" || mapping.Amount == "" {
		RespondBadRequest(c, "date_column, description_column and amount_column are required")
		return
	}

	inverted := false
	if raw := c.PostForm("inverted"); raw != "" {
		if inverted, err = strconv.ParseBool(raw); err != nil {
			RespondBadRequest(c, "Invalid inverted flag")
			return
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondBadRequest(c, "Missing file upload")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	summary, rejected, err := h.importService.Import(c.Request.Context(), importer.Params{
		OrganizationID: orgID,
		AccountID:      accountID,
		Mapping:        mapping,
		Settings:       importer.Settings{Inverted: inverted},
	}, file)
	if err != nil {
		h.respondImportError(c, err)
		return
	}

	RespondOK(c, mapImportToResponse(summary, rejected))
}

func (h *ImportHandler) respondImportError(c *gin.Context, err error) {
	var accountNotFound account.ErrAccountNotFound
	var missingColumn importer.ErrMissingColumn

	switch {
	case errors.As(err, &accountNotFound), errors.Is(err, shared.ErrOrganizationMismatch):
		RespondNotFound(c, "")
	case errors.As(err, &missingColumn), errors.Is(err, importer.ErrEmptyFile):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Import failed", "error", err)
		RespondInternalError(c)
	}
}
