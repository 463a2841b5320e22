package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	service "patrimonio-inventory-backend/internal/services/reconciliation"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

type ReconciliationHandler struct {
	service *service.ReconciliationService
}

func NewReconciliationHandler(s *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// Upload diffs one column of an uploaded spreadsheet against the registry.
// Query: column (header caption or letter, default A), sheet, sector_id.
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	sectorID, err := optionalUUID(c.Query("sector_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sector ID"})
		return
	}

	rows, err := spreadsheet.ReadRows(file, header.Filename, c.Query("sheet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.ReconcileSheet(c.Request.Context(), rows, c.DefaultQuery("column", "A"), sectorID)
	if err != nil {
		respondError(c, "Upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file":   header.Filename,
		"clean":  report.Clean(),
		"report": report,
	})
}
