package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"patrimonio-inventory-backend/internal/services/reporting"
)

type DashboardHandler struct {
	dashboard *reporting.Dashboard
}

func NewDashboardHandler(d *reporting.Dashboard) *DashboardHandler {
	return &DashboardHandler{dashboard: d}
}

// GetDashboard returns the stat cards for ?month=YYYY-MM, defaulting to the current month.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	var ref time.Time
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month, expected YYYY-MM"})
			return
		}
		ref = parsed
	}

	summary, err := h.dashboard.Summary(c.Request.Context(), ref)
	if err != nil {
		respondError(c, "GetDashboard", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
