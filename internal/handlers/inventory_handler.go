package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

const (
	suggestionLimit = 3
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ScanFeed streams the scans of one session. It is nil when Redis is not configured.
type ScanFeed interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan inventory.ScanNotification, func(), error)
}

type InventoryHandler struct {
	engine   *inventory.Engine
	registry inventory.CodeSource
	feed     ScanFeed
}

func NewInventoryHandler(engine *inventory.Engine, registry inventory.CodeSource, feed ScanFeed) *InventoryHandler {
	return &InventoryHandler{engine: engine, registry: registry, feed: feed}
}

type createSessionRequest struct {
	Description string   `json:"description" binding:"max=200"`
	Codes       []string `json:"codes"`
	SectorID    string   `json:"sector_id" binding:"omitempty,uuid"`
	AllAssets   bool     `json:"all_assets"`
	PerformedBy string   `json:"performed_by" binding:"max=120"`
}

// CreateSession opens a session from an explicit code list, a sector, or the whole registry.
func (h *InventoryHandler) CreateSession(c *gin.Context) {
	var payload createSessionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	sources := 0
	if len(payload.Codes) > 0 {
		sources++
	}
	if payload.SectorID != "" {
		sources++
	}
	if payload.AllAssets {
		sources++
	}
	if sources != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of codes, sector_id or all_assets is required"})
		return
	}

	ctx := c.Request.Context()
	var (
		id  uuid.UUID
		err error
	)
	switch {
	case payload.SectorID != "":
		id, err = h.engine.OpenForSector(ctx, h.registry, payload.Description, uuid.MustParse(payload.SectorID), payload.PerformedBy)
	case payload.AllAssets:
		id, err = h.engine.OpenForRegistry(ctx, h.registry, payload.Description, payload.PerformedBy)
	default:
		id, err = h.engine.Open(ctx, inventory.OpenInput{
			Description: payload.Description,
			Codes:       payload.Codes,
			PerformedBy: payload.PerformedBy,
		})
	}
	if err != nil {
		respondError(c, "CreateSession", err)
		return
	}

	snap, err := h.engine.Get(id)
	if err != nil {
		respondError(c, "CreateSession", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "session opened", "session": snap.Session, "expected": len(snap.Records)})
}

func (h *InventoryHandler) ListSessions(c *gin.Context) {
	status := models.SessionStatus(c.Query("status"))
	if status != "" && status != models.SessionStatusOpen && status != models.SessionStatusClosed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open or closed"})
		return
	}

	snaps := h.engine.List(status)
	items := make([]gin.H, 0, len(snaps))
	for _, s := range snaps {
		pending := 0
		unexpected := 0
		for _, r := range s.Records {
			switch {
			case !r.Expected:
				unexpected++
			case !r.Conferred:
				pending++
			}
		}
		items = append(items, gin.H{
			"session":    s.Session,
			"records":    len(s.Records),
			"pending":    pending,
			"unexpected": unexpected,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *InventoryHandler) GetSession(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	snap, err := h.engine.Get(id)
	if err != nil {
		respondError(c, "GetSession", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *InventoryHandler) AddCodes(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	var payload struct {
		Codes       []string `json:"codes" binding:"required,min=1"`
		PerformedBy string   `json:"performed_by" binding:"max=120"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	added, err := h.engine.AddExpectedCodes(c.Request.Context(), id, payload.Codes, payload.PerformedBy)
	if err != nil {
		respondError(c, "AddCodes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "codes added", "added": added})
}

func (h *InventoryHandler) CloseSession(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	var payload struct {
		PerformedBy string `json:"performed_by"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&payload)

	if err := h.engine.Close(c.Request.Context(), id, payload.PerformedBy); err != nil {
		respondError(c, "CloseSession", err)
		return
	}
	outcome, err := h.engine.Outcome(id)
	if err != nil {
		respondError(c, "CloseSession", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session closed", "outcome": outcome})
}

// RecordScan registers one code read. Unexpected codes come back with the closest
// missing codes so the operator can spot a mistyped or misread label.
func (h *InventoryHandler) RecordScan(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	var payload struct {
		Code        string     `json:"code" binding:"required"`
		ScannedAt   *time.Time `json:"scanned_at"`
		PerformedBy string     `json:"performed_by" binding:"max=120"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	ev := inventory.ScanEvent{SessionID: id, Code: payload.Code, PerformedBy: payload.PerformedBy}
	if payload.ScannedAt != nil {
		ev.ScannedAt = *payload.ScannedAt
	}
	res, err := h.engine.RecordScan(c.Request.Context(), ev)
	if err != nil {
		respondError(c, "RecordScan", err)
		return
	}

	body := gin.H{"outcome": res.Outcome, "record": res.Record}
	if res.Outcome == inventory.OutcomeUnexpected {
		suggestions, err := h.engine.Suggest(id, res.Record.Code, suggestionLimit)
		if err == nil {
			body["suggestions"] = suggestions
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *InventoryHandler) GetOutcome(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	outcome, err := h.engine.Outcome(id)
	if err != nil {
		respondError(c, "GetOutcome", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ExportSession downloads the session as an Excel workbook.
func (h *InventoryHandler) ExportSession(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	snap, err := h.engine.Get(id)
	if err != nil {
		respondError(c, "ExportSession", err)
		return
	}
	outcome, err := h.engine.Outcome(id)
	if err != nil {
		respondError(c, "ExportSession", err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteSessionReport(&buf, snap, outcome); err != nil {
		respondError(c, "ExportSession", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="session-%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// SessionEvents streams scans of one session as server-sent events.
func (h *InventoryHandler) SessionEvents(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "session")
	if !ok {
		return
	}
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed requires redis"})
		return
	}
	if _, err := h.engine.Get(id); err != nil {
		respondError(c, "SessionEvents", err)
		return
	}

	ctx := c.Request.Context()
	feed, stop, err := h.feed.Subscribe(ctx, id)
	if err != nil {
		respondError(c, "SessionEvents", err)
		return
	}
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case scan, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent("scan", scan)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
