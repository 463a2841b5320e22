package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/repository"
	"patrimonio-inventory-backend/internal/services/inventory"
	service "patrimonio-inventory-backend/internal/services/reconciliation"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

type AssetHandler struct {
	assets  *repository.AssetRepository
	sectors *repository.SectorRepository
	service *service.ReconciliationService
}

func NewAssetHandler(assets *repository.AssetRepository, sectors *repository.SectorRepository, s *service.ReconciliationService) *AssetHandler {
	return &AssetHandler{assets: assets, sectors: sectors, service: s}
}

// ListAssets filters by sector_id, status (repeatable or comma separated) and q.
func (h *AssetHandler) ListAssets(c *gin.Context) {
	sectorID, err := optionalUUID(c.Query("sector_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sector ID"})
		return
	}

	filter := repository.AssetFilter{SectorID: sectorID, Query: strings.TrimSpace(c.Query("q"))}
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			status := models.AssetStatus(strings.TrimSpace(s))
			if status == "" {
				continue
			}
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status " + string(status)})
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	items, err := h.assets.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "ListAssets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

type createAssetRequest struct {
	Code                  string          `json:"code" binding:"required,max=64"`
	Description           string          `json:"description" binding:"max=255"`
	AcquisitionDate       string          `json:"acquisition_date"`
	AcquisitionValue      decimal.Decimal `json:"acquisition_value"`
	Status                string          `json:"status" binding:"omitempty,oneof=in_use in_maintenance idle decommissioned"`
	SectorID              string          `json:"sector_id" binding:"omitempty,uuid"`
	DepreciationStartDate string          `json:"depreciation_start_date"`
	UsefulLifeMonths      *int            `json:"useful_life_months" binding:"omitempty,min=1"`
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var payload createAssetRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	code := inventory.NormalizeCode(payload.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	if payload.AcquisitionValue.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "acquisition_value must not be negative"})
		return
	}

	asset := models.Asset{
		Code:             code,
		Description:      payload.Description,
		AcquisitionValue: payload.AcquisitionValue,
		Status:           models.AssetStatusInUse,
		UsefulLifeMonths: payload.UsefulLifeMonths,
	}
	if payload.Status != "" {
		asset.Status = models.AssetStatus(payload.Status)
	}
	if payload.AcquisitionDate != "" {
		d, err := spreadsheet.ParseDate(payload.AcquisitionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid acquisition_date, expected yyyy-mm-dd or dd/mm/yyyy"})
			return
		}
		asset.AcquisitionDate = d
	}
	if payload.DepreciationStartDate != "" {
		d, err := spreadsheet.ParseDate(payload.DepreciationStartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid depreciation_start_date, expected yyyy-mm-dd or dd/mm/yyyy"})
			return
		}
		asset.DepreciationStartDate = &d
	}
	// sector_id already passed the uuid rule.
	asset.SectorID, _ = optionalUUID(payload.SectorID)

	if err := h.assets.Create(c.Request.Context(), &asset); err != nil {
		respondError(c, "CreateAsset", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "asset created", "asset": asset})
}

// UploadAssets imports a registry export (.xlsx or .csv) and upserts it by code.
func (h *AssetHandler) UploadAssets(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	rows, err := spreadsheet.ReadRows(file, header.Filename, c.PostForm("sheet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.ImportAssets(c.Request.Context(), rows)
	if err != nil {
		respondError(c, "UploadAssets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file":            header.Filename,
		"rows":            result.Rows,
		"upserted":        result.Upserted,
		"sectors_created": result.SectorsCreated,
		"errors":          result.Errors,
	})
}

func (h *AssetHandler) ListSectors(c *gin.Context) {
	sectors, err := h.sectors.List(c.Request.Context())
	if err != nil {
		respondError(c, "ListSectors", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sectors})
}

func (h *AssetHandler) CreateSector(c *gin.Context) {
	var payload struct {
		Name string `json:"name" binding:"required,max=120"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	sector, err := h.sectors.Create(c.Request.Context(), name)
	if err != nil {
		respondError(c, "CreateSector", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "sector created", "sector": sector})
}
