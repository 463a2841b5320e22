package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patrimonio-inventory-backend/internal/models"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// AssetFilter narrows List. Zero values mean "no filter".
type AssetFilter struct {
	SectorID *uuid.UUID
	Statuses []models.AssetStatus
	Query    string
}

func (r *AssetRepository) List(ctx context.Context, filter AssetFilter) ([]models.Asset, error) {
	var assets []models.Asset

	q := r.db.WithContext(ctx).Model(&models.Asset{})
	if filter.SectorID != nil {
		q = q.Where("sector_id = ?", *filter.SectorID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		q = q.Where("LOWER(code) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	err := q.Order("code ASC").Find(&assets).Error
	return assets, err
}

// ListAll returns the whole registry.
func (r *AssetRepository) ListAll(ctx context.Context) ([]models.Asset, error) {
	return r.List(ctx, AssetFilter{})
}

func (r *AssetRepository) GetByCode(ctx context.Context, code string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).First(&asset, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// Codes returns registry codes that can be expected in a walkthrough: everything not
// decommissioned, optionally limited to one sector.
func (r *AssetRepository) Codes(ctx context.Context, sectorID *uuid.UUID) ([]string, error) {
	var codes []string

	q := r.db.WithContext(ctx).Model(&models.Asset{}).
		Where("status <> ?", models.AssetStatusDecommissioned)
	if sectorID != nil {
		q = q.Where("sector_id = ?", *sectorID)
	}

	err := q.Order("code ASC").Pluck("code", &codes).Error
	return codes, err
}

// AllCodes returns every registry code regardless of status.
func (r *AssetRepository) AllCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&models.Asset{}).Order("code ASC").Pluck("code", &codes).Error
	return codes, err
}

func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(asset).Error
}

// Upsert inserts assets, or refreshes the mutable columns of those whose code exists.
func (r *AssetRepository) Upsert(ctx context.Context, assets []models.Asset) (int64, error) {
	if len(assets) == 0 {
		return 0, nil
	}
	for i := range assets {
		if assets[i].ID == uuid.Nil {
			assets[i].ID = uuid.New()
		}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"description",
				"acquisition_date",
				"acquisition_value",
				"status",
				"sector_id",
				"depreciation_start_date",
				"useful_life_months",
				"updated_at",
			}),
		}).
		CreateInBatches(&assets, 200)
	return result.RowsAffected, result.Error
}
