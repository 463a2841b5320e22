package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"patrimonio-inventory-backend/internal/models"
)

type SectorRepository struct {
	db *gorm.DB
}

func NewSectorRepository(db *gorm.DB) *SectorRepository {
	return &SectorRepository{db: db}
}

func (r *SectorRepository) Create(ctx context.Context, name string) (*models.Sector, error) {
	sector := &models.Sector{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(sector).Error; err != nil {
		return nil, err
	}
	return sector, nil
}

func (r *SectorRepository) List(ctx context.Context) ([]models.Sector, error) {
	var sectors []models.Sector
	err := r.db.WithContext(ctx).Order("name ASC").Find(&sectors).Error
	return sectors, err
}

// FindByName returns nil, nil when no sector has that name.
func (r *SectorRepository) FindByName(ctx context.Context, name string) (*models.Sector, error) {
	var sectors []models.Sector
	if err := r.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&sectors).Error; err != nil {
		return nil, err
	}
	if len(sectors) == 0 {
		return nil, nil
	}
	return &sectors[0], nil
}
