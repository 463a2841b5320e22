package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetStatus string

const (
	AssetStatusInUse          AssetStatus = "in_use"
	AssetStatusInMaintenance  AssetStatus = "in_maintenance"
	AssetStatusIdle           AssetStatus = "idle"
	AssetStatusDecommissioned AssetStatus = "decommissioned"
)

// Valid reports whether s is one of the known registry statuses.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusInUse, AssetStatusInMaintenance, AssetStatusIdle, AssetStatusDecommissioned:
		return true
	}
	return false
}

type Sector struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Asset struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code                  string          `gorm:"uniqueIndex;not null" json:"code"`
	Description           string          `json:"description"`
	AcquisitionDate       time.Time       `json:"acquisition_date"`
	AcquisitionValue      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"acquisition_value"`
	Status                AssetStatus     `gorm:"index;not null" json:"status"`
	SectorID              *uuid.UUID      `gorm:"type:uuid;index" json:"sector_id,omitempty"`
	DepreciationStartDate *time.Time      `json:"depreciation_start_date,omitempty"`
	UsefulLifeMonths      *int            `json:"useful_life_months,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}
