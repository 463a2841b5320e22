package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

type InventorySession struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Description string        `json:"description"`
	Status      SessionStatus `gorm:"index;not null" json:"status"`
	SectorID    *uuid.UUID    `gorm:"type:uuid;index" json:"sector_id,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
