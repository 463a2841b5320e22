package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionOpen     = "open"
	AuditActionAddCodes = "add_codes"
	AuditActionScan     = "scan"
	AuditActionClose    = "close"
)

type ConferenceAuditLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID      `gorm:"type:uuid;index" json:"session_id"`
	Code        string         `json:"code,omitempty"`
	Action      string         `json:"action"`
	Outcome     string         `json:"outcome,omitempty"`
	PerformedBy string         `json:"performed_by,omitempty"`
	Details     datatypes.JSON `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
