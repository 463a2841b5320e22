package models

import (
	"time"

	"github.com/google/uuid"
)

// ConferenceRecord is the per-code reconciliation state inside one inventory session.
// Expected records start pending; scanned codes outside the expected set are stored
// with Expected=false and Discrepancy=true.
type ConferenceRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conference_session_code" json:"session_id"`
	Code             string     `gorm:"not null;uniqueIndex:idx_conference_session_code" json:"code"`
	Expected         bool       `json:"expected"`
	Conferred        bool       `gorm:"index" json:"conferred"`
	Discrepancy      bool       `json:"discrepancy"`
	FirstConferredAt *time.Time `json:"first_conferred_at,omitempty"`
	LastScannedAt    *time.Time `json:"last_scanned_at,omitempty"`
	ScanCount        int        `json:"scan_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
