package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patrimonio-inventory-backend/internal/models"
)

// SessionRepository persists inventory sessions and their conference records. Every
// write goes through one transaction together with its audit entry.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session models.InventorySession, records []models.ConferenceRecord, audit models.ConferenceAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		if len(records) > 0 {
			if err := tx.CreateInBatches(&records, 500).Error; err != nil {
				return err
			}
		}
		return tx.Create(&audit).Error
	})
}

func (r *SessionRepository) SaveRecords(ctx context.Context, records []models.ConferenceRecord, audit models.ConferenceAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"expected",
				"conferred",
				"discrepancy",
				"first_conferred_at",
				"last_scanned_at",
				"scan_count",
				"updated_at",
			}),
		}).Create(&records).Error
		if err != nil {
			return err
		}
		return tx.Create(&audit).Error
	})
}

func (r *SessionRepository) CloseSession(ctx context.Context, sessionID uuid.UUID, endedAt time.Time, audit models.ConferenceAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InventorySession{}).
			Where("id = ? AND status = ?", sessionID, models.SessionStatusOpen).
			Updates(map[string]interface{}{
				"status":   models.SessionStatusClosed,
				"ended_at": endedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&audit).Error
	})
}

func (r *SessionRepository) LoadSessions(ctx context.Context) ([]models.InventorySession, []models.ConferenceRecord, error) {
	var sessions []models.InventorySession
	if err := r.db.WithContext(ctx).Order("started_at ASC").Find(&sessions).Error; err != nil {
		return nil, nil, err
	}
	var records []models.ConferenceRecord
	if err := r.db.WithContext(ctx).Order("session_id, code").Find(&records).Error; err != nil {
		return nil, nil, err
	}
	return sessions, records, nil
}

// AuditLog lists a session's audit trail, oldest first.
func (r *SessionRepository) AuditLog(ctx context.Context, sessionID uuid.UUID) ([]models.ConferenceAuditLog, error) {
	var entries []models.ConferenceAuditLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
