package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"patrimonio-inventory-backend/internal/models"
)

// Store persists engine state. Each call is all-or-nothing: the engine only applies a
// change in memory after the matching Store call returned nil.
type Store interface {
	CreateSession(ctx context.Context, session models.InventorySession, records []models.ConferenceRecord, audit models.ConferenceAuditLog) error
	// SaveRecords inserts new records and overwrites existing ones keyed by (session, code).
	SaveRecords(ctx context.Context, records []models.ConferenceRecord, audit models.ConferenceAuditLog) error
	CloseSession(ctx context.Context, sessionID uuid.UUID, endedAt time.Time, audit models.ConferenceAuditLog) error
	LoadSessions(ctx context.Context) ([]models.InventorySession, []models.ConferenceRecord, error)
}

// MemoryStore keeps everything in process. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.InventorySession
	records  map[uuid.UUID]map[string]models.ConferenceRecord
	audit    []models.ConferenceAuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]models.InventorySession),
		records:  make(map[uuid.UUID]map[string]models.ConferenceRecord),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, session models.InventorySession, records []models.ConferenceRecord, audit models.ConferenceAuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = session
	byCode := make(map[string]models.ConferenceRecord, len(records))
	for _, r := range records {
		byCode[r.Code] = r
	}
	m.records[session.ID] = byCode
	m.audit = append(m.audit, audit)
	return nil
}

func (m *MemoryStore) SaveRecords(_ context.Context, records []models.ConferenceRecord, audit models.ConferenceAuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		byCode, ok := m.records[r.SessionID]
		if !ok {
			byCode = make(map[string]models.ConferenceRecord)
			m.records[r.SessionID] = byCode
		}
		byCode[r.Code] = r
	}
	m.audit = append(m.audit, audit)
	return nil
}

func (m *MemoryStore) CloseSession(_ context.Context, sessionID uuid.UUID, endedAt time.Time, audit models.ConferenceAuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[sessionID]
	s.Status = models.SessionStatusClosed
	s.EndedAt = &endedAt
	m.sessions[sessionID] = s
	m.audit = append(m.audit, audit)
	return nil
}

func (m *MemoryStore) LoadSessions(_ context.Context) ([]models.InventorySession, []models.ConferenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]models.InventorySession, 0, len(m.sessions))
	var records []models.ConferenceRecord
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		for _, r := range m.records[id] {
			records = append(records, r)
		}
	}
	return sessions, records, nil
}

// AuditLog returns a copy of every audit entry written so far.
func (m *MemoryStore) AuditLog() []models.ConferenceAuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ConferenceAuditLog(nil), m.audit...)
}
