package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"patrimonio-inventory-backend/internal/config"
	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/matching"
)

type Outcome string

const (
	OutcomeMatched          Outcome = "matched"
	OutcomeUnexpected       Outcome = "unexpected"
	OutcomeAlreadyConferred Outcome = "already_conferred"
)

// ScanEvent is a decoded code read during a walkthrough. ScannedAt defaults to now.
type ScanEvent struct {
	SessionID   uuid.UUID
	Code        string
	ScannedAt   time.Time
	PerformedBy string
}

type ScanResult struct {
	Outcome Outcome                 `json:"outcome"`
	Record  models.ConferenceRecord `json:"record"`
}

// SessionOutcome partitions a session's codes. Missing is always derived from the
// expected records, never stored.
type SessionOutcome struct {
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	Unexpected []string `json:"unexpected"`
}

// Snapshot is a point-in-time copy of one session and its records.
type Snapshot struct {
	Session models.InventorySession   `json:"session"`
	Records []models.ConferenceRecord `json:"records"`
}

type OpenInput struct {
	Description string
	Codes       []string
	SectorID    *uuid.UUID
	PerformedBy string
}

// Recorder receives counters for each engine event.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	ScanRecorded(outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()       {}
func (nopRecorder) SessionClosed()       {}
func (nopRecorder) ScanRecorded(Outcome) {}

// Engine owns every inventory session in the process. Each session is locked on its
// own; scans of the same code in the same session are serialized.
type Engine struct {
	store    Store
	notifier Notifier
	recorder Recorder
	logger   *logrus.Logger
	now      func() time.Time

	sessions sync.Map // uuid.UUID -> *sessionState
}

type sessionState struct {
	// mu is held for writing by Close and AddExpectedCodes, for reading by scans.
	mu      sync.RWMutex
	session models.InventorySession

	codes keyedMutex

	recMu   sync.RWMutex
	records map[string]models.ConferenceRecord
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: NopNotifier{},
		recorder: nopRecorder{},
		logger:   config.GetLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load replaces in-memory state with whatever the store holds.
func (e *Engine) Load(ctx context.Context) error {
	sessions, records, err := e.store.LoadSessions(ctx)
	if err != nil {
		return err
	}

	states := make(map[uuid.UUID]*sessionState, len(sessions))
	for _, s := range sessions {
		states[s.ID] = &sessionState{session: s, records: make(map[string]models.ConferenceRecord)}
	}
	for _, r := range records {
		if st, ok := states[r.SessionID]; ok {
			st.records[r.Code] = r
		}
	}

	e.sessions.Range(func(k, _ any) bool {
		e.sessions.Delete(k)
		return true
	})
	for id, st := range states {
		e.sessions.Store(id, st)
	}

	e.logger.WithField("sessions", len(states)).Info("inventory sessions loaded")
	return nil
}

// Open creates an open session with one pending record per expected code.
func (e *Engine) Open(ctx context.Context, in OpenInput) (id uuid.UUID, err error) {
	ctx, span := tracer.Start(ctx, "inventory.Open")
	defer func() { endSpan(span, err) }()

	codes, err := normalizeExpected(in.Codes)
	if err != nil {
		return uuid.Nil, err
	}

	now := e.now()
	session := models.InventorySession{
		ID:          uuid.New(),
		Description: in.Description,
		Status:      models.SessionStatusOpen,
		SectorID:    in.SectorID,
		StartedAt:   now,
		CreatedAt:   now,
	}

	records := make([]models.ConferenceRecord, 0, len(codes))
	byCode := make(map[string]models.ConferenceRecord, len(codes))
	for _, code := range codes {
		r := newExpectedRecord(session.ID, code, now)
		records = append(records, r)
		byCode[code] = r
	}

	audit := e.audit(session.ID, "", models.AuditActionOpen, "", in.PerformedBy, map[string]any{
		"description":    in.Description,
		"expected_count": len(codes),
	})
	if err := e.store.CreateSession(ctx, session, records, audit); err != nil {
		config.LogError(e.logger, "inventory", "Open", "persisting new session", session.ID, err)
		return uuid.Nil, err
	}

	e.sessions.Store(session.ID, &sessionState{session: session, records: byCode})
	e.recorder.SessionOpened()
	e.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"expected":   len(codes),
	}).Info("inventory session opened")
	return session.ID, nil
}

// AddExpectedCodes grows an open session's expected set. Codes already expected are
// left alone; a code previously scanned as unexpected becomes an expected, conferred one.
func (e *Engine) AddExpectedCodes(ctx context.Context, sessionID uuid.UUID, codes []string, performedBy string) (int, error) {
	normalized, err := normalizeAdditions(codes)
	if err != nil {
		return 0, err
	}
	st, err := e.state(sessionID)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session.Status != models.SessionStatusOpen {
		return 0, fmt.Errorf("%w: session %s is closed", ErrInvalidState, sessionID)
	}

	now := e.now()
	var changed []models.ConferenceRecord
	st.recMu.RLock()
	for _, code := range normalized {
		existing, ok := st.records[code]
		switch {
		case !ok:
			changed = append(changed, newExpectedRecord(sessionID, code, now))
		case !existing.Expected:
			existing.Expected = true
			existing.Discrepancy = false
			existing.UpdatedAt = now
			changed = append(changed, existing)
		}
	}
	st.recMu.RUnlock()

	if len(changed) == 0 {
		return 0, nil
	}

	audit := e.audit(sessionID, "", models.AuditActionAddCodes, "", performedBy, map[string]any{
		"added": len(changed),
	})
	if err := e.store.SaveRecords(ctx, changed, audit); err != nil {
		config.LogError(e.logger, "inventory", "AddExpectedCodes", "persisting expected codes", sessionID, err)
		return 0, err
	}

	st.recMu.Lock()
	for _, r := range changed {
		st.records[r.Code] = r
	}
	st.recMu.Unlock()
	return len(changed), nil
}

// Close moves an open session to closed. Closing twice is an error so callers can
// notice a double close.
func (e *Engine) Close(ctx context.Context, sessionID uuid.UUID, performedBy string) error {
	st, err := e.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session.Status == models.SessionStatusClosed {
		return fmt.Errorf("%w: session %s is already closed", ErrInvalidState, sessionID)
	}

	endedAt := e.now()
	pending := st.pending()
	audit := e.audit(sessionID, "", models.AuditActionClose, "", performedBy, map[string]any{
		"pending": pending,
	})
	if err := e.store.CloseSession(ctx, sessionID, endedAt, audit); err != nil {
		config.LogError(e.logger, "inventory", "Close", "persisting session close", sessionID, err)
		return err
	}

	st.session.Status = models.SessionStatusClosed
	st.session.EndedAt = &endedAt
	e.recorder.SessionClosed()
	e.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"pending":    pending,
	}).Info("inventory session closed")
	return nil
}

// RecordScan applies one scan event to its session.
func (e *Engine) RecordScan(ctx context.Context, ev ScanEvent) (res ScanResult, err error) {
	ctx, span := tracer.Start(ctx, "inventory.RecordScan", trace.WithAttributes(
		attribute.String("session_id", ev.SessionID.String()),
	))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
		endSpan(span, err)
	}()

	return e.recordScan(ctx, ev)
}

func (e *Engine) recordScan(ctx context.Context, ev ScanEvent) (ScanResult, error) {
	code := NormalizeCode(ev.Code)
	if code == "" {
		return ScanResult{}, fmt.Errorf("%w: blank asset code", ErrInvalidArgument)
	}
	st, err := e.state(ev.SessionID)
	if err != nil {
		return ScanResult{}, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.session.Status != models.SessionStatusOpen {
		return ScanResult{}, fmt.Errorf("%w: session %s is closed", ErrInvalidState, ev.SessionID)
	}

	unlock := st.codes.Lock(code)
	defer unlock()

	now := e.now()
	scannedAt := ev.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = now
	}

	st.recMu.RLock()
	rec, exists := st.records[code]
	st.recMu.RUnlock()

	var outcome Outcome
	switch {
	case exists && rec.Expected && !rec.Conferred:
		outcome = OutcomeMatched
		rec.Conferred = true
		rec.FirstConferredAt = timePtr(scannedAt)
	case exists && rec.Expected:
		outcome = OutcomeAlreadyConferred
	case exists:
		outcome = OutcomeUnexpected
	default:
		outcome = OutcomeUnexpected
		rec = models.ConferenceRecord{
			ID:               uuid.New(),
			SessionID:        ev.SessionID,
			Code:             code,
			Conferred:        true,
			Discrepancy:      true,
			FirstConferredAt: timePtr(scannedAt),
			CreatedAt:        now,
		}
	}
	// Late deliveries never move the last scan backwards.
	if rec.LastScannedAt == nil || scannedAt.After(*rec.LastScannedAt) {
		rec.LastScannedAt = timePtr(scannedAt)
	}
	rec.ScanCount++
	rec.UpdatedAt = now

	audit := e.audit(ev.SessionID, code, models.AuditActionScan, string(outcome), ev.PerformedBy, map[string]any{
		"scanned_at": scannedAt,
		"raw_code":   ev.Code,
	})
	if err := e.store.SaveRecords(ctx, []models.ConferenceRecord{rec}, audit); err != nil {
		config.LogError(e.logger, "inventory", "RecordScan", "persisting conference record", code, err)
		return ScanResult{}, err
	}

	st.recMu.Lock()
	st.records[code] = rec
	counts := st.countsLocked()
	st.recMu.Unlock()

	e.recorder.ScanRecorded(outcome)
	e.publish(ctx, ScanNotification{
		SessionID:  ev.SessionID,
		Code:       code,
		Outcome:    outcome,
		ScannedAt:  scannedAt,
		Matched:    counts.matched,
		Pending:    counts.pending,
		Unexpected: counts.unexpected,
	})
	return ScanResult{Outcome: outcome, Record: rec}, nil
}

// Outcome returns the matched, missing and unexpected codes of a session, each sorted.
func (e *Engine) Outcome(sessionID uuid.UUID) (SessionOutcome, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return SessionOutcome{}, err
	}

	out := SessionOutcome{Matched: []string{}, Missing: []string{}, Unexpected: []string{}}
	st.recMu.RLock()
	for code, r := range st.records {
		switch {
		case !r.Expected:
			out.Unexpected = append(out.Unexpected, code)
		case r.Conferred:
			out.Matched = append(out.Matched, code)
		default:
			out.Missing = append(out.Missing, code)
		}
	}
	st.recMu.RUnlock()

	sort.Strings(out.Matched)
	sort.Strings(out.Missing)
	sort.Strings(out.Unexpected)
	return out, nil
}

// Suggest lists missing expected codes that look like code, for operators who keyed
// or decoded a tag slightly wrong.
func (e *Engine) Suggest(sessionID uuid.UUID, code string, limit int) ([]matching.Suggestion, error) {
	outcome, err := e.Outcome(sessionID)
	if err != nil {
		return nil, err
	}
	return matching.Suggest(code, outcome.Missing, limit), nil
}

func (e *Engine) Get(sessionID uuid.UUID) (Snapshot, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return st.snapshot(), nil
}

// List returns every session, newest first. An empty status matches all.
func (e *Engine) List(status models.SessionStatus) []Snapshot {
	var out []Snapshot
	e.sessions.Range(func(_, v any) bool {
		snap := v.(*sessionState).snapshot()
		if status == "" || snap.Session.Status == status {
			out = append(out, snap)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Session.StartedAt.After(out[j].Session.StartedAt)
	})
	return out
}

func (e *Engine) state(sessionID uuid.UUID) (*sessionState, error) {
	v, ok := e.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return v.(*sessionState), nil
}

func (e *Engine) publish(ctx context.Context, n ScanNotification) {
	if err := e.notifier.PublishScan(ctx, n); err != nil {
		e.logger.WithFields(logrus.Fields{
			"session_id": n.SessionID,
			"code":       n.Code,
		}).Warnf("scan notification not delivered: %v", err)
	}
}

func (e *Engine) audit(sessionID uuid.UUID, code, action, outcome, performedBy string, details map[string]any) models.ConferenceAuditLog {
	detailsJSON, _ := json.Marshal(details)
	return models.ConferenceAuditLog{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Code:        code,
		Action:      action,
		Outcome:     outcome,
		PerformedBy: performedBy,
		Details:     datatypes.JSON(detailsJSON),
		CreatedAt:   e.now(),
	}
}

func (s *sessionState) snapshot() Snapshot {
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	s.recMu.RLock()
	records := make([]models.ConferenceRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.recMu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Code < records[j].Code })
	return Snapshot{Session: session, Records: records}
}

type sessionCounts struct {
	matched, pending, unexpected int
}

// countsLocked expects recMu to be held.
func (s *sessionState) countsLocked() sessionCounts {
	var c sessionCounts
	for _, r := range s.records {
		switch {
		case !r.Expected:
			c.unexpected++
		case r.Conferred:
			c.matched++
		default:
			c.pending++
		}
	}
	return c
}

func (s *sessionState) pending() int {
	s.recMu.RLock()
	defer s.recMu.RUnlock()
	return s.countsLocked().pending
}

func newExpectedRecord(sessionID uuid.UUID, code string, now time.Time) models.ConferenceRecord {
	return models.ConferenceRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Code:      code,
		Expected:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
