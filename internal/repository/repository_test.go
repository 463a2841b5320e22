package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
	"patrimonio-inventory-backend/internal/testutil"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewSQLiteDB(t)
}

func seedAssets(t *testing.T, repo *AssetRepository, sectorID *uuid.UUID) {
	t.Helper()
	_, err := repo.Upsert(context.Background(), []models.Asset{
		{Code: "PAT-001", Description: "Mesa", Status: models.AssetStatusInUse, AcquisitionValue: decimal.NewFromInt(500), SectorID: sectorID},
		{Code: "PAT-002", Description: "Cadeira", Status: models.AssetStatusIdle, AcquisitionValue: decimal.NewFromInt(150), SectorID: sectorID},
		{Code: "PAT-003", Description: "Monitor antigo", Status: models.AssetStatusDecommissioned, AcquisitionValue: decimal.NewFromInt(80)},
	})
	require.NoError(t, err)
}

func TestAssetRepository_ListAndFilter(t *testing.T) {
	db := newTestDB(t)
	sectors := NewSectorRepository(db)
	assets := NewAssetRepository(db)
	ctx := context.Background()

	sector, err := sectors.Create(ctx, "Almoxarifado")
	require.NoError(t, err)
	seedAssets(t, assets, &sector.ID)

	all, err := assets.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inSector, err := assets.List(ctx, AssetFilter{SectorID: &sector.ID})
	require.NoError(t, err)
	assert.Len(t, inSector, 2)

	idle, err := assets.List(ctx, AssetFilter{Statuses: []models.AssetStatus{models.AssetStatusIdle}})
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "PAT-002", idle[0].Code)

	byText, err := assets.List(ctx, AssetFilter{Query: "monitor"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "PAT-003", byText[0].Code)
}

func TestAssetRepository_Codes(t *testing.T) {
	db := newTestDB(t)
	sectors := NewSectorRepository(db)
	assets := NewAssetRepository(db)
	ctx := context.Background()

	sector, err := sectors.Create(ctx, "TI")
	require.NoError(t, err)
	seedAssets(t, assets, &sector.ID)

	codes, err := assets.Codes(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAT-001", "PAT-002"}, codes, "decommissioned assets are never expected")

	other := uuid.New()
	codes, err = assets.Codes(ctx, &other)
	require.NoError(t, err)
	assert.Empty(t, codes)

	all, err := assets.AllCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAT-001", "PAT-002", "PAT-003"}, all)
}

func TestAssetRepository_UpsertUpdatesByCode(t *testing.T) {
	db := newTestDB(t)
	assets := NewAssetRepository(db)
	ctx := context.Background()
	seedAssets(t, assets, nil)

	_, err := assets.Upsert(ctx, []models.Asset{
		{Code: "PAT-001", Description: "Mesa grande", Status: models.AssetStatusInMaintenance, AcquisitionValue: decimal.NewFromInt(650)},
	})
	require.NoError(t, err)

	got, err := assets.GetByCode(ctx, "PAT-001")
	require.NoError(t, err)
	assert.Equal(t, "Mesa grande", got.Description)
	assert.Equal(t, models.AssetStatusInMaintenance, got.Status)
	assert.True(t, decimal.NewFromInt(650).Equal(got.AcquisitionValue))

	all, err := assets.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = assets.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestSectorRepository(t *testing.T) {
	db := newTestDB(t)
	sectors := NewSectorRepository(db)
	ctx := context.Background()

	_, err := sectors.Create(ctx, "Biblioteca")
	require.NoError(t, err)
	_, err = sectors.Create(ctx, "Almoxarifado")
	require.NoError(t, err)

	list, err := sectors.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Almoxarifado", list[0].Name)

	found, err := sectors.FindByName(ctx, "Biblioteca")
	require.NoError(t, err)
	require.NotNil(t, found)

	missing, err := sectors.FindByName(ctx, "Garagem")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepository_BacksEngine(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	e := inventory.NewEngine(repo)
	id, err := e.Open(ctx, inventory.OpenInput{Description: "Bloco A", Codes: []string{"A1", "A2", "A3"}})
	require.NoError(t, err)

	for _, code := range []string{"A1", "A9", "A1"} {
		_, err := e.RecordScan(ctx, inventory.ScanEvent{SessionID: id, Code: code, ScannedAt: time.Now()})
		require.NoError(t, err)
	}
	_, err = e.AddExpectedCodes(ctx, id, []string{"A9", "A4"}, "admin")
	require.NoError(t, err)
	require.NoError(t, e.Close(ctx, id, "admin"))

	var count int64
	require.NoError(t, db.Model(&models.ConferenceRecord{}).Where("session_id = ?", id).Count(&count).Error)
	assert.EqualValues(t, 5, count, "repeated scans update records instead of duplicating them")

	reloaded := inventory.NewEngine(repo)
	require.NoError(t, reloaded.Load(ctx))

	want, err := e.Outcome(id)
	require.NoError(t, err)
	got, err := reloaded.Outcome(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"A1", "A9"}, got.Matched)
	assert.Equal(t, []string{"A2", "A3", "A4"}, got.Missing)

	snap, err := reloaded.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, snap.Session.Status)

	audit, err := repo.AuditLog(ctx, id)
	require.NoError(t, err)
	require.Len(t, audit, 6)
	assert.Equal(t, models.AuditActionOpen, audit[0].Action)
	assert.Equal(t, models.AuditActionClose, audit[5].Action)
}

func TestSessionRepository_CloseTwiceFailsAtStore(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := models.InventorySession{ID: uuid.New(), Status: models.SessionStatusOpen, StartedAt: time.Now()}
	require.NoError(t, repo.CreateSession(ctx, session, nil, models.ConferenceAuditLog{ID: uuid.New(), SessionID: session.ID}))

	require.NoError(t, repo.CloseSession(ctx, session.ID, time.Now(), models.ConferenceAuditLog{ID: uuid.New(), SessionID: session.ID}))
	err := repo.CloseSession(ctx, session.ID, time.Now(), models.ConferenceAuditLog{ID: uuid.New(), SessionID: session.ID})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
