package reconciliation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/repository"
	"patrimonio-inventory-backend/internal/services/inventory"
	"patrimonio-inventory-backend/internal/testutil"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		sheet    []string
		registry []string
		want     Report
	}{
		{
			name:     "identical after normalization",
			sheet:    []string{" pat-1", "PAT-2 "},
			registry: []string{"PAT-1", "pat-2"},
			want: Report{
				SheetCount: 2, RegistryCount: 2,
				InBoth:         []string{"PAT-1", "PAT-2"},
				OnlyInSheet:    []string{},
				OnlyInRegistry: []string{},
			},
		},
		{
			name:     "both sides diverge",
			sheet:    []string{"A", "C", "c", "", "  "},
			registry: []string{"A", "B"},
			want: Report{
				SheetCount: 2, RegistryCount: 2,
				InBoth:            []string{"A"},
				OnlyInSheet:       []string{"C"},
				OnlyInRegistry:    []string{"B"},
				DuplicatesInSheet: []string{"C"},
			},
		},
		{
			name:     "empty sheet",
			registry: []string{"A"},
			want: Report{
				RegistryCount:  1,
				InBoth:         []string{},
				OnlyInSheet:    []string{},
				OnlyInRegistry: []string{"A"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.sheet, tt.registry)
			assert.Equal(t, tt.want.SheetCount, got.SheetCount)
			assert.Equal(t, tt.want.RegistryCount, got.RegistryCount)
			assert.Equal(t, tt.want.InBoth, got.InBoth)
			assert.Equal(t, tt.want.OnlyInSheet, got.OnlyInSheet)
			assert.Equal(t, tt.want.OnlyInRegistry, got.OnlyInRegistry)
			assert.ElementsMatch(t, tt.want.DuplicatesInSheet, got.DuplicatesInSheet)
		})
	}

	assert.True(t, Diff([]string{"a"}, []string{"A"}).Clean())
	assert.False(t, Diff([]string{"a", "A"}, []string{"A"}).Clean(), "duplicates are a discrepancy")
}

func newService(t *testing.T) (*ReconciliationService, *repository.AssetRepository, *repository.SectorRepository) {
	db := testutil.NewSQLiteDB(t)
	assets := repository.NewAssetRepository(db)
	sectors := repository.NewSectorRepository(db)
	return NewReconciliationService(assets, sectors, nil), assets, sectors
}

func TestImportAssets(t *testing.T) {
	svc, assets, sectors := newService(t)
	ctx := context.Background()

	rows := [][]string{
		{"codigo", "descricao", "valor", "situacao", "setor"},
		{"PAT-1", "Mesa", "500", "em uso", "TI"},
		{"PAT-2", "Cadeira", "150,50", "ocioso", "TI"},
		{"PAT-3", "Monitor", "80", "baixado", "RH"},
		{"pat-1", "Mesa grande", "650", "em uso", "TI"},
		{"PAT-4", "Impressora", "xx", "", ""},
	}
	res, err := svc.ImportAssets(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 2, res.SectorsCreated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 6, res.Errors[0].Row)

	all, err := assets.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	mesa, err := assets.GetByCode(ctx, "PAT-1")
	require.NoError(t, err)
	assert.Equal(t, "Mesa grande", mesa.Description, "last row for a code wins")

	ti, err := sectors.FindByName(ctx, "TI")
	require.NoError(t, err)
	require.NotNil(t, ti)
	require.NotNil(t, mesa.SectorID)
	assert.Equal(t, ti.ID, *mesa.SectorID)

	// A second import reuses existing sectors.
	res, err = svc.ImportAssets(ctx, [][]string{{"codigo", "setor"}, {"PAT-9", "TI"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SectorsCreated)
}

func TestImportAssets_RequiresHeader(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.ImportAssets(context.Background(), [][]string{{"descricao"}, {"Mesa"}})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestReconcileSheet(t *testing.T) {
	svc, _, sectors := newService(t)
	ctx := context.Background()

	_, err := svc.ImportAssets(ctx, [][]string{
		{"codigo", "situacao", "setor"},
		{"PAT-1", "em uso", "TI"},
		{"PAT-2", "em uso", "TI"},
		{"PAT-3", "baixado", "TI"},
		{"PAT-4", "em uso", "RH"},
	})
	require.NoError(t, err)

	sheet := [][]string{
		{"Setor", "Patrimonio"},
		{"TI", "pat-1"},
		{"TI", "PAT-3"},
		{"TI", "PAT-8"},
	}

	report, err := svc.ReconcileSheet(ctx, sheet, "Patrimonio", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAT-1"}, report.InBoth)
	assert.Equal(t, []string{"PAT-3", "PAT-8"}, report.OnlyInSheet)
	assert.Equal(t, []string{"PAT-2", "PAT-4"}, report.OnlyInRegistry)
	assert.Equal(t, []string{"PAT-3"}, report.Decommissioned)
	assert.False(t, report.Clean())

	ti, err := sectors.FindByName(ctx, "TI")
	require.NoError(t, err)
	report, err = svc.ReconcileSheet(ctx, sheet, "B", &ti.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAT-2"}, report.OnlyInRegistry)

	_, err = svc.ReconcileSheet(ctx, sheet, "", nil)
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestImportAssets_DefaultsStatus(t *testing.T) {
	svc, assets, _ := newService(t)
	ctx := context.Background()
	_, err := svc.ImportAssets(ctx, [][]string{{"codigo"}, {"PAT-1"}})
	require.NoError(t, err)

	a, err := assets.GetByCode(ctx, "PAT-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusInUse, a.Status)
}

func TestImportAssets_SerializedByLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := redislock.New(rdb)

	db := testutil.NewSQLiteDB(t)
	svc := NewReconciliationService(repository.NewAssetRepository(db), repository.NewSectorRepository(db), locker)
	ctx := context.Background()
	rows := [][]string{{"codigo"}, {"PAT-1"}}

	held, err := locker.Obtain(ctx, importLockKey, time.Minute, nil)
	require.NoError(t, err)

	_, err = svc.ImportAssets(ctx, rows)
	assert.ErrorIs(t, err, ErrImportInProgress)

	require.NoError(t, held.Release(ctx))
	res, err := svc.ImportAssets(ctx, rows)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Upserted)

	assert.False(t, mr.Exists(importLockKey), "lock released after import")
}

// slowAssets upserts nothing and advances the redis clock on every batch.
type slowAssets struct {
	mr       *miniredis.Miniredis
	perBatch time.Duration
	dropLock bool
	batches  []int
	heldLock []bool
}

func (s *slowAssets) Codes(context.Context, *uuid.UUID) ([]string, error) { return nil, nil }
func (s *slowAssets) AllCodes(context.Context) ([]string, error)          { return nil, nil }

func (s *slowAssets) Upsert(_ context.Context, assets []models.Asset) (int64, error) {
	s.batches = append(s.batches, len(assets))
	s.heldLock = append(s.heldLock, s.mr.Exists(importLockKey))
	s.mr.FastForward(s.perBatch)
	if s.dropLock {
		s.mr.Del(importLockKey)
	}
	return int64(len(assets)), nil
}

func codeRows(n int) [][]string {
	rows := [][]string{{"codigo"}}
	for i := 0; i < n; i++ {
		rows = append(rows, []string{fmt.Sprintf("PAT-%04d", i)})
	}
	return rows
}

func TestImportAssets_RefreshesLockPerBatch(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	assets := &slowAssets{mr: mr, perBatch: importLockTTL * 2 / 3}
	svc := NewReconciliationService(assets, repository.NewSectorRepository(testutil.NewSQLiteDB(t)), redislock.New(rdb))

	res, err := svc.ImportAssets(context.Background(), codeRows(2*importBatchSize+50))
	require.NoError(t, err)
	assert.EqualValues(t, 2*importBatchSize+50, res.Upserted)
	assert.Equal(t, []int{importBatchSize, importBatchSize, 50}, assets.batches)
	assert.Equal(t, []bool{true, true, true}, assets.heldLock)
	assert.False(t, mr.Exists(importLockKey))
}

func TestImportAssets_StopsWhenLockIsLost(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	assets := &slowAssets{mr: mr, dropLock: true}
	svc := NewReconciliationService(assets, repository.NewSectorRepository(testutil.NewSQLiteDB(t)), redislock.New(rdb))

	res, err := svc.ImportAssets(context.Background(), codeRows(importBatchSize+1))
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.EqualValues(t, importBatchSize, res.Upserted)
	assert.Len(t, assets.batches, 1)
}
