package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"patrimonio-inventory-backend/internal/config"
	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

const (
	importLockKey   = "lock:asset-import"
	importLockTTL   = 30 * time.Second
	importBatchSize = 200
)

var ErrImportInProgress = errors.New("another asset import is running")

// Report compares the codes of a spreadsheet export with the registry.
type Report struct {
	SheetCount        int      `json:"sheet_count"`
	RegistryCount     int      `json:"registry_count"`
	InBoth            []string `json:"in_both"`
	OnlyInSheet       []string `json:"only_in_sheet"`
	OnlyInRegistry    []string `json:"only_in_registry"`
	DuplicatesInSheet []string `json:"duplicates_in_sheet"`
	// Decommissioned lists sheet codes that exist in the registry but were written off.
	Decommissioned []string `json:"decommissioned"`
}

// Clean reports whether the sheet and the registry agree.
func (r Report) Clean() bool {
	return len(r.OnlyInSheet) == 0 && len(r.OnlyInRegistry) == 0 && len(r.DuplicatesInSheet) == 0
}

// Diff normalizes both lists and partitions them. Blank cells are ignored.
func Diff(sheetCodes, registryCodes []string) Report {
	seen := make(map[string]int, len(sheetCodes))
	for _, raw := range sheetCodes {
		if code := inventory.NormalizeCode(raw); code != "" {
			seen[code]++
		}
	}
	registry := make(map[string]struct{}, len(registryCodes))
	for _, raw := range registryCodes {
		if code := inventory.NormalizeCode(raw); code != "" {
			registry[code] = struct{}{}
		}
	}

	report := Report{
		SheetCount:        len(seen),
		RegistryCount:     len(registry),
		InBoth:            []string{},
		OnlyInSheet:       []string{},
		OnlyInRegistry:    []string{},
		DuplicatesInSheet: []string{},
		Decommissioned:    []string{},
	}
	for code, n := range seen {
		if n > 1 {
			report.DuplicatesInSheet = append(report.DuplicatesInSheet, code)
		}
		if _, ok := registry[code]; ok {
			report.InBoth = append(report.InBoth, code)
		} else {
			report.OnlyInSheet = append(report.OnlyInSheet, code)
		}
	}
	for code := range registry {
		if _, ok := seen[code]; !ok {
			report.OnlyInRegistry = append(report.OnlyInRegistry, code)
		}
	}

	sort.Strings(report.InBoth)
	sort.Strings(report.OnlyInSheet)
	sort.Strings(report.OnlyInRegistry)
	sort.Strings(report.DuplicatesInSheet)
	return report
}

// AssetStore is the registry access the service needs.
type AssetStore interface {
	Codes(ctx context.Context, sectorID *uuid.UUID) ([]string, error)
	AllCodes(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, assets []models.Asset) (int64, error)
}

type SectorStore interface {
	Create(ctx context.Context, name string) (*models.Sector, error)
	FindByName(ctx context.Context, name string) (*models.Sector, error)
}

type ReconciliationService struct {
	assets  AssetStore
	sectors SectorStore
	locker  *redislock.Client
	logger  *logrus.Logger
}

// NewReconciliationService wires the registry stores. locker may be nil, in which
// case imports run without the distributed lock.
func NewReconciliationService(assets AssetStore, sectors SectorStore, locker *redislock.Client) *ReconciliationService {
	return &ReconciliationService{
		assets:  assets,
		sectors: sectors,
		locker:  locker,
		logger:  config.GetLogger(),
	}
}

// ReconcileSheet diffs one column of a spreadsheet against the active registry,
// optionally limited to a sector.
func (s *ReconciliationService) ReconcileSheet(ctx context.Context, rows [][]string, column string, sectorID *uuid.UUID) (Report, error) {
	sheetCodes, err := spreadsheet.ColumnValues(rows, column)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", inventory.ErrInvalidArgument, err)
	}

	active, err := s.assets.Codes(ctx, sectorID)
	if err != nil {
		config.LogError(s.logger, "reconciliation", "ReconcileSheet", "loading registry codes", sectorID, err)
		return Report{}, err
	}
	report := Diff(sheetCodes, active)

	if len(report.OnlyInSheet) > 0 {
		all, err := s.assets.AllCodes(ctx)
		if err != nil {
			return Report{}, err
		}
		activeAll, err := s.assets.Codes(ctx, nil)
		if err != nil {
			return Report{}, err
		}
		written := make(map[string]struct{}, len(all))
		for _, c := range all {
			written[c] = struct{}{}
		}
		for _, c := range activeAll {
			delete(written, c)
		}
		for _, c := range report.OnlyInSheet {
			if _, ok := written[c]; ok {
				report.Decommissioned = append(report.Decommissioned, c)
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sheet_codes":      report.SheetCount,
		"registry_codes":   report.RegistryCount,
		"only_in_sheet":    len(report.OnlyInSheet),
		"only_in_registry": len(report.OnlyInRegistry),
	}).Info("spreadsheet reconciled")
	return report, nil
}

type ImportResult struct {
	Rows           int                    `json:"rows"`
	Upserted       int64                  `json:"upserted"`
	SectorsCreated int                    `json:"sectors_created"`
	Errors         []spreadsheet.RowError `json:"errors"`
}

// ImportAssets parses a registry export and upserts it by code. When a code repeats,
// the last row wins. Unknown sector names are created.
func (s *ReconciliationService) ImportAssets(ctx context.Context, rows [][]string) (ImportResult, error) {
	parsed, rowErrs, err := spreadsheet.ParseAssetRows(rows)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", inventory.ErrInvalidArgument, err)
	}
	result := ImportResult{Rows: len(parsed) + len(rowErrs), Errors: rowErrs}
	if result.Errors == nil {
		result.Errors = []spreadsheet.RowError{}
	}

	// refresh extends the import lock before each batch so long imports keep it.
	refresh := func(context.Context) error { return nil }
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, importLockKey, importLockTTL, nil)
		if err == redislock.ErrNotObtained {
			config.LogError(s.logger, "reconciliation", "ImportAssets", "Could not obtain import lock", importLockKey, err)
			return result, ErrImportInProgress
		} else if err != nil {
			config.LogError(s.logger, "reconciliation", "ImportAssets", "Error obtaining import lock", importLockKey, err)
			return result, err
		}
		defer func() {
			_ = lock.Release(context.WithoutCancel(ctx))
		}()
		refresh = func(ctx context.Context) error {
			if err := lock.Refresh(ctx, importLockTTL, nil); err != nil {
				config.LogError(s.logger, "reconciliation", "ImportAssets", "Import lock lost", importLockKey, err)
				if errors.Is(err, redislock.ErrNotObtained) {
					return fmt.Errorf("%w: import lock expired", ErrImportInProgress)
				}
				return err
			}
			return nil
		}
	}

	sectorIDs := make(map[string]uuid.UUID)
	byCode := make(map[string]int, len(parsed))
	assets := make([]models.Asset, 0, len(parsed))
	for _, row := range parsed {
		asset := row.Asset
		if name := strings.TrimSpace(row.Sector); name != "" {
			id, created, err := s.resolveSector(ctx, name, sectorIDs)
			if err != nil {
				return result, err
			}
			if created {
				result.SectorsCreated++
			}
			asset.SectorID = &id
		}
		if i, ok := byCode[asset.Code]; ok {
			assets[i] = asset
			continue
		}
		byCode[asset.Code] = len(assets)
		assets = append(assets, asset)
	}

	for start := 0; start < len(assets); start += importBatchSize {
		end := min(start+importBatchSize, len(assets))
		if err := refresh(ctx); err != nil {
			return result, err
		}
		n, err := s.assets.Upsert(ctx, assets[start:end])
		if err != nil {
			config.LogError(s.logger, "reconciliation", "ImportAssets", "upserting assets", end-start, err)
			return result, err
		}
		result.Upserted += n
	}

	s.logger.WithFields(logrus.Fields{
		"rows":            result.Rows,
		"upserted":        result.Upserted,
		"sectors_created": result.SectorsCreated,
		"skipped":         len(result.Errors),
	}).Info("asset registry imported")
	return result, nil
}

func (s *ReconciliationService) resolveSector(ctx context.Context, name string, cache map[string]uuid.UUID) (uuid.UUID, bool, error) {
	if id, ok := cache[name]; ok {
		return id, false, nil
	}
	sector, err := s.sectors.FindByName(ctx, name)
	if err != nil {
		return uuid.Nil, false, err
	}
	created := false
	if sector == nil {
		if sector, err = s.sectors.Create(ctx, name); err != nil {
			return uuid.Nil, false, err
		}
		created = true
	}
	cache[name] = sector.ID
	return sector.ID, created, nil
}
