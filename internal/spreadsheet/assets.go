package spreadsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
)

// AssetRow is one parsed registry line. Sector is the raw sector name; callers
// resolve it to an id.
type AssetRow struct {
	Row    int
	Asset  models.Asset
	Sector string
}

type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

const (
	colCode             = "code"
	colDescription      = "description"
	colAcquisitionDate  = "acquisition_date"
	colAcquisitionValue = "acquisition_value"
	colStatus           = "status"
	colSector           = "sector"
	colDepreciation     = "depreciation_start_date"
	colUsefulLife       = "useful_life_months"
)

// headerAliases maps captions found in registry exports to canonical columns.
var headerAliases = map[string]string{
	"code":                    colCode,
	"codigo":                  colCode,
	"código":                  colCode,
	"patrimonio":              colCode,
	"patrimônio":              colCode,
	"tombamento":              colCode,
	"description":             colDescription,
	"descricao":               colDescription,
	"descrição":               colDescription,
	"acquisition_date":        colAcquisitionDate,
	"data_aquisicao":          colAcquisitionDate,
	"data aquisição":          colAcquisitionDate,
	"acquisition_value":       colAcquisitionValue,
	"valor":                   colAcquisitionValue,
	"valor_aquisicao":         colAcquisitionValue,
	"status":                  colStatus,
	"situacao":                colStatus,
	"situação":                colStatus,
	"sector":                  colSector,
	"setor":                   colSector,
	"depreciation_start_date": colDepreciation,
	"inicio_depreciacao":      colDepreciation,
	"useful_life_months":      colUsefulLife,
	"vida_util_meses":         colUsefulLife,
}

var statusAliases = map[string]models.AssetStatus{
	"in_use":         models.AssetStatusInUse,
	"in use":         models.AssetStatusInUse,
	"em uso":         models.AssetStatusInUse,
	"in_maintenance": models.AssetStatusInMaintenance,
	"in maintenance": models.AssetStatusInMaintenance,
	"em manutenção":  models.AssetStatusInMaintenance,
	"em manutencao":  models.AssetStatusInMaintenance,
	"idle":           models.AssetStatusIdle,
	"ocioso":         models.AssetStatusIdle,
	"decommissioned": models.AssetStatusDecommissioned,
	"baixado":        models.AssetStatusDecommissioned,
}

// thousandsOnly matches amounts grouped with dots and no decimal part, such as "1.500".
var thousandsOnly = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// ParseAssetRows maps a registry export to assets. The first row must be a header;
// a code column is mandatory. Rows that cannot be parsed are reported and skipped.
func ParseAssetRows(rows [][]string) ([]AssetRow, []RowError, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet is empty")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		if canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := cols[canonical]; !seen {
				cols[canonical] = i
			}
		}
	}
	if _, ok := cols[colCode]; !ok {
		return nil, nil, fmt.Errorf("header has no asset code column")
	}

	var (
		out  []AssetRow
		errs []RowError
	)
	for i, record := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		if strings.Join(record, "") == "" {
			continue
		}

		row, reason := parseAssetRow(cell)
		if reason != "" {
			errs = append(errs, RowError{Row: rowNum, Reason: reason})
			continue
		}
		row.Row = rowNum
		out = append(out, row)
	}
	return out, errs, nil
}

func parseAssetRow(cell func(string) string) (AssetRow, string) {
	code := inventory.NormalizeCode(cell(colCode))
	if code == "" {
		return AssetRow{}, "asset code empty"
	}

	asset := models.Asset{
		Code:             code,
		Description:      cell(colDescription),
		Status:           models.AssetStatusInUse,
		AcquisitionValue: decimal.Zero,
	}

	if raw := cell(colStatus); raw != "" {
		status, ok := statusAliases[strings.ToLower(raw)]
		if !ok {
			return AssetRow{}, fmt.Sprintf("invalid status=%s", raw)
		}
		asset.Status = status
	}

	if raw := cell(colAcquisitionValue); raw != "" {
		value, err := ParseMoney(raw)
		if err != nil || value.IsNegative() {
			return AssetRow{}, fmt.Sprintf("invalid acquisition value=%s", raw)
		}
		asset.AcquisitionValue = value
	}

	if raw := cell(colAcquisitionDate); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			return AssetRow{}, fmt.Sprintf("invalid acquisition date=%s", raw)
		}
		asset.AcquisitionDate = d
	}

	if raw := cell(colDepreciation); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			return AssetRow{}, fmt.Sprintf("invalid depreciation start date=%s", raw)
		}
		asset.DepreciationStartDate = &d
	}

	if raw := cell(colUsefulLife); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return AssetRow{}, fmt.Sprintf("invalid useful life=%s", raw)
		}
		asset.UsefulLifeMonths = &n
	}

	return AssetRow{Asset: asset, Sector: cell(colSector)}, ""
}

// ParseDate accepts ISO dates and the day-first layouts used by local exports.
func ParseDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, strings.TrimSpace(raw))
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseMoney reads "1234.56", "1234,56" and "1.234,56" as the same amount.
// Dots alone in groups of three ("1.500", "1.234.567") are thousands separators.
func ParseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	return decimal.NewFromString(s)
}
