package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
)

type Totals struct {
	TotalAcquisitionValue             decimal.Decimal `json:"total_acquisition_value"`
	TotalValueExcludingDecommissioned decimal.Decimal `json:"total_value_excluding_decommissioned"`
}

// DepreciationPolicy is the straight-line schedule applied to assets that do not carry
// their own useful life. ResidualRate is the fraction of value never depreciated.
type DepreciationPolicy struct {
	UsefulLifeMonths int
	ResidualRate     decimal.Decimal
}

// StatusBreakdown counts assets per status. Statuses with no assets are absent.
func StatusBreakdown(assets []models.Asset) map[models.AssetStatus]int {
	out := make(map[models.AssetStatus]int)
	for _, a := range assets {
		out[a.Status]++
	}
	return out
}

// MonetaryTotals sums acquisition values. Decommissioned assets count only toward the
// first figure. An empty input yields zero for both.
func MonetaryTotals(assets []models.Asset) Totals {
	totals := Totals{
		TotalAcquisitionValue:             decimal.Zero,
		TotalValueExcludingDecommissioned: decimal.Zero,
	}
	for _, a := range assets {
		totals.TotalAcquisitionValue = totals.TotalAcquisitionValue.Add(a.AcquisitionValue)
		if a.Status != models.AssetStatusDecommissioned {
			totals.TotalValueExcludingDecommissioned = totals.TotalValueExcludingDecommissioned.Add(a.AcquisitionValue)
		}
	}
	return totals
}

// PendingConferenceCount counts expected codes not yet conferred. Closed sessions keep
// reporting their final figure.
func PendingConferenceCount(snap inventory.Snapshot) int {
	pending := 0
	for _, r := range snap.Records {
		if r.Expected && !r.Conferred {
			pending++
		}
	}
	return pending
}

// DepreciationForPeriod returns the depreciation accumulated by all assets through the
// end of referenceMonth. Months are counted inclusively from the start month and capped
// at the useful life, so the result never decreases as referenceMonth advances.
func DepreciationForPeriod(assets []models.Asset, referenceMonth time.Time, policy DepreciationPolicy) decimal.Decimal {
	total := decimal.Zero
	for _, a := range assets {
		total = total.Add(assetDepreciation(a, referenceMonth, policy))
	}
	return total.Round(2)
}

func assetDepreciation(a models.Asset, referenceMonth time.Time, policy DepreciationPolicy) decimal.Decimal {
	if a.DepreciationStartDate == nil {
		return decimal.Zero
	}
	life := policy.UsefulLifeMonths
	if a.UsefulLifeMonths != nil && *a.UsefulLifeMonths > 0 {
		life = *a.UsefulLifeMonths
	}
	if life <= 0 {
		return decimal.Zero
	}

	elapsed := monthsBetween(*a.DepreciationStartDate, referenceMonth) + 1
	if elapsed <= 0 {
		return decimal.Zero
	}
	if elapsed > life {
		elapsed = life
	}

	depreciable := a.AcquisitionValue.Sub(a.AcquisitionValue.Mul(policy.ResidualRate))
	if depreciable.IsNegative() {
		return decimal.Zero
	}
	return depreciable.Mul(decimal.NewFromInt(int64(elapsed))).Div(decimal.NewFromInt(int64(life)))
}

// monthsBetween counts calendar months from the month of start to the month of end.
func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}
