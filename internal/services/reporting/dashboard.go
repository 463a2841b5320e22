package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
)

type AssetLister interface {
	ListAll(ctx context.Context) ([]models.Asset, error)
}

type SessionLister interface {
	List(status models.SessionStatus) []inventory.Snapshot
}

type SessionSummary struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	StartedAt   time.Time `json:"started_at"`
	Expected    int       `json:"expected"`
	Pending     int       `json:"pending"`
	Unexpected  int       `json:"unexpected"`
}

type Summary struct {
	ReferenceMonth  string                     `json:"reference_month"`
	TotalAssets     int                        `json:"total_assets"`
	StatusBreakdown map[models.AssetStatus]int `json:"status_breakdown"`
	Totals          Totals                     `json:"totals"`
	Depreciation    decimal.Decimal            `json:"accumulated_depreciation"`
	OpenSessions    []SessionSummary           `json:"open_sessions"`
	PendingTotal    int                        `json:"pending_total"`
	Alerts          []Alert                    `json:"alerts"`
}

// Dashboard recomputes every figure on each call; nothing is cached between calls.
type Dashboard struct {
	assets       AssetLister
	sessions     SessionLister
	depreciation DepreciationPolicy
	alerts       AlertPolicy
	now          func() time.Time
}

func NewDashboard(assets AssetLister, sessions SessionLister, depreciation DepreciationPolicy, alerts AlertPolicy) *Dashboard {
	return &Dashboard{
		assets:       assets,
		sessions:     sessions,
		depreciation: depreciation,
		alerts:       alerts,
		now:          time.Now,
	}
}

// Summary builds the dashboard payload. A zero referenceMonth means the current month.
func (d *Dashboard) Summary(ctx context.Context, referenceMonth time.Time) (Summary, error) {
	now := d.now()
	if referenceMonth.IsZero() {
		referenceMonth = now
	}

	assets, err := d.assets.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}

	open := d.sessions.List(models.SessionStatusOpen)
	summaries := make([]SessionSummary, 0, len(open))
	pendingTotal := 0
	for _, s := range open {
		sum := SessionSummary{
			ID:          s.Session.ID.String(),
			Description: s.Session.Description,
			StartedAt:   s.Session.StartedAt,
			Pending:     PendingConferenceCount(s),
		}
		for _, r := range s.Records {
			if r.Expected {
				sum.Expected++
			} else {
				sum.Unexpected++
			}
		}
		pendingTotal += sum.Pending
		summaries = append(summaries, sum)
	}

	return Summary{
		ReferenceMonth:  referenceMonth.Format("2006-01"),
		TotalAssets:     len(assets),
		StatusBreakdown: StatusBreakdown(assets),
		Totals:          MonetaryTotals(assets),
		Depreciation:    DepreciationForPeriod(assets, referenceMonth, d.depreciation),
		OpenSessions:    summaries,
		PendingTotal:    pendingTotal,
		Alerts:          Alerts(open, now, d.alerts),
	}, nil
}
