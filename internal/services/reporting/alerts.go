package reporting

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/services/inventory"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// AlertPolicy controls escalation. With EscalateAfter zero every open session with
// pending items is high priority; otherwise sessions younger than EscalateAfter are medium.
type AlertPolicy struct {
	EscalateAfter time.Duration
}

type Alert struct {
	SessionID   uuid.UUID `json:"session_id"`
	Description string    `json:"description"`
	Pending     int       `json:"pending"`
	OpenSince   time.Time `json:"open_since"`
	Priority    string    `json:"priority"`
}

// Alerts flags open sessions that still have pending conferences, highest priority
// first and oldest first within a priority.
func Alerts(sessions []inventory.Snapshot, now time.Time, policy AlertPolicy) []Alert {
	alerts := []Alert{}
	for _, s := range sessions {
		if s.Session.Status != models.SessionStatusOpen {
			continue
		}
		pending := PendingConferenceCount(s)
		if pending == 0 {
			continue
		}
		priority := PriorityHigh
		if policy.EscalateAfter > 0 && now.Sub(s.Session.StartedAt) < policy.EscalateAfter {
			priority = PriorityMedium
		}
		alerts = append(alerts, Alert{
			SessionID:   s.Session.ID,
			Description: s.Session.Description,
			Pending:     pending,
			OpenSince:   s.Session.StartedAt,
			Priority:    priority,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Priority != alerts[j].Priority {
			return alerts[i].Priority == PriorityHigh
		}
		return alerts[i].OpenSince.Before(alerts[j].OpenSince)
	})
	return alerts
}
