package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScanNotification is pushed to live dashboards after a scan commits. The counters
// are the session totals right after this scan, so clients never double count.
type ScanNotification struct {
	SessionID  uuid.UUID `json:"session_id"`
	Code       string    `json:"code"`
	Outcome    Outcome   `json:"outcome"`
	ScannedAt  time.Time `json:"scanned_at"`
	Matched    int       `json:"matched"`
	Pending    int       `json:"pending"`
	Unexpected int       `json:"unexpected"`
}

type Notifier interface {
	PublishScan(ctx context.Context, n ScanNotification) error
}

type NopNotifier struct{}

func (NopNotifier) PublishScan(context.Context, ScanNotification) error { return nil }
