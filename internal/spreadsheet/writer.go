package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"patrimonio-inventory-backend/internal/services/inventory"
)

const (
	summarySheet = "Summary"
	recordsSheet = "Records"
)

// WriteSessionReport writes a workbook with a summary sheet and one row per
// conference record.
func WriteSessionReport(w io.Writer, snap inventory.Snapshot, outcome inventory.SessionOutcome) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return err
	}

	ended := ""
	if snap.Session.EndedAt != nil {
		ended = snap.Session.EndedAt.Format(time.RFC3339)
	}
	summary := [][]any{
		{"Session", snap.Session.ID.String()},
		{"Description", snap.Session.Description},
		{"Status", string(snap.Session.Status)},
		{"Started", snap.Session.StartedAt.Format(time.RFC3339)},
		{"Ended", ended},
		{"Matched", len(outcome.Matched)},
		{"Missing", len(outcome.Missing)},
		{"Unexpected", len(outcome.Unexpected)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	header := []any{"Code", "Result", "Expected", "Conferred", "Discrepancy", "First conferred", "Last scanned", "Scans"}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range snap.Records {
		row := []any{
			r.Code,
			recordResult(r.Expected, r.Conferred),
			r.Expected,
			r.Conferred,
			r.Discrepancy,
			formatTime(r.FirstConferredAt),
			formatTime(r.LastScannedAt),
			r.ScanCount,
		}
		if err := f.SetSheetRow(recordsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func recordResult(expected, conferred bool) string {
	switch {
	case !expected:
		return string(inventory.OutcomeUnexpected)
	case conferred:
		return string(inventory.OutcomeMatched)
	default:
		return "missing"
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
