package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrimonio-inventory-backend/internal/services/inventory"
)

func TestMetrics_RecordsEngineEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := inventory.NewEngine(inventory.NewMemoryStore(), inventory.WithRecorder(m))
	ctx := context.Background()

	id, err := e.Open(ctx, inventory.OpenInput{Codes: []string{"A1"}})
	require.NoError(t, err)
	_, err = e.Open(ctx, inventory.OpenInput{Codes: []string{"B1"}})
	require.NoError(t, err)

	for _, code := range []string{"A1", "A1", "X9"} {
		_, err := e.RecordScan(ctx, inventory.ScanEvent{SessionID: id, Code: code})
		require.NoError(t, err)
	}
	require.NoError(t, e.Close(ctx, id, ""))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("already_conferred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("unexpected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsClosed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openSessions))

	m.SetOpenSessions(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.openSessions))
}

func TestNew_PanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
