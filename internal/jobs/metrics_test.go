package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	fixed := time.Date(2024, 6, 1, 2, 15, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	require.NoError(t, m.Track("ledger:warm").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:warm").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:warm", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:warm", statusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:warm")))
	assert.Equal(t, float64(fixed.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("ledger:warm")))
}

func TestAddAnomaliesIgnoresEmptyScans(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddAnomalies("invoices:balance-integrity", "negative balance", 0)
	m.AddAnomalies("invoices:balance-integrity", "negative balance", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.anomalies.WithLabelValues("invoices:balance-integrity", "negative balance")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	err := errors.New("x")
	assert.Equal(t, err, m.Track("job").End(err))
	m.AddAnomalies("job", "reason", 1)
}
