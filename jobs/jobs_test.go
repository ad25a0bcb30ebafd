package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	jobmetrics "github.com/odyssey-erp/bizledger/internal/jobs"
)

type checkerStub struct {
	anomalies []invoices.Anomaly
	err       error
}

func (c checkerStub) CheckBalances(context.Context) ([]invoices.Anomaly, error) {
	return c.anomalies, c.err
}

type warmerStub struct {
	businessID uuid.UUID
	start, end time.Time
	calls      int
	err        error
}

func (w *warmerStub) Warm(_ context.Context, businessID uuid.UUID, start, end time.Time) error {
	w.calls++
	w.businessID, w.start, w.end = businessID, start, end
	return w.err
}

type cleanerStub struct{ olderThan time.Duration }

func (c *cleanerStub) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	c.olderThan = olderThan
	return 3, nil
}

type enqueuerStub struct{ payload LedgerWarmPayload }

func (e *enqueuerStub) EnqueueLedgerWarm(_ context.Context, payload LedgerWarmPayload) (*asynq.TaskInfo, error) {
	e.payload = payload
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func TestBalanceIntegrityRecordsAnomalies(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	reason := "paid flag disagrees with balance"
	job := NewBalanceIntegrityJob(checkerStub{anomalies: []invoices.Anomaly{
		{InvoiceID: uuid.New(), Number: "INV/2024-25/1", Stored: decimal.Zero, Expected: decimal.Zero, Reason: reason},
		{InvoiceID: uuid.New(), Number: "INV/2024-25/2", Stored: decimal.Zero, Expected: decimal.Zero, Reason: reason},
	}}, nil, metrics)

	found, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, found, 2)

	expected := `
# HELP bizledger_balance_anomalies_total Invoice balance anomalies grouped by job and reason.
# TYPE bizledger_balance_anomalies_total counter
bizledger_balance_anomalies_total{job="invoices:balance-integrity",reason="paid flag disagrees with balance"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bizledger_balance_anomalies_total"))
}

func TestBalanceIntegrityPropagatesFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := NewBalanceIntegrityJob(checkerStub{err: errors.New("db down")}, nil, jobmetrics.NewMetrics(reg))

	err := job.Handle(context.Background(), NewBalanceIntegrityTask())
	require.Error(t, err)
}

func TestLedgerWarmHandlesPayload(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	warmer := &warmerStub{}
	job := NewLedgerWarmJob(warmer, loc, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	businessID := uuid.New()
	task, err := NewLedgerWarmTask(LedgerWarmPayload{BusinessID: businessID, Start: "2024-04-01", End: "2024-12-31"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, warmer.calls)
	assert.Equal(t, businessID, warmer.businessID)
	assert.True(t, warmer.start.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, loc)))
	assert.True(t, warmer.end.Equal(time.Date(2024, 12, 31, 0, 0, 0, 0, loc)))
}

func TestLedgerWarmSkipsRetryOnBadPayload(t *testing.T) {
	warmer := &warmerStub{}
	job := NewLedgerWarmJob(warmer, time.UTC, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerWarm, []byte(`{"business_id":"`+uuid.NewString()+`","start":"01/04/2024"}`)))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, warmer.calls)
}

func TestNewLedgerWarmTaskValidates(t *testing.T) {
	_, err := NewLedgerWarmTask(LedgerWarmPayload{Start: "2024-04-01", End: "2024-04-30"})
	require.Error(t, err)
}

func TestIdempotencyCleanupRetention(t *testing.T) {
	cleaner := &cleanerStub{}
	job := NewIdempotencyCleanupJob(cleaner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, cleaner.olderThan)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, defaultKeyRetention, cleaner.olderThan)
}

func TestHandlerEnqueuesLedgerWarm(t *testing.T) {
	enqueuer := &enqueuerStub{}
	r := chi.NewRouter()
	NewHandler(nil, enqueuer, nil).MountRoutes(r)

	businessID := uuid.New()
	body := `{"business_id":"` + businessID.String() + `","start":"2024-04-01","end":"2024-04-30"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ledger-warm", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, businessID, enqueuer.payload.BusinessID)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp["task_id"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ledger-warm", strings.NewReader(`{"start":"2024-04-01"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, rec.Body.String())
}
