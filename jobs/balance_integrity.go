package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	jobmetrics "github.com/odyssey-erp/bizledger/internal/jobs"
)

// BalanceChecker reports invoices whose stored balance drifted.
type BalanceChecker interface {
	CheckBalances(ctx context.Context) ([]invoices.Anomaly, error)
}

// BalanceIntegrityJob checks balance == max(0, rounded - paid) and the paid flag
// on every invoice with a stored balance.
type BalanceIntegrityJob struct {
	checker BalanceChecker
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewBalanceIntegrityJob initialises the handler.
func NewBalanceIntegrityJob(checker BalanceChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalanceIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceIntegrityJob{checker: checker, logger: logger, metrics: metrics}
}

// Handle runs one scan.
func (j *BalanceIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	_, err := j.Run(ctx)
	return err
}

// Run scans once and returns the anomalies found.
func (j *BalanceIntegrityJob) Run(ctx context.Context) (anomalies []invoices.Anomaly, err error) {
	if j == nil || j.checker == nil {
		return nil, errors.New("balance integrity: handler not configured")
	}
	tracker := j.metrics.Track(TaskBalanceIntegrity)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	anomalies, err = j.checker.CheckBalances(ctx)
	if err != nil {
		j.logger.Error("balance integrity scan failed", slog.Any("error", err))
		return nil, err
	}
	for _, a := range anomalies {
		j.logger.Warn("invoice balance anomaly",
			slog.String("invoice_id", a.InvoiceID.String()),
			slog.String("invoice_number", a.Number),
			slog.String("stored", a.Stored.StringFixed(2)),
			slog.String("expected", a.Expected.StringFixed(2)),
			slog.String("reason", a.Reason))
		j.metrics.AddAnomalies(TaskBalanceIntegrity, a.Reason, 1)
	}
	j.logger.Info("balance integrity scan completed",
		slog.Int("anomalies", len(anomalies)),
		slog.Duration("duration", time.Since(start)))
	return anomalies, nil
}
