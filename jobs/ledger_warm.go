package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bizledger/internal/jobs"
)

// LedgerWarmer builds a statement so later reads hit the cache.
type LedgerWarmer interface {
	Warm(ctx context.Context, businessID uuid.UUID, start, end time.Time) error
}

// LedgerWarmJob handles TaskLedgerWarm.
type LedgerWarmJob struct {
	warmer  LedgerWarmer
	loc     *time.Location
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLedgerWarmJob initialises the handler. loc resolves payload dates.
func NewLedgerWarmJob(warmer LedgerWarmer, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerWarmJob {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerWarmJob{warmer: warmer, loc: loc, logger: logger, metrics: metrics}
}

// Handle decodes the payload and warms the statement.
func (j *LedgerWarmJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload LedgerWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("ledger warm: decode: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	start, _ := time.ParseInLocation(time.DateOnly, payload.Start, j.loc)
	end, _ := time.ParseInLocation(time.DateOnly, payload.End, j.loc)

	tracker := j.metrics.Track(TaskLedgerWarm)
	defer func() { err = tracker.End(err) }()

	if err := j.warmer.Warm(ctx, payload.BusinessID, start, end); err != nil {
		j.logger.Error("ledger warm failed",
			slog.String("business_id", payload.BusinessID.String()),
			slog.Any("error", err))
		return err
	}
	j.logger.Info("ledger warmed",
		slog.String("business_id", payload.BusinessID.String()),
		slog.String("start", payload.Start),
		slog.String("end", payload.End))
	return nil
}
