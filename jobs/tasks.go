package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBalanceIntegrity scans invoices for balance drift.
	TaskBalanceIntegrity = "invoices:balance-integrity"
	// TaskLedgerWarm builds and caches one ledger statement.
	TaskLedgerWarm = "ledger:warm"
	// TaskIdempotencyCleanup prunes processed request keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LedgerWarmPayload names the statement to build. Dates use YYYY-MM-DD.
type LedgerWarmPayload struct {
	BusinessID uuid.UUID `json:"business_id"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
}

// Validate checks the payload before enqueueing.
func (p LedgerWarmPayload) Validate() error {
	if p.BusinessID == uuid.Nil {
		return fmt.Errorf("ledger warm: business required")
	}
	if _, err := time.Parse(time.DateOnly, p.Start); err != nil {
		return fmt.Errorf("ledger warm: start: %w", err)
	}
	if _, err := time.Parse(time.DateOnly, p.End); err != nil {
		return fmt.Errorf("ledger warm: end: %w", err)
	}
	return nil
}

// NewLedgerWarmTask constructs a ledger warm-up task.
func NewLedgerWarmTask(payload LedgerWarmPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerWarm, data, asynq.Timeout(time.Minute)), nil
}

// NewBalanceIntegrityTask constructs the scheduled balance scan.
func NewBalanceIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskBalanceIntegrity, nil, asynq.Timeout(10*time.Minute))
}

// IdempotencyCleanupPayload sets how long keys are retained.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the key pruning task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
