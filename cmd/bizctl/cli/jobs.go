package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bizledger/jobs"
)

// triggers builds the payload-free tasks an operator may enqueue by name.
var triggers = map[string]func() (*asynq.Task, error){
	jobs.TaskBalanceIntegrity:   balanceIntegrityTask,
	jobs.TaskIdempotencyCleanup: idempotencyCleanupTask,
}

func balanceIntegrityTask() (*asynq.Task, error) { return jobs.NewBalanceIntegrityTask(), nil }

func idempotencyCleanupTask() (*asynq.Task, error) { return jobs.NewIdempotencyCleanupTask(0) }

// TriggerNames lists the jobs accepted by Trigger.
func TriggerNames() []string {
	names := make([]string, 0, len(triggers))
	for name := range triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobsCLI enqueues and inspects worker tasks from the command line.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects to the queue Redis at redisAddr.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

// Close releases the client and inspector.
func (c *JobsCLI) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Trigger enqueues one of TriggerNames.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	build, ok := triggers[name]
	if !ok {
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	task, err := build()
	if err != nil {
		return nil, err
	}
	return c.enqueue(ctx, task)
}

// EnqueueLedgerWarm schedules a ledger statement build.
func (c *JobsCLI) EnqueueLedgerWarm(ctx context.Context, payload jobs.LedgerWarmPayload) (*asynq.TaskInfo, error) {
	task, err := jobs.NewLedgerWarmTask(payload)
	if err != nil {
		return nil, err
	}
	return c.enqueue(ctx, task)
}

func (c *JobsCLI) enqueue(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// QueueStats summarises the default queue.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reads the default queue counters.
func (c *JobsCLI) InspectQueue(_ context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, fmt.Errorf("jobs cli: queue info: %w", err)
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats = QueueStats{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
		}
	}
	return stats, nil
}
