// Package cli builds the bizctl command tree.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/ledger"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/jobs"
)

// NumberPreviewer previews the next number of a scope.
type NumberPreviewer interface {
	Preview(ctx context.Context, scope sequence.Scope, ref time.Time) (sequence.Number, error)
}

// LedgerBuilder builds ledger statements.
type LedgerBuilder interface {
	BuildLedger(ctx context.Context, businessID uuid.UUID, start, end time.Time) (ledger.Statement, error)
}

// IntegrityRunner runs the balance scan once.
type IntegrityRunner interface {
	Run(ctx context.Context) ([]invoices.Anomaly, error)
}

// Queue enqueues background work.
type Queue interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
	EnqueueLedgerWarm(ctx context.Context, payload jobs.LedgerWarmPayload) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
}

// Runtime carries the services a command needs. Unused fields may be nil.
type Runtime struct {
	Location  *time.Location
	Numbers   NumberPreviewer
	Ledger    LedgerBuilder
	Integrity IntegrityRunner
	Queue     Queue
	Migrate   func(ctx context.Context) ([]string, error)
}

// Bootstrap opens the runtime dependencies and returns a release func.
type Bootstrap func(ctx context.Context) (*Runtime, func(), error)

var errNotConfigured = errors.New("bizctl: dependency not configured")

// NewRootCommand assembles bizctl. boot runs lazily, once per invocation.
func NewRootCommand(boot Bootstrap) *cobra.Command {
	var (
		runtime *Runtime
		release func()
	)
	root := &cobra.Command{
		Use:           "bizctl",
		Short:         "Operational commands for BizLedger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, rel, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			runtime, release = rt, rel
			if runtime.Location == nil {
				runtime.Location = time.UTC
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if release != nil {
				release()
			}
		},
	}
	rt := func() *Runtime { return runtime }
	root.AddCommand(
		newNextNumberCommand(rt),
		newLedgerCommand(rt),
		newIntegrityCommand(rt),
		newWarmCommand(rt),
		newQueueCommand(rt),
		newMigrateCommand(rt),
	)
	return root
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, value, loc)
}
