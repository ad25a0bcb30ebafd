package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/ledger"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/internal/shared"
	"github.com/odyssey-erp/bizledger/jobs"
)

type previewStub struct {
	scope sequence.Scope
	ref   time.Time
}

func (p *previewStub) Preview(_ context.Context, scope sequence.Scope, ref time.Time) (sequence.Number, error) {
	p.scope, p.ref = scope, ref
	return sequence.Number{Scope: scope, Year: shared.FinancialYear(2024), Seq: 8}, nil
}

type ledgerStub struct{ stmt ledger.Statement }

func (l ledgerStub) BuildLedger(context.Context, uuid.UUID, time.Time, time.Time) (ledger.Statement, error) {
	return l.stmt, nil
}

type integrityStub struct{ anomalies []invoices.Anomaly }

func (i integrityStub) Run(context.Context) ([]invoices.Anomaly, error) { return i.anomalies, nil }

type queueStub struct {
	triggered []string
	warm      jobs.LedgerWarmPayload
}

func (q *queueStub) Trigger(_ context.Context, name string) (*asynq.TaskInfo, error) {
	q.triggered = append(q.triggered, name)
	return &asynq.TaskInfo{ID: "t-1", Type: name}, nil
}

func (q *queueStub) EnqueueLedgerWarm(_ context.Context, payload jobs.LedgerWarmPayload) (*asynq.TaskInfo, error) {
	q.warm = payload
	return &asynq.TaskInfo{ID: "t-2", Type: jobs.TaskLedgerWarm}, nil
}

func (q *queueStub) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: jobs.QueueDefault, Pending: 2}, nil
}

func run(t *testing.T, rt *Runtime, args ...string) (string, error) {
	t.Helper()
	released := false
	root := NewRootCommand(func(context.Context) (*Runtime, func(), error) {
		return rt, func() { released = true }, nil
	})
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, released)
	}
	return out.String(), err
}

func TestNextNumberInvoice(t *testing.T) {
	numbers := &previewStub{}
	out, err := run(t, &Runtime{Numbers: numbers}, "next-number", "--scope", "invoice", "--type", "export", "--date", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "EXP/2024-25/8 (financial year 2024-25)\n", out)
	assert.Equal(t, sequence.InvoiceScope("EXPORT"), numbers.scope)
	assert.Equal(t, 2024, numbers.ref.Year())
}

func TestNextNumberVoucherDefaultsToToday(t *testing.T) {
	numbers := &previewStub{}
	out, err := run(t, &Runtime{Numbers: numbers}, "next-number", "--scope", "voucher")
	require.NoError(t, err)
	assert.Equal(t, "2024258 (financial year 2024-25)\n", out)
	assert.True(t, numbers.ref.IsZero())
}

func TestNextNumberRejectsUnknownScope(t *testing.T) {
	_, err := run(t, &Runtime{Numbers: &previewStub{}}, "next-number", "--scope", "receipt")
	require.Error(t, err)
}

func TestLedgerCSV(t *testing.T) {
	stmt := ledger.Statement{
		OpeningBalance: decimal.Zero,
		ClosingBalance: decimal.NewFromInt(5000),
		TotalDebit:     decimal.NewFromInt(5000),
		TotalCredit:    decimal.Zero,
	}
	out, err := run(t, &Runtime{Ledger: ledgerStub{stmt: stmt}},
		"ledger", "--business", uuid.NewString(), "--from", "2024-04-01", "--to", "2024-04-30", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Sr No.,Date,Particulars"))
	assert.Equal(t, "Total,,,,,5000.00,0.00,5000.00", lines[3])
}

func TestLedgerJSON(t *testing.T) {
	id := uuid.New()
	stmt := ledger.Statement{Business: ledger.Party{ID: id, Name: "Acme"}, Entries: []ledger.Entry{}}
	out, err := run(t, &Runtime{Ledger: ledgerStub{stmt: stmt}},
		"ledger", "--business", id.String(), "--from", "2024-04-01", "--to", "2024-04-30")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "entries")
}

func TestLedgerRequiresFlags(t *testing.T) {
	_, err := run(t, &Runtime{Ledger: ledgerStub{}}, "ledger", "--business", uuid.NewString())
	require.Error(t, err)
}

func TestIntegrityReportsAnomalies(t *testing.T) {
	clean, err := run(t, &Runtime{Integrity: integrityStub{}}, "integrity")
	require.NoError(t, err)
	assert.Equal(t, "no anomalies found\n", clean)

	out, err := run(t, &Runtime{Integrity: integrityStub{anomalies: []invoices.Anomaly{{
		Number: "B2B/2024-25/1", Stored: decimal.NewFromInt(10), Expected: decimal.Zero, Reason: "balance does not match rounded amount minus total paid",
	}}}}, "integrity")
	require.Error(t, err)
	assert.Contains(t, out, "B2B/2024-25/1")
	assert.Contains(t, out, "10.00")
}

func TestIntegrityEnqueue(t *testing.T) {
	queue := &queueStub{}
	out, err := run(t, &Runtime{Queue: queue}, "integrity", "--enqueue")
	require.NoError(t, err)
	assert.Equal(t, []string{jobs.TaskBalanceIntegrity}, queue.triggered)
	assert.Contains(t, out, "enqueued invoices:balance-integrity")
}

func TestWarmAndQueueCommands(t *testing.T) {
	queue := &queueStub{}
	id := uuid.New()
	_, err := run(t, &Runtime{Queue: queue}, "warm", "--business", id.String(), "--from", "2024-04-01", "--to", "2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, jobs.LedgerWarmPayload{BusinessID: id, Start: "2024-04-01", End: "2025-03-31"}, queue.warm)

	out, err := run(t, &Runtime{Queue: queue}, "queue", "stats")
	require.NoError(t, err)
	assert.Equal(t, "queue=default pending=2 active=0 scheduled=0 retry=0\n", out)

	_, err = run(t, &Runtime{Queue: queue}, "queue", "cleanup")
	require.NoError(t, err)
	assert.Contains(t, queue.triggered, jobs.TaskIdempotencyCleanup)
}

func TestMissingDependency(t *testing.T) {
	_, err := run(t, &Runtime{}, "integrity")
	require.ErrorIs(t, err, errNotConfigured)
}

func TestMigrate(t *testing.T) {
	out, err := run(t, &Runtime{Migrate: func(context.Context) ([]string, error) {
		return []string{"0001_init.sql"}, nil
	}}, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "applied 0001_init.sql\n", out)
}

func TestJobsCLIRejectsUnknownTrigger(t *testing.T) {
	assert.Equal(t, []string{jobs.TaskIdempotencyCleanup, jobs.TaskBalanceIntegrity}, TriggerNames())

	c := &JobsCLI{}
	_, err := c.Trigger(context.Background(), "ledger:rebuild")
	require.Error(t, err)
	_, err = c.Trigger(context.Background(), jobs.TaskBalanceIntegrity)
	require.Error(t, err)
	require.NoError(t, c.Close())

	_, err = NewJobsCLI("")
	require.Error(t, err)
}
