package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/bizledger/internal/platform/db"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGStore implements Store on PostgreSQL. Build it on a pool for previews and
// on a pgx.Tx for reservations.
type PGStore struct {
	db  dbtx
	loc *time.Location
}

var _ Store = (*PGStore)(nil)

// NewPGStore binds the store to a pool or transaction. loc decides where the
// financial year starts for date-filtered scopes.
func NewPGStore(conn dbtx, loc *time.Location) *PGStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PGStore{db: conn, loc: loc}
}

const counterValueSQL = `
SELECT COALESCE((SELECT last_value FROM sequence_counters WHERE scope = $1 AND fy_start = $2), 0)`

const maxInvoiceSQL = `
SELECT COALESCE(MAX(split_part(invoice_number, '/', 3)::bigint), 0)
FROM invoices
WHERE invoice_type = $1
  AND invoice_number LIKE '%' || $2 || '%'
  AND split_part(invoice_number, '/', 3) ~ '^[0-9]+$'`

const maxPaymentCreditSQL = `
SELECT COALESCE(MAX(credit_number), 0)
FROM payment_credits
WHERE credit_date >= $1 AND credit_date < $2`

const maxVoucherSQL = `
SELECT COALESCE(MAX(substr(vcr_number, $2::int)::bigint), 0)
FROM expenses
WHERE vcr_number LIKE $1 || '%'
  AND substr(vcr_number, $2::int) ~ '^[0-9]+$'`

const advanceSQL = `
INSERT INTO sequence_counters (scope, fy_start, last_value, updated_at)
VALUES ($1, $2, $3::bigint + 1, NOW())
ON CONFLICT (scope, fy_start)
DO UPDATE SET last_value = GREATEST(sequence_counters.last_value, $3::bigint) + 1, updated_at = NOW()
RETURNING last_value`

// MaxIssued returns the larger of the counter row and the legacy maximum found on records.
func (s *PGStore) MaxIssued(ctx context.Context, scope Scope, fy shared.FinancialYear) (int64, error) {
	var counter int64
	if err := s.db.QueryRow(ctx, counterValueSQL, scope.Key(), fy.StartYear()).Scan(&counter); err != nil {
		return 0, db.Classify(fmt.Errorf("sequence: read counter %s: %w", scope.Key(), err))
	}
	legacy, err := s.maxOnRecords(ctx, scope, fy)
	if err != nil {
		return 0, db.Classify(fmt.Errorf("sequence: scan %s: %w", scope.Key(), err))
	}
	if legacy > counter {
		return legacy, nil
	}
	return counter, nil
}

func (s *PGStore) maxOnRecords(ctx context.Context, scope Scope, fy shared.FinancialYear) (int64, error) {
	var max int64
	switch scope.Kind {
	case KindInvoice:
		err := s.db.QueryRow(ctx, maxInvoiceSQL, scope.InvoiceType, InvoiceToken(fy)).Scan(&max)
		return max, err
	case KindPaymentCredit:
		start, end := fy.Bounds(s.loc)
		err := s.db.QueryRow(ctx, maxPaymentCreditSQL, start, end).Scan(&max)
		return max, err
	case KindVoucher:
		prefix := fy.Compact()
		err := s.db.QueryRow(ctx, maxVoucherSQL, prefix, len(prefix)+1).Scan(&max)
		return max, err
	default:
		return 0, fmt.Errorf("kind %q: %w", scope.Kind, ErrInvalidScope)
	}
}

// Advance moves the counter row past floor and returns the reserved value.
func (s *PGStore) Advance(ctx context.Context, scope Scope, fy shared.FinancialYear, floor int64) (int64, error) {
	var next int64
	if err := s.db.QueryRow(ctx, advanceSQL, scope.Key(), fy.StartYear(), floor).Scan(&next); err != nil {
		return 0, db.Classify(fmt.Errorf("sequence: advance %s: %w", scope.Key(), err))
	}
	return next, nil
}
