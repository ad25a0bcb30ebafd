package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/platform/db"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

// PGReader loads statement sources from PostgreSQL.
type PGReader struct {
	pool *pgxpool.Pool
}

var _ Reader = (*PGReader)(nil)

// NewPGReader constructs the reader.
func NewPGReader(pool *pgxpool.Pool) *PGReader {
	return &PGReader{pool: pool}
}

const invoicedBeforeSQL = `
SELECT COALESCE(SUM(COALESCE(rounded_amount, grand_total)), 0)
FROM invoices
WHERE business_id = $1 AND invoice_date < $2`

const creditedBeforeSQL = `
SELECT COALESCE(SUM(credit_amount), 0)
FROM payment_credits
WHERE business_id = $1 AND credit_date < $2`

const invoicesInRangeSQL = `
SELECT invoice_date, invoice_number, grand_total, rounded_amount
FROM invoices
WHERE business_id = $1 AND invoice_date >= $2 AND invoice_date <= $3
ORDER BY invoice_date,
	CASE WHEN invoice_number ~ '/[0-9]+$' THEN substring(invoice_number FROM '/([0-9]+)$')::bigint END NULLS LAST,
	invoice_number`

const creditsInRangeSQL = `
SELECT pc.credit_date, pc.credit_number, pc.credit_amount, ba.bank_name, ba.account_number
FROM payment_credits pc
JOIN bank_accounts ba ON ba.id = pc.bank_account_id
WHERE pc.business_id = $1 AND pc.credit_date >= $2 AND pc.credit_date <= $3
ORDER BY pc.credit_date, pc.credit_number`

// Load reads the business, opening sums and in-range rows from one read-only
// repeatable-read snapshot.
func (r *PGReader) Load(ctx context.Context, businessID uuid.UUID, start, end time.Time) (Sources, error) {
	var src Sources
	err := db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		business, err := masterdata.NewPGRepository(tx).GetBusiness(ctx, businessID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrBusinessNotFound
			}
			return err
		}
		src.Business = business

		if err := tx.QueryRow(ctx, invoicedBeforeSQL, businessID, start).Scan(&src.InvoicedBefore); err != nil {
			return fmt.Errorf("ledger: opening debits: %w", err)
		}
		if err := tx.QueryRow(ctx, creditedBeforeSQL, businessID, start).Scan(&src.CreditedBefore); err != nil {
			return fmt.Errorf("ledger: opening credits: %w", err)
		}
		if src.Invoices, err = loadInvoices(ctx, tx, businessID, start, end); err != nil {
			return err
		}
		src.Credits, err = loadCredits(ctx, tx, businessID, start, end)
		return err
	})
	if err != nil {
		return Sources{}, err
	}
	return src, nil
}

func loadInvoices(ctx context.Context, tx pgx.Tx, businessID uuid.UUID, start, end time.Time) ([]InvoiceRow, error) {
	rows, err := tx.Query(ctx, invoicesInRangeSQL, businessID, start, end)
	if err != nil {
		return nil, fmt.Errorf("ledger: invoices in range: %w", err)
	}
	defer rows.Close()
	var out []InvoiceRow
	for rows.Next() {
		var row InvoiceRow
		if err := rows.Scan(&row.Date, &row.Number, &row.GrandTotal, &row.RoundedAmount); err != nil {
			return nil, fmt.Errorf("ledger: scan invoice: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func loadCredits(ctx context.Context, tx pgx.Tx, businessID uuid.UUID, start, end time.Time) ([]CreditRow, error) {
	rows, err := tx.Query(ctx, creditsInRangeSQL, businessID, start, end)
	if err != nil {
		return nil, fmt.Errorf("ledger: credits in range: %w", err)
	}
	defer rows.Close()
	var out []CreditRow
	for rows.Next() {
		var row CreditRow
		if err := rows.Scan(&row.Date, &row.Number, &row.Amount, &row.BankName, &row.AccountNumber); err != nil {
			return nil, fmt.Errorf("ledger: scan credit: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
