package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/platform/db"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

const idempotencyModule = "credits.allocate"

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = (*pgTx)(nil)
)

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool, loc *time.Location) *PGRepository {
	return &PGRepository{pool: pool, loc: loc}
}

// WithTx runs fn inside a RepeatableRead transaction. Invoice, bank account and
// idempotency access all share that transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			PGTx:  invoices.NewPGTx(tx, r.loc),
			banks: masterdata.NewPGRepository(tx),
			keys:  shared.NewIdempotencyStore(tx),
			db:    tx,
		})
	})
}

const creditColumns = `id, credit_number, financial_year, credit_amount, credit_date, bank_account_id, business_id,
	reference, created_at`

func scanCredit(row pgx.Row) (PaymentCredit, error) {
	var c PaymentCredit
	err := row.Scan(&c.ID, &c.Number, &c.FinancialYear, &c.Amount, &c.CreditDate, &c.BankAccountID, &c.BusinessID,
		&c.Reference, &c.CreatedAt)
	return c, err
}

// Get loads a credit and its allocation lines.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (PaymentCredit, error) {
	c, err := scanCredit(r.pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM payment_credits WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentCredit{}, ErrCreditNotFound
		}
		return PaymentCredit{}, db.Classify(fmt.Errorf("credits: get %s: %w", id, err))
	}
	rows, err := r.pool.Query(ctx, `
SELECT ic.id, ic.invoice_id, i.invoice_number, ic.credit_amount
FROM invoice_credits ic
JOIN invoices i ON i.id = ic.invoice_id
WHERE ic.payment_credit_id = $1
ORDER BY ic.line_no`, id)
	if err != nil {
		return PaymentCredit{}, db.Classify(fmt.Errorf("credits: list lines: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceCredit
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.InvoiceNumber, &line.Amount); err != nil {
			return PaymentCredit{}, db.Classify(fmt.Errorf("credits: scan line: %w", err))
		}
		c.Lines = append(c.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return PaymentCredit{}, db.Classify(err)
	}
	return c, nil
}

// List returns credit headers matching filter.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]PaymentCredit, error) {
	var conditions []string
	var args []interface{}
	if filter.BusinessID != nil {
		args = append(args, *filter.BusinessID)
		conditions = append(conditions, fmt.Sprintf("business_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("credit_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("credit_date <= $%d", len(args)))
	}
	query := `SELECT ` + creditColumns + ` FROM payment_credits`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY credit_date DESC, credit_number DESC LIMIT %d", filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("credits: list: %w", err))
	}
	defer rows.Close()
	var out []PaymentCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("credits: scan: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

type pgTx struct {
	*invoices.PGTx
	banks *masterdata.PGRepository
	keys  *shared.IdempotencyStore
	db    dbtx
}

func (t *pgTx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if err := t.keys.Claim(ctx, key, idempotencyModule); err != nil {
		return db.Classify(err)
	}
	return nil
}

func (t *pgTx) GetBankAccount(ctx context.Context, id uuid.UUID) (masterdata.BankAccount, error) {
	return t.banks.GetBankAccount(ctx, id)
}

func (t *pgTx) CreateCredit(ctx context.Context, c PaymentCredit) error {
	_, err := t.db.Exec(ctx, `
INSERT INTO payment_credits (id, credit_number, financial_year, credit_amount, credit_date, bank_account_id,
	business_id, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Number, int(c.FinancialYear), c.Amount, c.CreditDate, c.BankAccountID, c.BusinessID, c.Reference, c.CreatedAt)
	if err != nil {
		return db.Classify(fmt.Errorf("credits: insert credit %d: %w", c.Number, err))
	}
	for i, line := range c.Lines {
		_, err := t.db.Exec(ctx, `
INSERT INTO invoice_credits (id, payment_credit_id, invoice_id, line_no, credit_amount)
VALUES ($1, $2, $3, $4, $5)`, line.ID, c.ID, line.InvoiceID, i+1, line.Amount)
		if err != nil {
			return db.Classify(fmt.Errorf("credits: insert line %d: %w", i+1, err))
		}
	}
	return nil
}

func (t *pgTx) CreatePartialPayment(ctx context.Context, p PartialPayment) error {
	_, err := t.db.Exec(ctx, `
INSERT INTO partial_payments (id, invoice_id, payment_credit_id, bank_account_id, business_id, amount, paid_on, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		p.ID, p.InvoiceID, p.PaymentCreditID, p.BankAccountID, p.BusinessID, p.Amount, p.PaidOn)
	if err != nil {
		return db.Classify(fmt.Errorf("credits: insert partial payment: %w", err))
	}
	return nil
}
