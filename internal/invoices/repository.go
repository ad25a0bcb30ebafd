package invoices

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

	"github.com/odyssey-erp/bizledger/internal/platform/db"
	"github.com/odyssey-erp/bizledger/internal/sequence"
)

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
	_ TxRepository = (*PGTx)(nil)
)

// NewRepository constructs the repository. loc resolves financial years for numbering.
func NewRepository(pool *pgxpool.Pool, loc *time.Location) *PGRepository {
	return &PGRepository{pool: pool, loc: loc}
}

// WithTx runs fn inside a RepeatableRead transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewPGTx(tx, r.loc))
	})
}

const invoiceColumns = `id, invoice_number, invoice_type, invoice_date, business_id, customer_name, currency,
	subtotal, tax_total, grand_total, rounded_amount, total_paid, balance_amount, paid, partial_payment, paid_on,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.Type, &inv.IssuedOn, &inv.BusinessID, &inv.CustomerName, &inv.Currency,
		&inv.Subtotal, &inv.TaxTotal, &inv.GrandTotal, &inv.RoundedAmount, &inv.TotalPaid, &inv.Balance,
		&inv.Paid, &inv.PartialPayment, &inv.PaidOn, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// Get loads an invoice and its items.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	tx := NewPGTx(r.pool, r.loc)
	inv, err := tx.get(ctx, id, false)
	if err != nil {
		return Invoice{}, err
	}
	items, err := tx.items(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// List returns invoices matching filter.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var conditions []string
	var args []interface{}
	if filter.BusinessID != nil {
		args = append(args, *filter.BusinessID)
		conditions = append(conditions, fmt.Sprintf("business_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, fmt.Sprintf("invoice_type = $%d", len(args)))
	}
	if filter.UnpaidOnly {
		conditions = append(conditions, "paid = FALSE")
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY invoice_date DESC, invoice_number DESC LIMIT %d", filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("invoices: list: %w", err))
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("invoices: scan: %w", err))
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

// Scan streams invoices with a stored balance in number order.
func (r *PGRepository) Scan(ctx context.Context, fn func(Invoice) error) error {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE balance_amount IS NOT NULL ORDER BY invoice_date, invoice_number`)
	if err != nil {
		return db.Classify(fmt.Errorf("invoices: scan balances: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return db.Classify(fmt.Errorf("invoices: scan: %w", err))
		}
		if err := fn(inv); err != nil {
			return err
		}
	}
	return db.Classify(rows.Err())
}

// PGTx carries invoice writes and sequence reservation on one connection or transaction.
type PGTx struct {
	*sequence.PGStore
	db dbtx
}

// NewPGTx binds invoice row operations to conn. Other modules use it to update
// invoices inside their own transaction.
func NewPGTx(conn dbtx, loc *time.Location) *PGTx {
	return &PGTx{PGStore: sequence.NewPGStore(conn, loc), db: conn}
}

// BusinessExists reports whether the referenced business is registered.
func (t *PGTx) BusinessExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := t.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM businesses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, db.Classify(fmt.Errorf("invoices: check business: %w", err))
	}
	return exists, nil
}

// Create inserts an invoice with its items.
func (t *PGTx) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	row := t.db.QueryRow(ctx, `
INSERT INTO invoices (id, invoice_number, invoice_type, invoice_date, business_id, customer_name, currency,
	subtotal, tax_total, grand_total, rounded_amount, total_paid, balance_amount, paid, partial_payment, paid_on,
	created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
RETURNING `+invoiceColumns,
		inv.ID, inv.Number, string(inv.Type), inv.IssuedOn, inv.BusinessID, inv.CustomerName, inv.Currency,
		inv.Subtotal, inv.TaxTotal, inv.GrandTotal, inv.RoundedAmount, inv.TotalPaid, inv.Balance,
		inv.Paid, inv.PartialPayment, inv.PaidOn)
	created, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, db.Classify(fmt.Errorf("invoices: insert %s: %w", inv.Number, err))
	}
	for i, item := range inv.Items {
		_, err := t.db.Exec(ctx, `
INSERT INTO invoice_items (invoice_id, line_no, description, hsn_code, quantity, rate, tax_rate, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			created.ID, i+1, item.Description, item.HSNCode, item.Quantity, item.Rate, item.TaxRate, item.Amount)
		if err != nil {
			return Invoice{}, db.Classify(fmt.Errorf("invoices: insert item %d: %w", i+1, err))
		}
	}
	created.Items = inv.Items
	return created, nil
}

// GetForUpdate loads an invoice and locks its row until the transaction ends.
func (t *PGTx) GetForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return t.get(ctx, id, true)
}

// UpdateFinancials writes every financial and payment field of inv.
func (t *PGTx) UpdateFinancials(ctx context.Context, inv Invoice) error {
	tag, err := t.db.Exec(ctx, `
UPDATE invoices
SET grand_total = $2, rounded_amount = $3, total_paid = $4, balance_amount = $5,
	paid = $6, partial_payment = $7, paid_on = $8, updated_at = NOW()
WHERE id = $1`,
		inv.ID, inv.GrandTotal, inv.RoundedAmount, inv.TotalPaid, inv.Balance, inv.Paid, inv.PartialPayment, inv.PaidOn)
	if err != nil {
		return db.Classify(fmt.Errorf("invoices: update %s: %w", inv.ID, err))
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (t *PGTx) get(ctx context.Context, id uuid.UUID, lock bool) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(t.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%s: %w", id, ErrInvoiceNotFound)
		}
		return Invoice{}, db.Classify(fmt.Errorf("invoices: get %s: %w", id, err))
	}
	return inv, nil
}

func (t *PGTx) items(ctx context.Context, id uuid.UUID) ([]Item, error) {
	rows, err := t.db.Query(ctx, `
SELECT description, hsn_code, quantity, rate, tax_rate, amount
FROM invoice_items WHERE invoice_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("invoices: list items: %w", err))
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Description, &item.HSNCode, &item.Quantity, &item.Rate, &item.TaxRate, &item.Amount); err != nil {
			return nil, db.Classify(fmt.Errorf("invoices: scan item: %w", err))
		}
		items = append(items, item)
	}
	return items, db.Classify(rows.Err())
}
