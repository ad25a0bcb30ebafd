package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/bizledger/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository on PostgreSQL. It accepts a pool or a
// transaction so other modules can read master data inside their own unit of work.
type PGRepository struct {
	db dbtx
}

var _ Repository = (*PGRepository)(nil)

// NewPGRepository binds the repository to conn.
func NewPGRepository(conn dbtx) *PGRepository {
	return &PGRepository{db: conn}
}

const businessColumns = `id, name, gst_number, address, address2, district, state, pincode,
	contact_person, email, phone, created_at, updated_at`

const bankAccountColumns = `id, bank_name, account_number, ifsc_code, branch, account_holder_name, created_at, updated_at`

func scanBusiness(row pgx.Row) (Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.Name, &b.GSTNumber, &b.Address, &b.Address2, &b.District, &b.State, &b.Pincode,
		&b.ContactPerson, &b.Email, &b.Phone, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanBankAccount(row pgx.Row) (BankAccount, error) {
	var a BankAccount
	err := row.Scan(&a.ID, &a.BankName, &a.AccountNumber, &a.IFSCCode, &a.Branch, &a.AccountHolderName, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateBusiness inserts a business and returns the stored row.
func (r *PGRepository) CreateBusiness(ctx context.Context, b Business) (Business, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO businesses (id, name, gst_number, address, address2, district, state, pincode, contact_person, email, phone, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
RETURNING `+businessColumns,
		b.ID, b.Name, b.GSTNumber, b.Address, b.Address2, b.District, b.State, b.Pincode, b.ContactPerson, b.Email, b.Phone)
	created, err := scanBusiness(row)
	if err != nil {
		if db.IsUniqueViolation(err, "businesses_gst_number_key") {
			return Business{}, ErrDuplicateGST
		}
		return Business{}, db.Classify(fmt.Errorf("masterdata: insert business: %w", err))
	}
	return created, nil
}

// GetBusiness loads a business by id.
func (r *PGRepository) GetBusiness(ctx context.Context, id uuid.UUID) (Business, error) {
	b, err := scanBusiness(r.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Business{}, ErrBusinessNotFound
		}
		return Business{}, db.Classify(fmt.Errorf("masterdata: get business: %w", err))
	}
	return b, nil
}

// ListBusinesses lists businesses ordered by name.
func (r *PGRepository) ListBusinesses(ctx context.Context, filters ListFilters) ([]Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses`
	args := []interface{}{}
	if search := strings.TrimSpace(filters.Search); search != "" {
		query += ` WHERE name ILIKE $1 OR gst_number ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += fmt.Sprintf(` ORDER BY name, id LIMIT %d OFFSET %d`, filters.Limit, filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("masterdata: list businesses: %w", err))
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("masterdata: scan business: %w", err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

// CreateBankAccount inserts a bank account and returns the stored row.
func (r *PGRepository) CreateBankAccount(ctx context.Context, a BankAccount) (BankAccount, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO bank_accounts (id, bank_name, account_number, ifsc_code, branch, account_holder_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING `+bankAccountColumns,
		a.ID, a.BankName, a.AccountNumber, a.IFSCCode, a.Branch, a.AccountHolderName)
	created, err := scanBankAccount(row)
	if err != nil {
		return BankAccount{}, db.Classify(fmt.Errorf("masterdata: insert bank account: %w", err))
	}
	return created, nil
}

// GetBankAccount loads a bank account by id.
func (r *PGRepository) GetBankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error) {
	a, err := scanBankAccount(r.db.QueryRow(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrBankAccountNotFound
		}
		return BankAccount{}, db.Classify(fmt.Errorf("masterdata: get bank account: %w", err))
	}
	return a, nil
}

// ListBankAccounts lists bank accounts ordered by bank name.
func (r *PGRepository) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts ORDER BY bank_name, account_number`)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("masterdata: list bank accounts: %w", err))
	}
	defer rows.Close()

	var out []BankAccount
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("masterdata: scan bank account: %w", err))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}
