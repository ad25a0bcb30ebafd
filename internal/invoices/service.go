package invoices

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bizledger/internal/sequence"
)

// Repository is the persistence port for invoices.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	// Scan streams every invoice that has a stored balance.
	Scan(ctx context.Context, fn func(Invoice) error) error
}

// TxRepository exposes writes available inside a transaction.
type TxRepository interface {
	sequence.Store
	BusinessExists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error)
	UpdateFinancials(ctx context.Context, inv Invoice) error
}

// Invalidator drops cached ledger statements after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates invoice workflows.
type Service struct {
	repo    Repository
	numbers *sequence.Allocator
	cache   Invalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the invoice service. cache may be nil.
func NewService(repo Repository, numbers *sequence.Allocator, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, numbers: numbers, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create raises an invoice, reserving its number in the same transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	invoiceType, err := ParseType(string(input.Type))
	if err != nil {
		return Invoice{}, err
	}
	input.Type = invoiceType
	if err := input.Validate(); err != nil {
		return Invoice{}, err
	}

	var created Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.BusinessID != nil {
			ok, err := tx.BusinessExists(ctx, *input.BusinessID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrBusinessNotFound
			}
		}
		number, err := s.numbers.Next(ctx, tx, sequence.InvoiceScope(string(input.Type)), input.IssuedOn)
		if err != nil {
			return err
		}
		inv := Invoice{
			ID:           uuid.New(),
			Number:       number.String(),
			Type:         input.Type,
			IssuedOn:     input.IssuedOn,
			BusinessID:   input.BusinessID,
			CustomerName: strings.TrimSpace(input.CustomerName),
			Currency:     defaultCurrency(input.Currency),
			Subtotal:     input.Subtotal,
			TaxTotal:     input.TaxTotal,
			GrandTotal:   input.GrandTotal,
			Items:        input.Items,
		}
		inv.applyTotals(input.GrandTotal.Round(0), input.TotalPaid, s.now())
		created, err = tx.Create(ctx, inv)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("invoice created",
		slog.String("invoice_id", created.ID.String()),
		slog.String("invoice_number", created.Number),
		slog.String("grand_total", created.GrandTotal.String()))
	return created, nil
}

// UpdateFinancials edits grand total, rounded amount or total paid and re-derives
// the balance and payment flags.
func (s *Service) UpdateFinancials(ctx context.Context, id uuid.UUID, input UpdateFinancialsInput) (Invoice, error) {
	if err := input.Validate(); err != nil {
		return Invoice{}, err
	}
	var updated Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rounded := inv.PayableAmount()
		if input.GrandTotal != nil {
			inv.GrandTotal = *input.GrandTotal
			rounded = input.GrandTotal.Round(0)
		}
		if input.RoundedAmount != nil {
			rounded = *input.RoundedAmount
		}
		paid := inv.TotalPaid
		if input.TotalPaid != nil {
			paid = *input.TotalPaid
		}
		inv.applyTotals(rounded, paid, s.now())
		if err := tx.UpdateFinancials(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("invoice financials updated",
		slog.String("invoice_id", updated.ID.String()),
		slog.String("balance", updated.Balance.Decimal.String()))
	return updated, nil
}

// Get returns an invoice with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoices matching filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// CheckBalances scans stored invoices and reports every balance anomaly.
func (s *Service) CheckBalances(ctx context.Context) ([]Anomaly, error) {
	var anomalies []Anomaly
	err := s.repo.Scan(ctx, func(inv Invoice) error {
		if anomaly, ok := CheckBalance(inv); ok {
			anomalies = append(anomalies, anomaly)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return anomalies, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invalidate ledger cache", slog.Any("error", err))
	}
}

func defaultCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "INR"
	}
	return code
}
