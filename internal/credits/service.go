package credits

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Repository is the persistence port for payment credits.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (PaymentCredit, error)
	List(ctx context.Context, filter ListFilter) ([]PaymentCredit, error)
}

// TxRepository exposes the writes an allocation performs inside one transaction.
type TxRepository interface {
	sequence.Store
	ClaimIdempotencyKey(ctx context.Context, key string) error
	GetBankAccount(ctx context.Context, id uuid.UUID) (masterdata.BankAccount, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (invoices.Invoice, error)
	UpdateFinancials(ctx context.Context, inv invoices.Invoice) error
	CreateCredit(ctx context.Context, credit PaymentCredit) error
	CreatePartialPayment(ctx context.Context, p PartialPayment) error
}

// Invalidator drops cached ledger statements after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder observes committed allocations.
type Recorder interface {
	PaymentAllocated(lines, partials int)
}

// Service runs the payment allocation workflow.
type Service struct {
	repo     Repository
	numbers  *sequence.Allocator
	cache    Invalidator
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the service. cache may be nil.
func NewService(repo Repository, numbers *sequence.Allocator, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, numbers: numbers, cache: cache, logger: logger, now: time.Now}
}

// WithRecorder attaches allocation metrics.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AllocatePayment records a payment credit and applies each allocation line to
// its invoice, in the order supplied. Every write happens in one transaction;
// any failure leaves the store untouched.
func (s *Service) AllocatePayment(ctx context.Context, input AllocatePaymentInput) (PaymentCredit, error) {
	if err := input.Validate(); err != nil {
		return PaymentCredit{}, err
	}
	creditDate := shared.StartOfDay(input.CreditDate, s.numbers.Location())
	key := strings.TrimSpace(input.IdempotencyKey)

	var credit PaymentCredit
	partials := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		partials = 0
		if key != "" {
			if err := tx.ClaimIdempotencyKey(ctx, key); err != nil {
				return err
			}
		}
		if _, err := tx.GetBankAccount(ctx, input.BankAccountID); err != nil {
			return err
		}

		state := make(map[uuid.UUID]invoices.Invoice, len(input.Allocations))
		loaded := make([]invoices.Invoice, 0, len(input.Allocations))
		for _, a := range input.Allocations {
			if _, ok := state[a.InvoiceID]; ok {
				continue
			}
			inv, err := tx.GetForUpdate(ctx, a.InvoiceID)
			if err != nil {
				return err
			}
			state[a.InvoiceID] = inv
			loaded = append(loaded, inv)
		}

		number, err := s.numbers.Next(ctx, tx, sequence.PaymentCreditScope(), creditDate)
		if err != nil {
			return err
		}
		credit = PaymentCredit{
			ID:            uuid.New(),
			Number:        number.Seq,
			FinancialYear: number.Year,
			Amount:        input.Amount,
			CreditDate:    creditDate,
			BankAccountID: input.BankAccountID,
			BusinessID:    inferBusiness(loaded),
			Reference:     strings.TrimSpace(input.Reference),
			CreatedAt:     s.now(),
		}
		for _, a := range input.Allocations {
			credit.Lines = append(credit.Lines, InvoiceCredit{
				ID:            uuid.New(),
				InvoiceID:     a.InvoiceID,
				InvoiceNumber: state[a.InvoiceID].Number,
				Amount:        a.Amount,
			})
		}
		if err := tx.CreateCredit(ctx, credit); err != nil {
			return err
		}

		for _, line := range credit.Lines {
			updated, full := Settle(state[line.InvoiceID], line.Amount, creditDate)
			if !full {
				partials++
				err := tx.CreatePartialPayment(ctx, PartialPayment{
					ID:              uuid.New(),
					InvoiceID:       line.InvoiceID,
					PaymentCreditID: credit.ID,
					BankAccountID:   credit.BankAccountID,
					BusinessID:      state[line.InvoiceID].BusinessID,
					Amount:          line.Amount,
					PaidOn:          creditDate,
				})
				if err != nil {
					return err
				}
			}
			if err := tx.UpdateFinancials(ctx, updated); err != nil {
				return err
			}
			state[line.InvoiceID] = updated
		}
		for i := range credit.Lines {
			inv := state[credit.Lines[i].InvoiceID]
			credit.Lines[i].Invoice = &inv
		}
		return nil
	})
	if err != nil {
		return PaymentCredit{}, err
	}

	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("invalidate ledger cache", slog.Any("error", err))
		}
	}
	if s.recorder != nil {
		s.recorder.PaymentAllocated(len(credit.Lines), partials)
	}
	logArgs := []any{
		slog.Int64("credit_number", credit.Number),
		slog.String("financial_year", credit.FinancialYear.Label()),
		slog.String("amount", credit.Amount.StringFixed(2)),
		slog.Int("invoices", len(credit.Lines)),
		slog.Int("partial_payments", partials),
	}
	if credit.BusinessID != nil {
		logArgs = append(logArgs, slog.String("business_id", credit.BusinessID.String()))
	}
	s.logger.Info("payment credit allocated", logArgs...)
	return credit, nil
}

// Get returns a credit with its allocation lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (PaymentCredit, error) {
	return s.repo.Get(ctx, id)
}

// List returns credits matching filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PaymentCredit, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, ErrInvalidRange
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}
