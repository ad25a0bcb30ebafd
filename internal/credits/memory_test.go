package credits

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

type counterKey struct {
	scope string
	fy    shared.FinancialYear
}

// memoryState is everything a transaction can touch.
type memoryState struct {
	invoices map[uuid.UUID]invoices.Invoice
	banks    map[uuid.UUID]masterdata.BankAccount
	counters map[counterKey]int64
	credits  map[uuid.UUID]PaymentCredit
	partials []PartialPayment
	keys     map[string]bool
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		invoices: make(map[uuid.UUID]invoices.Invoice, len(s.invoices)),
		banks:    s.banks,
		counters: make(map[counterKey]int64, len(s.counters)),
		credits:  make(map[uuid.UUID]PaymentCredit, len(s.credits)),
		partials: append([]PartialPayment(nil), s.partials...),
		keys:     make(map[string]bool, len(s.keys)),
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for k, v := range s.credits {
		c.credits[k] = v
	}
	for k, v := range s.keys {
		c.keys[k] = v
	}
	return c
}

type memoryRepo struct {
	state         memoryState
	failPartialOn int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		invoices: map[uuid.UUID]invoices.Invoice{},
		banks:    map[uuid.UUID]masterdata.BankAccount{},
		counters: map[counterKey]int64{},
		credits:  map[uuid.UUID]PaymentCredit{},
		keys:     map[string]bool{},
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{state: r.state.clone(), failPartialOn: r.failPartialOn}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (PaymentCredit, error) {
	c, ok := r.state.credits[id]
	if !ok {
		return PaymentCredit{}, ErrCreditNotFound
	}
	return c, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]PaymentCredit, error) {
	var out []PaymentCredit
	for _, c := range r.state.credits {
		if filter.BusinessID != nil && (c.BusinessID == nil || *c.BusinessID != *filter.BusinessID) {
			continue
		}
		if !filter.From.IsZero() && c.CreditDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && c.CreditDate.After(filter.To) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (r *memoryRepo) partialsFor(invoiceID uuid.UUID) []PartialPayment {
	var out []PartialPayment
	for _, p := range r.state.partials {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out
}

type memoryTx struct {
	state         memoryState
	failPartialOn int
	partialWrites int
}

func (tx *memoryTx) MaxIssued(ctx context.Context, scope sequence.Scope, fy shared.FinancialYear) (int64, error) {
	return tx.state.counters[counterKey{scope.Key(), fy}], nil
}

func (tx *memoryTx) Advance(ctx context.Context, scope sequence.Scope, fy shared.FinancialYear, floor int64) (int64, error) {
	key := counterKey{scope.Key(), fy}
	if floor > tx.state.counters[key] {
		tx.state.counters[key] = floor
	}
	tx.state.counters[key]++
	return tx.state.counters[key], nil
}

func (tx *memoryTx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if tx.state.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	tx.state.keys[key] = true
	return nil
}

func (tx *memoryTx) GetBankAccount(ctx context.Context, id uuid.UUID) (masterdata.BankAccount, error) {
	a, ok := tx.state.banks[id]
	if !ok {
		return masterdata.BankAccount{}, masterdata.ErrBankAccountNotFound
	}
	return a, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (invoices.Invoice, error) {
	inv, ok := tx.state.invoices[id]
	if !ok {
		return invoices.Invoice{}, invoices.ErrInvoiceNotFound
	}
	return inv, nil
}

func (tx *memoryTx) UpdateFinancials(ctx context.Context, inv invoices.Invoice) error {
	tx.state.invoices[inv.ID] = inv
	return nil
}

func (tx *memoryTx) CreateCredit(ctx context.Context, c PaymentCredit) error {
	for _, existing := range tx.state.credits {
		if existing.FinancialYear == c.FinancialYear && existing.Number == c.Number {
			return fmt.Errorf("duplicate credit number: %w", shared.ErrConcurrency)
		}
	}
	tx.state.credits[c.ID] = c
	return nil
}

func (tx *memoryTx) CreatePartialPayment(ctx context.Context, p PartialPayment) error {
	tx.partialWrites++
	if tx.failPartialOn > 0 && tx.partialWrites == tx.failPartialOn {
		return fmt.Errorf("insert partial payment: %w", shared.ErrStorage)
	}
	tx.state.partials = append(tx.state.partials, p)
	return nil
}

type bumpCounter struct{ bumps int }

func (b *bumpCounter) Bump(ctx context.Context) error {
	b.bumps++
	return nil
}

type recorderStub struct{ lines, partials int }

func (r *recorderStub) PaymentAllocated(lines, partials int) {
	r.lines += lines
	r.partials += partials
}
