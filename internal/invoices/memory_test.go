package invoices

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bizledger/internal/sequence"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

type counterKey struct {
	scope string
	fy    shared.FinancialYear
}

type memoryRepo struct {
	invoices   map[uuid.UUID]Invoice
	businesses map[uuid.UUID]bool
	counters   map[counterKey]int64
	failCreate error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices:   map[uuid.UUID]Invoice{},
		businesses: map[uuid.UUID]bool{},
		counters:   map[counterKey]int64{},
	}
}

func (r *memoryRepo) clone() *memoryRepo {
	c := newMemoryRepo()
	c.failCreate = r.failCreate
	for k, v := range r.invoices {
		c.invoices[k] = v
	}
	for k, v := range r.businesses {
		c.businesses[k] = v
	}
	for k, v := range r.counters {
		c.counters[k] = v
	}
	return c
}

// WithTx works on a copy and publishes it only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.clone()
	if err := fn(ctx, &memoryTx{repo: work}); err != nil {
		return err
	}
	r.invoices, r.counters = work.invoices, work.counters
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if filter.BusinessID != nil && (inv.BusinessID == nil || *inv.BusinessID != *filter.BusinessID) {
			continue
		}
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		if filter.UnpaidOnly && inv.Paid {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memoryRepo) Scan(ctx context.Context, fn func(Invoice) error) error {
	list, _ := r.List(ctx, ListFilter{})
	for _, inv := range list {
		if !inv.Balance.Valid {
			continue
		}
		if err := fn(inv); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memoryTx) MaxIssued(ctx context.Context, scope sequence.Scope, fy shared.FinancialYear) (int64, error) {
	return tx.repo.counters[counterKey{scope.Key(), fy}], nil
}

func (tx *memoryTx) Advance(ctx context.Context, scope sequence.Scope, fy shared.FinancialYear, floor int64) (int64, error) {
	key := counterKey{scope.Key(), fy}
	if floor > tx.repo.counters[key] {
		tx.repo.counters[key] = floor
	}
	tx.repo.counters[key]++
	return tx.repo.counters[key], nil
}

func (tx *memoryTx) BusinessExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return tx.repo.businesses[id], nil
}

func (tx *memoryTx) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	if tx.repo.failCreate != nil {
		return Invoice{}, tx.repo.failCreate
	}
	tx.repo.invoices[inv.ID] = inv
	return inv, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) UpdateFinancials(ctx context.Context, inv Invoice) error {
	if _, ok := tx.repo.invoices[inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	tx.repo.invoices[inv.ID] = inv
	return nil
}

type bumpCounter struct{ bumps int }

func (b *bumpCounter) Bump(ctx context.Context) error {
	b.bumps++
	return nil
}
