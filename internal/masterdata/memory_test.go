package masterdata

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	businesses map[uuid.UUID]Business
	accounts   map[uuid.UUID]BankAccount
	err        error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{businesses: map[uuid.UUID]Business{}, accounts: map[uuid.UUID]BankAccount{}}
}

func (m *memoryRepo) CreateBusiness(ctx context.Context, b Business) (Business, error) {
	if m.err != nil {
		return Business{}, m.err
	}
	for _, existing := range m.businesses {
		if existing.GSTNumber == b.GSTNumber {
			return Business{}, ErrDuplicateGST
		}
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	m.businesses[b.ID] = b
	return b, nil
}

func (m *memoryRepo) GetBusiness(ctx context.Context, id uuid.UUID) (Business, error) {
	b, ok := m.businesses[id]
	if !ok {
		return Business{}, ErrBusinessNotFound
	}
	return b, nil
}

func (m *memoryRepo) ListBusinesses(ctx context.Context, filters ListFilters) ([]Business, error) {
	var out []Business
	for _, b := range m.businesses {
		if filters.Search != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) CreateBankAccount(ctx context.Context, a BankAccount) (BankAccount, error) {
	if m.err != nil {
		return BankAccount{}, m.err
	}
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryRepo) GetBankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return BankAccount{}, ErrBankAccountNotFound
	}
	return a, nil
}

func (m *memoryRepo) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	var out []BankAccount
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}
