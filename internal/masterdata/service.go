package masterdata

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Repository is the persistence port for businesses and bank accounts.
type Repository interface {
	CreateBusiness(ctx context.Context, b Business) (Business, error)
	GetBusiness(ctx context.Context, id uuid.UUID) (Business, error)
	ListBusinesses(ctx context.Context, filters ListFilters) ([]Business, error)
	CreateBankAccount(ctx context.Context, a BankAccount) (BankAccount, error)
	GetBankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error)
	ListBankAccounts(ctx context.Context) ([]BankAccount, error)
}

// Service implements business and bank account registration.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new master data service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateBusiness validates and stores a business.
func (s *Service) CreateBusiness(ctx context.Context, input CreateBusinessInput) (Business, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return Business{}, err
	}
	created, err := s.repo.CreateBusiness(ctx, Business{
		ID:            uuid.New(),
		Name:          input.Name,
		GSTNumber:     input.GSTNumber,
		Address:       input.Address,
		Address2:      input.Address2,
		District:      input.District,
		State:         input.State,
		Pincode:       input.Pincode,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
	})
	if err != nil {
		return Business{}, err
	}
	s.logger.Info("business created", slog.String("business_id", created.ID.String()), slog.String("gst_number", created.GSTNumber))
	return created, nil
}

// GetBusiness returns a business by id.
func (s *Service) GetBusiness(ctx context.Context, id uuid.UUID) (Business, error) {
	if id == uuid.Nil {
		return Business{}, ErrBusinessNotFound
	}
	return s.repo.GetBusiness(ctx, id)
}

// ListBusinesses returns businesses ordered by name.
func (s *Service) ListBusinesses(ctx context.Context, filters ListFilters) ([]Business, error) {
	if filters.Limit <= 0 || filters.Limit > 500 {
		filters.Limit = 100
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.repo.ListBusinesses(ctx, filters)
}

// CreateBankAccount validates and stores a bank account.
func (s *Service) CreateBankAccount(ctx context.Context, input CreateBankAccountInput) (BankAccount, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return BankAccount{}, err
	}
	created, err := s.repo.CreateBankAccount(ctx, BankAccount{
		ID:                uuid.New(),
		BankName:          input.BankName,
		AccountNumber:     input.AccountNumber,
		IFSCCode:          input.IFSCCode,
		Branch:            input.Branch,
		AccountHolderName: input.AccountHolderName,
	})
	if err != nil {
		return BankAccount{}, err
	}
	s.logger.Info("bank account created", slog.String("bank_account_id", created.ID.String()), slog.String("bank", created.BankName))
	return created, nil
}

// GetBankAccount returns a bank account by id.
func (s *Service) GetBankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error) {
	if id == uuid.Nil {
		return BankAccount{}, ErrBankAccountNotFound
	}
	return s.repo.GetBankAccount(ctx, id)
}

// ListBankAccounts returns all bank accounts.
func (s *Service) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	return s.repo.ListBankAccounts(ctx)
}
