package masterdata

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

var (
	ErrBusinessNotFound    = fmt.Errorf("masterdata: business %w", shared.ErrNotFound)
	ErrBankAccountNotFound = fmt.Errorf("masterdata: bank account %w", shared.ErrNotFound)
	ErrInvalidGST          = fmt.Errorf("masterdata: invalid gst number: %w", shared.ErrValidation)
	ErrDuplicateGST        = fmt.Errorf("masterdata: gst number already registered: %w", shared.ErrValidation)
)

var gstPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)

// NormalizeGST strips whitespace and upper-cases a GST number.
func NormalizeGST(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// ValidGST reports whether an already normalised GST number is well formed.
func ValidGST(gst string) bool {
	return len(gst) == 15 && gstPattern.MatchString(gst)
}

// Business is a counterparty the company invoices. GSTNumber is fixed at creation.
type Business struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	GSTNumber     string    `json:"gst_number"`
	Address       string    `json:"address"`
	Address2      string    `json:"address2,omitempty"`
	District      string    `json:"district,omitempty"`
	State         string    `json:"state,omitempty"`
	Pincode       string    `json:"pincode,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullAddress joins the non-empty address parts with ", ".
func (b Business) FullAddress() string {
	parts := make([]string, 0, 5)
	for _, part := range []string{b.Address, b.Address2, b.District, b.State, b.Pincode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// BankAccount is a company account that receives payments.
type BankAccount struct {
	ID                uuid.UUID `json:"id"`
	BankName          string    `json:"bank_name"`
	AccountNumber     string    `json:"account_number"`
	IFSCCode          string    `json:"ifsc_code"`
	Branch            string    `json:"branch,omitempty"`
	AccountHolderName string    `json:"account_holder_name"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Tail returns the last five characters of the account number.
func (a BankAccount) Tail() string {
	runes := []rune(a.AccountNumber)
	if len(runes) <= 5 {
		return a.AccountNumber
	}
	return string(runes[len(runes)-5:])
}

// CreateBusinessInput carries the fields accepted when registering a business.
type CreateBusinessInput struct {
	Name          string `json:"name" validate:"required,max=200"`
	GSTNumber     string `json:"gst_number" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Address2      string `json:"address2"`
	District      string `json:"district"`
	State         string `json:"state"`
	Pincode       string `json:"pincode" validate:"omitempty,numeric,len=6"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
}

// Normalize trims free text and canonicalises the GST number.
func (in CreateBusinessInput) Normalize() CreateBusinessInput {
	in.Name = strings.TrimSpace(in.Name)
	in.GSTNumber = NormalizeGST(in.GSTNumber)
	in.Address = strings.TrimSpace(in.Address)
	in.Address2 = strings.TrimSpace(in.Address2)
	in.District = strings.TrimSpace(in.District)
	in.State = strings.TrimSpace(in.State)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// Validate checks a normalised input.
func (in CreateBusinessInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("masterdata: business name required: %w", shared.ErrValidation)
	}
	if in.Address == "" {
		return fmt.Errorf("masterdata: business address required: %w", shared.ErrValidation)
	}
	if !ValidGST(in.GSTNumber) {
		return fmt.Errorf("%q: %w", in.GSTNumber, ErrInvalidGST)
	}
	return nil
}

// CreateBankAccountInput carries the fields accepted when registering a bank account.
type CreateBankAccountInput struct {
	BankName          string `json:"bank_name" validate:"required"`
	AccountNumber     string `json:"account_number" validate:"required"`
	IFSCCode          string `json:"ifsc_code" validate:"required,len=11"`
	Branch            string `json:"branch"`
	AccountHolderName string `json:"account_holder_name" validate:"required"`
}

// Normalize trims fields and upper-cases the IFSC code.
func (in CreateBankAccountInput) Normalize() CreateBankAccountInput {
	in.BankName = strings.TrimSpace(in.BankName)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.IFSCCode = strings.ToUpper(strings.TrimSpace(in.IFSCCode))
	in.Branch = strings.TrimSpace(in.Branch)
	in.AccountHolderName = strings.TrimSpace(in.AccountHolderName)
	return in
}

// Validate checks a normalised input.
func (in CreateBankAccountInput) Validate() error {
	switch {
	case in.BankName == "":
		return fmt.Errorf("masterdata: bank name required: %w", shared.ErrValidation)
	case in.AccountNumber == "":
		return fmt.Errorf("masterdata: account number required: %w", shared.ErrValidation)
	case in.IFSCCode == "":
		return fmt.Errorf("masterdata: ifsc code required: %w", shared.ErrValidation)
	case in.AccountHolderName == "":
		return fmt.Errorf("masterdata: account holder name required: %w", shared.ErrValidation)
	}
	return nil
}

// ListFilters narrows list queries.
type ListFilters struct {
	Search string
	Limit  int
	Offset int
}
