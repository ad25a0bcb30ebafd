// Package credits records bank-received payments and allocates them across
// outstanding invoices in one unit of work.
package credits

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

var (
	ErrCreditNotFound     = fmt.Errorf("credits: payment credit %w", shared.ErrNotFound)
	ErrInvalidAmount      = fmt.Errorf("credits: amount must be positive: %w", shared.ErrValidation)
	ErrInvalidDate        = fmt.Errorf("credits: credit date required: %w", shared.ErrValidation)
	ErrNoAllocations      = fmt.Errorf("credits: at least one allocation required: %w", shared.ErrValidation)
	ErrMissingBank        = fmt.Errorf("credits: bank account required: %w", shared.ErrValidation)
	ErrInvalidRange       = fmt.Errorf("credits: end date before start date: %w", shared.ErrValidation)
	ErrAllocationMismatch = fmt.Errorf("credits: allocations do not sum to the credited amount: %w", shared.ErrConsistency)
)

// PaymentCredit is one payment received into a bank account.
type PaymentCredit struct {
	ID            uuid.UUID            `json:"id"`
	Number        int64                `json:"credit_number"`
	FinancialYear shared.FinancialYear `json:"financial_year"`
	Amount        decimal.Decimal      `json:"credit_amount"`
	CreditDate    time.Time            `json:"credit_date"`
	BankAccountID uuid.UUID            `json:"bank_account_id"`
	BusinessID    *uuid.UUID           `json:"business_id,omitempty"`
	Reference     string               `json:"reference,omitempty"`
	Lines         []InvoiceCredit      `json:"allocations"`
	CreatedAt     time.Time            `json:"created_at"`
}

// InvoiceCredit is the portion of a payment credit applied to one invoice.
type InvoiceCredit struct {
	ID            uuid.UUID         `json:"id"`
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Amount        decimal.Decimal   `json:"credit_amount"`
	Invoice       *invoices.Invoice `json:"invoice,omitempty"`
}

// PartialPayment is the audit row written for an allocation that did not pay
// the whole invoice in one shot.
type PartialPayment struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	PaymentCreditID uuid.UUID       `json:"payment_credit_id"`
	BankAccountID   uuid.UUID       `json:"bank_account_id"`
	BusinessID      *uuid.UUID      `json:"business_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaidOn          time.Time       `json:"paid_on"`
}

// Allocation requests amount be applied to an invoice.
type Allocation struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// AllocatePaymentInput carries a received payment and how it is split.
type AllocatePaymentInput struct {
	Amount         decimal.Decimal
	CreditDate     time.Time
	BankAccountID  uuid.UUID
	Reference      string
	Allocations    []Allocation
	IdempotencyKey string
}

// Validate checks the input before any store access.
func (in AllocatePaymentInput) Validate() error {
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.CreditDate.IsZero() {
		return ErrInvalidDate
	}
	if in.BankAccountID == uuid.Nil {
		return ErrMissingBank
	}
	if len(in.Allocations) == 0 {
		return ErrNoAllocations
	}
	sum := decimal.Zero
	for i, a := range in.Allocations {
		if a.InvoiceID == uuid.Nil {
			return fmt.Errorf("allocation %d: invoice required: %w", i+1, shared.ErrValidation)
		}
		if !a.Amount.IsPositive() {
			return fmt.Errorf("allocation %d: %w", i+1, ErrInvalidAmount)
		}
		sum = sum.Add(a.Amount)
	}
	if !sum.Equal(in.Amount) {
		return fmt.Errorf("%w (allocated %s of %s)", ErrAllocationMismatch, sum.StringFixed(2), in.Amount.StringFixed(2))
	}
	if len(strings.TrimSpace(in.IdempotencyKey)) > 200 {
		return fmt.Errorf("idempotency key too long: %w", shared.ErrValidation)
	}
	return nil
}

// Settle applies amount to inv and returns the updated invoice together with
// whether this single amount paid the whole invoice.
//
// The stored balance is the running value. Full payment compares against the
// original payable amount, not the remaining balance, so a final instalment
// that closes an invoice still counts as partial. Only payment fields change;
// the invoice's amounts are left as stored.
func Settle(inv invoices.Invoice, amount decimal.Decimal, creditDate time.Time) (invoices.Invoice, bool) {
	payable := inv.PayableAmount()
	balance := inv.OutstandingBalance().Sub(amount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	wasPaid := inv.Paid

	inv.TotalPaid = inv.TotalPaid.Add(amount)
	inv.Balance = decimal.NewNullDecimal(balance)
	inv.PartialPayment = balance.IsPositive()
	inv.Paid = balance.IsZero()
	if inv.Paid && !wasPaid {
		paidOn := creditDate
		inv.PaidOn = &paidOn
	}
	return inv, amount.Equal(payable)
}

// inferBusiness returns the business shared by every invoice, or nil.
func inferBusiness(list []invoices.Invoice) *uuid.UUID {
	var owner *uuid.UUID
	for _, inv := range list {
		if inv.BusinessID == nil {
			return nil
		}
		if owner == nil {
			id := *inv.BusinessID
			owner = &id
			continue
		}
		if *owner != *inv.BusinessID {
			return nil
		}
	}
	return owner
}

// ListFilter narrows credit listings. Zero dates are unbounded.
type ListFilter struct {
	BusinessID *uuid.UUID
	From       time.Time
	To         time.Time
	Limit      int
}
