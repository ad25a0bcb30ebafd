// Package invoices owns invoice records: creation with a scoped number, the
// financial edit path, and the balance invariant
// balance == max(0, rounded - totalPaid).
package invoices

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Type classifies invoices and selects their numbering scope.
type Type string

// Invoice types.
const (
	TypeB2B    Type = "B2B"
	TypeB2C    Type = "B2C"
	TypeExport Type = "EXPORT"
)

// ParseType normalises and validates an invoice type.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TypeB2B, TypeB2C, TypeExport:
		return t, nil
	}
	return "", fmt.Errorf("invoice type %q: %w", raw, ErrInvalidType)
}

var (
	ErrInvoiceNotFound  = fmt.Errorf("invoices: invoice %w", shared.ErrNotFound)
	ErrBusinessNotFound = fmt.Errorf("invoices: business %w", shared.ErrNotFound)
	ErrInvalidType      = fmt.Errorf("invoices: invalid type: %w", shared.ErrValidation)
	ErrInvalidDate      = fmt.Errorf("invoices: invoice date required: %w", shared.ErrValidation)
	ErrNegativeAmount   = fmt.Errorf("invoices: amounts cannot be negative: %w", shared.ErrValidation)
	ErrNoChanges        = fmt.Errorf("invoices: no financial fields supplied: %w", shared.ErrValidation)
)

// Invoice is a stored sales invoice.
type Invoice struct {
	ID             uuid.UUID           `json:"id"`
	Number         string              `json:"invoice_number"`
	Type           Type                `json:"invoice_type"`
	IssuedOn       time.Time           `json:"invoice_date"`
	BusinessID     *uuid.UUID          `json:"business_id,omitempty"`
	CustomerName   string              `json:"customer_name"`
	Currency       string              `json:"currency"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	TaxTotal       decimal.Decimal     `json:"tax_total"`
	GrandTotal     decimal.Decimal     `json:"grand_total"`
	RoundedAmount  decimal.NullDecimal `json:"rounded_amount"`
	TotalPaid      decimal.Decimal     `json:"total_paid"`
	Balance        decimal.NullDecimal `json:"balance_amount"`
	Paid           bool                `json:"paid"`
	PartialPayment bool                `json:"partial_payment"`
	PaidOn         *time.Time          `json:"paid_on,omitempty"`
	Items          []Item              `json:"items,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Item is one invoice line.
type Item struct {
	Description string          `json:"description"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// LedgerAmount is the debit the invoice contributes to a ledger: the rounded
// amount, or the grand total when no rounded amount was stored.
func (inv Invoice) LedgerAmount() decimal.Decimal {
	if inv.RoundedAmount.Valid {
		return inv.RoundedAmount.Decimal
	}
	return inv.GrandTotal
}

// PayableAmount is the amount payments settle against: the rounded amount, or
// the grand total rounded to a whole unit.
func (inv Invoice) PayableAmount() decimal.Decimal {
	if inv.RoundedAmount.Valid {
		return inv.RoundedAmount.Decimal
	}
	return inv.GrandTotal.Round(0)
}

// OutstandingBalance returns the stored balance, falling back to the derived one
// when none has been stored yet.
func (inv Invoice) OutstandingBalance() decimal.Decimal {
	if inv.Balance.Valid {
		return inv.Balance.Decimal
	}
	return DeriveBalance(inv.PayableAmount(), inv.TotalPaid)
}

// DeriveBalance returns max(0, rounded - paid).
func DeriveBalance(rounded, paid decimal.Decimal) decimal.Decimal {
	balance := rounded.Sub(paid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// applyTotals recomputes the derived payment fields from rounded and paid.
func (inv *Invoice) applyTotals(rounded, paid decimal.Decimal, now time.Time) {
	balance := DeriveBalance(rounded, paid)
	wasPaid := inv.Paid
	inv.RoundedAmount = decimal.NewNullDecimal(rounded)
	inv.TotalPaid = paid
	inv.Balance = decimal.NewNullDecimal(balance)
	inv.Paid = balance.IsZero()
	inv.PartialPayment = paid.IsPositive() && paid.LessThan(rounded)
	switch {
	case inv.Paid && !wasPaid && paid.IsPositive():
		paidOn := now
		inv.PaidOn = &paidOn
	case !inv.Paid:
		inv.PaidOn = nil
	}
}

// CreateInput carries the fields accepted when raising an invoice.
type CreateInput struct {
	Type         Type
	IssuedOn     time.Time
	BusinessID   *uuid.UUID
	CustomerName string
	Currency     string
	Subtotal     decimal.Decimal
	TaxTotal     decimal.Decimal
	GrandTotal   decimal.Decimal
	TotalPaid    decimal.Decimal
	Items        []Item
}

// Validate checks the create input.
func (in CreateInput) Validate() error {
	if _, err := ParseType(string(in.Type)); err != nil {
		return err
	}
	if in.IssuedOn.IsZero() {
		return ErrInvalidDate
	}
	for name, amount := range map[string]decimal.Decimal{
		"subtotal":    in.Subtotal,
		"tax total":   in.TaxTotal,
		"grand total": in.GrandTotal,
		"total paid":  in.TotalPaid,
	} {
		if amount.IsNegative() {
			return fmt.Errorf("%s: %w", name, ErrNegativeAmount)
		}
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("item %d: description required: %w", i+1, shared.ErrValidation)
		}
		if !item.Quantity.IsPositive() {
			return fmt.Errorf("item %d: quantity must be positive: %w", i+1, shared.ErrValidation)
		}
		if item.Rate.IsNegative() || item.Amount.IsNegative() || item.TaxRate.IsNegative() {
			return fmt.Errorf("item %d: %w", i+1, ErrNegativeAmount)
		}
	}
	return nil
}

// UpdateFinancialsInput edits the financial fields of an invoice. Nil fields are
// left unchanged; a new grand total re-derives the rounded amount unless one is
// supplied explicitly.
type UpdateFinancialsInput struct {
	GrandTotal    *decimal.Decimal
	RoundedAmount *decimal.Decimal
	TotalPaid     *decimal.Decimal
}

// Validate checks the update input.
func (in UpdateFinancialsInput) Validate() error {
	if in.GrandTotal == nil && in.RoundedAmount == nil && in.TotalPaid == nil {
		return ErrNoChanges
	}
	for _, amount := range []*decimal.Decimal{in.GrandTotal, in.RoundedAmount, in.TotalPaid} {
		if amount != nil && amount.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	BusinessID *uuid.UUID
	Type       Type
	UnpaidOnly bool
	Limit      int
}

// Anomaly describes an invoice whose stored payment fields disagree with its totals.
type Anomaly struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Number    string          `json:"invoice_number"`
	Stored    decimal.Decimal `json:"stored_balance"`
	Expected  decimal.Decimal `json:"expected_balance"`
	Reason    string          `json:"reason"`
}

// CheckBalance returns the anomaly for inv, if any. Invoices without a stored
// balance are consistent by construction.
func CheckBalance(inv Invoice) (Anomaly, bool) {
	if !inv.Balance.Valid {
		return Anomaly{}, false
	}
	expected := DeriveBalance(inv.PayableAmount(), inv.TotalPaid)
	stored := inv.Balance.Decimal
	anomaly := Anomaly{InvoiceID: inv.ID, Number: inv.Number, Stored: stored, Expected: expected}
	switch {
	case stored.IsNegative():
		anomaly.Reason = "negative balance"
	case !stored.Equal(expected):
		anomaly.Reason = "balance does not match rounded amount minus total paid"
	case inv.Paid != stored.IsZero():
		anomaly.Reason = "paid flag disagrees with balance"
	default:
		return Anomaly{}, false
	}
	return anomaly, true
}
