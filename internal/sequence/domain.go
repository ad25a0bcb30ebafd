// Package sequence issues the human-readable numbers carried by invoices,
// payment credits and expense vouchers. Every sequence restarts at 1 on
// April 1 of each financial year.
package sequence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Kind groups sequences that share a number format.
type Kind string

// Supported sequence kinds.
const (
	KindInvoice       Kind = "invoice"
	KindPaymentCredit Kind = "payment-credit"
	KindVoucher       Kind = "voucher"
)

var (
	// ErrInvalidScope indicates an unknown kind or invoice type.
	ErrInvalidScope = fmt.Errorf("sequence: invalid scope: %w", shared.ErrValidation)
	// ErrInvalidDate indicates a missing reference date.
	ErrInvalidDate = fmt.Errorf("sequence: reference date required: %w", shared.ErrValidation)
)

// invoicePrefixes maps invoice types onto the prefix printed in the number.
var invoicePrefixes = map[string]string{
	"B2B":    "B2B",
	"B2C":    "B2C",
	"EXPORT": "EXP",
}

// Scope partitions a sequence. Invoice scopes are further split by invoice type.
type Scope struct {
	Kind        Kind
	InvoiceType string
}

// InvoiceScope returns the scope for invoices of the given type.
func InvoiceScope(invoiceType string) Scope {
	return Scope{Kind: KindInvoice, InvoiceType: strings.ToUpper(strings.TrimSpace(invoiceType))}
}

// PaymentCreditScope returns the scope shared by all payment credits.
func PaymentCreditScope() Scope { return Scope{Kind: KindPaymentCredit} }

// VoucherScope returns the scope shared by all expense vouchers.
func VoucherScope() Scope { return Scope{Kind: KindVoucher} }

// Validate reports whether the scope is one the allocator can issue numbers for.
func (s Scope) Validate() error {
	switch s.Kind {
	case KindInvoice:
		if _, ok := invoicePrefixes[s.InvoiceType]; !ok {
			return fmt.Errorf("invoice type %q: %w", s.InvoiceType, ErrInvalidScope)
		}
		return nil
	case KindPaymentCredit, KindVoucher:
		if s.InvoiceType != "" {
			return fmt.Errorf("%s scope takes no invoice type: %w", s.Kind, ErrInvalidScope)
		}
		return nil
	default:
		return fmt.Errorf("kind %q: %w", s.Kind, ErrInvalidScope)
	}
}

// Key is the stable identifier of the scope in the counter table.
func (s Scope) Key() string {
	if s.Kind == KindInvoice {
		return string(s.Kind) + ":" + s.InvoiceType
	}
	return string(s.Kind)
}

// Number is an issued (or previewed) position in a scoped sequence.
type Number struct {
	Scope Scope
	Year  shared.FinancialYear
	Seq   int64
}

// String renders the number in the format printed on documents.
//
//	invoice         B2B/2024-25/7, EXP/2024-25/3
//	voucher         2024257
//	payment credit  7
func (n Number) String() string {
	switch n.Scope.Kind {
	case KindInvoice:
		return fmt.Sprintf("%s/%s/%d", invoicePrefixes[n.Scope.InvoiceType], n.Year.Label(), n.Seq)
	case KindVoucher:
		return n.Year.Compact() + strconv.FormatInt(n.Seq, 10)
	default:
		return strconv.FormatInt(n.Seq, 10)
	}
}

// InvoiceToken is the fragment every invoice number of fy contains, e.g. "/2024-25/".
func InvoiceToken(fy shared.FinancialYear) string {
	return "/" + fy.Label() + "/"
}

// ParseInvoiceSeq extracts the trailing sequence of an invoice number issued in fy.
func ParseInvoiceSeq(number string, fy shared.FinancialYear) (int64, bool) {
	token := InvoiceToken(fy)
	idx := strings.LastIndex(number, token)
	if idx < 0 {
		return 0, false
	}
	seq, err := strconv.ParseInt(number[idx+len(token):], 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}

// ParseVoucherSeq extracts the sequence after the compact year prefix of a voucher number.
func ParseVoucherSeq(number string, fy shared.FinancialYear) (int64, bool) {
	prefix := fy.Compact()
	if !strings.HasPrefix(number, prefix) || len(number) == len(prefix) {
		return 0, false
	}
	seq, err := strconv.ParseInt(number[len(prefix):], 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
