// Package ledger builds point-in-time ledger statements for a business:
// invoices as debits, payment credits as credits, and a running balance
// seeded by the opening balance derived from everything before the range.
package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/shared"
)

// Voucher labels printed on statements.
const (
	DebitParticulars   = "(sale @gst)"
	VoucherTypeSale    = "sale"
	VoucherTypeReceipt = "Payment Received"
)

var (
	ErrBusinessNotFound = fmt.Errorf("ledger: business %w", shared.ErrNotFound)
	ErrInvalidRange     = fmt.Errorf("ledger: end date before start date: %w", shared.ErrValidation)
	ErrMissingDates     = fmt.Errorf("ledger: start and end dates required: %w", shared.ErrValidation)
	ErrMissingBusiness  = fmt.Errorf("ledger: business required: %w", shared.ErrValidation)
)

// Party is the business snapshot printed on the statement.
type Party struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	GSTNumber string    `json:"gst_number"`
}

// Entry is one statement line.
type Entry struct {
	Serial        int             `json:"sr_no"`
	Date          time.Time       `json:"date"`
	Particulars   string          `json:"particulars"`
	VoucherType   string          `json:"vch_type"`
	VoucherNumber string          `json:"vch_no"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
}

// Statement is a ledger for one business over [Start, End].
type Statement struct {
	Business       Party           `json:"business"`
	Start          time.Time       `json:"start_date"`
	End            time.Time       `json:"end_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Entries        []Entry         `json:"entries"`
}

// InvoiceRow is an invoice as the ledger sees it.
type InvoiceRow struct {
	Date          time.Time
	Number        string
	GrandTotal    decimal.Decimal
	RoundedAmount decimal.NullDecimal
}

// Amount is the rounded amount, or the grand total when none was stored.
func (r InvoiceRow) Amount() decimal.Decimal {
	if r.RoundedAmount.Valid {
		return r.RoundedAmount.Decimal
	}
	return r.GrandTotal
}

// invoiceBefore orders same-day invoices by series prefix, then by the numeric
// sequence after the last slash, so /9 precedes /10.
func invoiceBefore(a, b InvoiceRow) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	ap, as, aok := splitNumber(a.Number)
	bp, bs, bok := splitNumber(b.Number)
	if aok && bok && ap == bp && as != bs {
		return as < bs
	}
	return a.Number < b.Number
}

func splitNumber(number string) (string, int64, bool) {
	i := strings.LastIndexByte(number, '/')
	seq, err := strconv.ParseInt(number[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return number[:i+1], seq, true
}

// CreditRow is a payment credit with its receiving bank account.
type CreditRow struct {
	Date          time.Time
	Number        int64
	Amount        decimal.Decimal
	BankName      string
	AccountNumber string
}

// Particulars renders "payment @<bank> @<last five of account>".
func (r CreditRow) Particulars() string {
	tail := masterdata.BankAccount{AccountNumber: r.AccountNumber}.Tail()
	return fmt.Sprintf("payment @%s @%s", r.BankName, tail)
}

// Sources is everything read from the store for one statement, taken from a
// single snapshot.
type Sources struct {
	Business       masterdata.Business
	InvoicedBefore decimal.Decimal
	CreditedBefore decimal.Decimal
	Invoices       []InvoiceRow
	Credits        []CreditRow
}

type event struct {
	date        time.Time
	debit       bool
	amount      decimal.Decimal
	particulars string
	voucherType string
	voucherNo   string
}

// Compose turns source rows into a statement. Invoices are ordered by date and
// sequence, credits are expected in (date, number) order, and debits precede
// credits on the same date. Entry dates
// are expressed in loc so renderers print the business calendar day.
func Compose(src Sources, start, end time.Time, loc *time.Location) Statement {
	if loc == nil {
		loc = time.UTC
	}
	stmt := Statement{
		Business: Party{
			ID:        src.Business.ID,
			Name:      src.Business.Name,
			Address:   src.Business.FullAddress(),
			GSTNumber: src.Business.GSTNumber,
		},
		Start:          start.In(loc),
		End:            end.In(loc),
		OpeningBalance: src.InvoicedBefore.Sub(src.CreditedBefore),
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		Entries:        make([]Entry, 0, len(src.Invoices)+len(src.Credits)),
	}

	ordered := append([]InvoiceRow(nil), src.Invoices...)
	sort.SliceStable(ordered, func(i, j int) bool { return invoiceBefore(ordered[i], ordered[j]) })

	events := make([]event, 0, len(src.Invoices)+len(src.Credits))
	for _, inv := range ordered {
		events = append(events, event{
			date:        inv.Date.In(loc),
			debit:       true,
			amount:      inv.Amount(),
			particulars: DebitParticulars,
			voucherType: VoucherTypeSale,
			voucherNo:   inv.Number,
		})
	}
	for _, c := range src.Credits {
		events = append(events, event{
			date:        c.Date.In(loc),
			amount:      c.Amount,
			particulars: c.Particulars(),
			voucherType: VoucherTypeReceipt,
			voucherNo:   strconv.FormatInt(c.Number, 10),
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].date.Before(events[j].date) })

	running := stmt.OpeningBalance
	for i, ev := range events {
		entry := Entry{
			Serial:        i + 1,
			Date:          ev.date,
			Particulars:   ev.particulars,
			VoucherType:   ev.voucherType,
			VoucherNumber: ev.voucherNo,
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
		}
		if ev.debit {
			running = running.Add(ev.amount)
			entry.Debit = ev.amount
			stmt.TotalDebit = stmt.TotalDebit.Add(ev.amount)
		} else {
			running = running.Sub(ev.amount)
			entry.Credit = ev.amount
			stmt.TotalCredit = stmt.TotalCredit.Add(ev.amount)
		}
		entry.Balance = running
		stmt.Entries = append(stmt.Entries, entry)
	}
	stmt.ClosingBalance = running
	return stmt
}
