package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizledger/internal/ledger"
)

// CSVHeader is the first row of every ledger export.
var CSVHeader = []string{"Sr No.", "Date", "Particulars", "Vch Type", "Vch No", "Debit (₹)", "Credit (₹)", "Balance (₹)"}

// WriteLedgerCSV serialises a statement with opening, closing and total rows.
func WriteLedgerCSV(w io.Writer, stmt ledger.Statement) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	opening := Plain(stmt.OpeningBalance)
	closing := Plain(stmt.ClosingBalance)
	records := [][]string{
		CSVHeader,
		{"Opening Balance", "", "", "", "", "", opening, opening},
	}
	for _, entry := range stmt.Entries {
		records = append(records, []string{
			strconv.Itoa(entry.Serial),
			entry.Date.Format(DateLayout),
			entry.Particulars,
			entry.VoucherType,
			entry.VoucherNumber,
			plainNonZero(entry.Debit),
			plainNonZero(entry.Credit),
			Plain(entry.Balance),
		})
	}
	records = append(records,
		[]string{"Closing Balance", "", "", "", "", "", closing, closing},
		[]string{"Total", "", "", "", "", Plain(stmt.TotalDebit), Plain(stmt.TotalCredit), closing},
	)
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func plainNonZero(d decimal.Decimal) string {
	if !d.IsPositive() {
		return ""
	}
	return Plain(d)
}
