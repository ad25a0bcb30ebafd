package export

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var displayPrinter = message.NewPrinter(language.MustParse("en-IN"))

// DateLayout is the dd/mm/yyyy form used on printed statements.
const DateLayout = "02/01/2006"

// Plain renders two decimals without grouping.
func Plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Display renders two decimals with en-IN digit grouping for screen and PDF.
// Digits come from the same StringFixed(2) text the CSV uses; only the
// integer part passes through the locale printer.
func Display(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	grouped := whole
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		grouped = displayPrinter.Sprintf("%d", n)
	}
	sign := ""
	if d.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + grouped + "." + frac
}

// DisplayNonZero is Display for positive amounts and empty otherwise.
func DisplayNonZero(d decimal.Decimal) string {
	if !d.IsPositive() {
		return ""
	}
	return Display(d)
}
