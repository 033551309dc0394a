package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CardTransaction is one deduplicated statement line ready for export or storage.
type CardTransaction struct {
	Date          civil.Date
	Establishment string
	// Value is the Brazilian display form of Amount, e.g. "1.234,56".
	Value  string
	Amount decimal.Decimal

	Card string // last four digits when known
	Pass int    // extraction pass that produced the surviving row
	Page int    // 0 for synthetic rows such as IOF repasse
}

// DateString renders Date as DD/MM/YYYY.
func (t CardTransaction) DateString() string {
	return FormatDate(t.Date)
}

// FormatDate renders d as DD/MM/YYYY.
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// SumAmounts totals the amounts of txs.
func SumAmounts(txs []CardTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
