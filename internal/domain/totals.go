package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Totals are signed aggregates over top-level transactions, formatted with two decimals.
type Totals struct {
	Total   string `json:"total"`
	Pending string `json:"pending"`
}

// ComputeTotals sums top-level transactions locally: income adds, expense and
// invoice subtract. Pending only counts entries whose status is "pending".
// Amounts that do not parse as decimals are skipped.
//
// The remote ledger reports its own totals on every fetch; the two are not
// reconciled against each other.
func ComputeTotals(txs []*Transaction) Totals {
	total := decimal.Zero
	pending := decimal.Zero

	for _, tx := range txs {
		if !tx.IsTopLevel() {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(tx.Amount))
		if err != nil {
			continue
		}
		if tx.Kind != KindIncome {
			amount = amount.Neg()
		}
		total = total.Add(amount)
		if strings.EqualFold(tx.Status, "pending") {
			pending = pending.Add(amount)
		}
	}

	return Totals{
		Total:   total.StringFixed(2),
		Pending: pending.StringFixed(2),
	}
}
