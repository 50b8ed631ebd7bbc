package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary aggregates a transaction list for the dashboard home page.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// Balance is income minus expenses.
func (s Summary) Balance() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}

// Summarize totals the transactions by type. Unknown types are counted but
// not summed.
func Summarize(txns []Transaction) Summary {
	sum := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txns {
		sum.Count++
		switch t.Type {
		case Income:
			sum.Income = sum.Income.Add(t.Amount)
		case Expense:
			sum.Expense = sum.Expense.Add(t.Amount)
		}
	}
	return sum
}

// SortNewestFirst returns a copy of txns ordered by descending identifier.
// Creation timestamps are ignored: the backend assigns ids in order.
func SortNewestFirst(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].ID > out[b].ID
	})
	return out
}
