package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ids(txns []Transaction) []int64 {
	out := make([]int64, len(txns))
	for i, t := range txns {
		out[i] = t.ID
	}
	return out
}

func TestSortNewestFirstByID(t *testing.T) {
	in := []Transaction{{ID: 1}, {ID: 3}, {ID: 2}}
	got := SortNewestFirst(in)
	assert.Equal(t, []int64{3, 2, 1}, ids(got))
	assert.Equal(t, []int64{1, 3, 2}, ids(in), "input must not be reordered")
}

func TestSortNewestFirstIgnoresCreatedAt(t *testing.T) {
	in := []Transaction{
		{ID: 1, CreatedAt: "2025-01-03T00:00:00Z"},
		{ID: 3, CreatedAt: "2025-01-01T00:00:00Z"},
		{ID: 2, CreatedAt: "2025-01-02T00:00:00Z"},
	}
	assert.Equal(t, []int64{3, 2, 1}, ids(SortNewestFirst(in)))
}

func TestSortNewestFirstEmpty(t *testing.T) {
	assert.Empty(t, SortNewestFirst(nil))
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]Transaction{
		{Type: Income, Amount: decimal.NewFromInt(100)},
		{Type: Expense, Amount: decimal.RequireFromString("30.5")},
		{Type: Expense, Amount: decimal.NewFromInt(10)},
	})
	assert.Equal(t, 3, sum.Count)
	assert.True(t, sum.Income.Equal(decimal.NewFromInt(100)))
	assert.True(t, sum.Expense.Equal(decimal.RequireFromString("40.5")))
	assert.True(t, sum.Balance().Equal(decimal.RequireFromString("59.5")))
}
