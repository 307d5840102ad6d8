package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Balances holds the per money-type balances of a single currency.
type Balances struct {
	Currency string
	Cash     decimal.Decimal
	Bank     decimal.Decimal
}

// Total is cash plus bank. Currencies are never summed together.
func (b Balances) Total() decimal.Decimal {
	return b.Cash.Add(b.Bank)
}

// Summary is the full report for a group: balances and category breakdown per currency.
type Summary struct {
	GroupID    int64
	Balances   []Balances
	ByCategory map[string][]CategoryAmount
}

// ExpenseSlices returns the expense categories of a breakdown as positive
// amounts, the input of a pie chart.
func ExpenseSlices(in []CategoryAmount) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(in))
	for _, c := range in {
		if c.Amount.IsNegative() {
			out = append(out, CategoryAmount{Name: c.Name, Amount: c.Amount.Abs()})
		}
	}
	return out
}
