// Package calculator derives aggregates from a transaction list.
//
// Every function is pure: the same list always yields the same result.
// Amounts are summed as decimals and rounded to cents so binary-float noise
// never reaches a displayed total.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/fintrack/internal/models"
)

// Money converts a stored amount to a decimal rounded to cents.
func Money(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

// Totals sums income and expense amounts separately.
func Totals(txs []models.Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case models.KindIncome:
			income = income.Add(Money(t.Amount))
		case models.KindExpense:
			expense = expense.Add(Money(t.Amount))
		}
	}
	return income, expense
}

// Balance is total income minus total expense.
func Balance(txs []models.Transaction) decimal.Decimal {
	income, expense := Totals(txs)
	return income.Sub(expense)
}

// BalancePoint is the running balance after every transaction on or before Date.
type BalancePoint struct {
	Date    string
	Balance decimal.Decimal
}

// BalanceTimeline returns one point per date with activity, in ascending
// date order. Entries with unparsable dates are skipped.
func BalanceTimeline(txs []models.Transaction) []BalancePoint {
	deltas := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if _, err := models.ParseDate(t.Date); err != nil {
			continue
		}
		d, ok := deltas[t.Date]
		if !ok {
			d = decimal.Zero
		}
		switch t.Type {
		case models.KindIncome:
			deltas[t.Date] = d.Add(Money(t.Amount))
		case models.KindExpense:
			deltas[t.Date] = d.Sub(Money(t.Amount))
		}
	}

	dates := sortedKeys(deltas)
	points := make([]BalancePoint, 0, len(dates))
	running := decimal.Zero
	for _, date := range dates {
		running = running.Add(deltas[date])
		points = append(points, BalancePoint{Date: date, Balance: running})
	}
	return points
}
