package calculator

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fintrack/internal/models"
)

// Aggregates are the derived values shown on the dashboard and analytics views.
type Aggregates struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal

	IncomeByCategory  []CategoryTotal
	ExpenseByCategory []CategoryTotal
	ByMonth           []MonthTotal
	BalanceTimeline   []BalancePoint
}

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// MonthTotal is the income and expense of one calendar month (YYYY-MM).
type MonthTotal struct {
	Month   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Summarize computes every aggregate for txs.
func Summarize(txs []models.Transaction) Aggregates {
	income, expense := Totals(txs)
	return Aggregates{
		TotalIncome:       income,
		TotalExpense:      expense,
		Balance:           income.Sub(expense),
		IncomeByCategory:  ByCategory(txs, models.KindIncome),
		ExpenseByCategory: ByCategory(txs, models.KindExpense),
		ByMonth:           ByMonth(txs),
		BalanceTimeline:   BalanceTimeline(txs),
	}
}

// ByCategory sums amounts per category among entries of the given kind,
// ordered by descending sum. Ties are broken by category name.
func ByCategory(txs []models.Transaction, kind models.Kind) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != kind {
			continue
		}
		s, ok := sums[t.Category]
		if !ok {
			s = decimal.Zero
		}
		sums[t.Category] = s.Add(Money(t.Amount))
	}

	totals := make([]CategoryTotal, 0, len(sums))
	for category, amount := range sums {
		totals = append(totals, CategoryTotal{Category: category, Amount: amount})
	}
	slices.SortFunc(totals, func(a, b CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return totals
}

// ByMonth returns one entry per calendar month from the earliest entry's
// month to the latest, ascending. Months without activity carry zeros.
func ByMonth(txs []models.Transaction) []MonthTotal {
	type pair struct{ income, expense decimal.Decimal }
	months := make(map[string]*pair)
	var first, last time.Time

	for _, t := range txs {
		date, err := models.ParseDate(t.Date)
		if err != nil {
			continue
		}
		month := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		if first.IsZero() || month.Before(first) {
			first = month
		}
		if last.IsZero() || month.After(last) {
			last = month
		}

		key := month.Format(monthLayout)
		p, ok := months[key]
		if !ok {
			p = &pair{income: decimal.Zero, expense: decimal.Zero}
			months[key] = p
		}
		switch t.Type {
		case models.KindIncome:
			p.income = p.income.Add(Money(t.Amount))
		case models.KindExpense:
			p.expense = p.expense.Add(Money(t.Amount))
		}
	}

	if first.IsZero() {
		return nil
	}

	var out []MonthTotal
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		key := m.Format(monthLayout)
		mt := MonthTotal{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
		if p, ok := months[key]; ok {
			mt.Income, mt.Expense = p.income, p.expense
		}
		out = append(out, mt)
	}
	return out
}

const monthLayout = "2006-01"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
