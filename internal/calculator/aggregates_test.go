package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fintrack/internal/models"
)

func tx(id, date string, kind models.Kind, amount float64, category string) models.Transaction {
	return models.Transaction{ID: id, UserID: "u1", Date: date, Type: kind, Amount: amount, Category: category}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalsAndBalance(t *testing.T) {
	txs := []models.Transaction{
		tx("t1", "2024-06-02", models.KindIncome, 100, "Salary"),
		tx("t2", "2024-06-01", models.KindExpense, 20, "Food"),
		tx("t3", "2024-06-01", models.KindExpense, 0.1, "Food"),
		tx("t4", "2024-06-01", models.KindExpense, 0.2, "Food"),
	}

	income, expense := Totals(txs)
	if !income.Equal(dec("100")) {
		t.Errorf("income = %s, want 100", income)
	}
	// 20 + 0.1 + 0.2 must be exactly 20.3, not 20.300000000000001.
	if !expense.Equal(dec("20.3")) {
		t.Errorf("expense = %s, want 20.3", expense)
	}
	if got := Balance(txs); !got.Equal(dec("79.7")) {
		t.Errorf("balance = %s, want 79.7", got)
	}
}

func TestByCategory(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-06-01", models.KindExpense, 10, "Food"),
		tx("2", "2024-06-02", models.KindExpense, 50, "Rent"),
		tx("3", "2024-06-03", models.KindExpense, 15, "Food"),
		tx("4", "2024-06-03", models.KindExpense, 25, "Health"),
		tx("5", "2024-06-03", models.KindIncome, 999, "Salary"),
	}

	got := ByCategory(txs, models.KindExpense)
	want := []CategoryTotal{
		{"Rent", dec("50")},
		{"Food", dec("25")},
		{"Health", dec("25")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Category != want[i].Category || !got[i].Amount.Equal(want[i].Amount) {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestByMonthFillsGaps(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-03-15", models.KindExpense, 40, "Food"),
		tx("2", "2024-01-05", models.KindIncome, 1000, "Salary"),
		tx("3", "2024-01-20", models.KindExpense, 60, "Rent"),
	}

	got := ByMonth(txs)
	if len(got) != 3 {
		t.Fatalf("expected 3 months, got %d: %+v", len(got), got)
	}

	checks := []struct {
		month           string
		income, expense string
	}{
		{"2024-01", "1000", "60"},
		{"2024-02", "0", "0"},
		{"2024-03", "0", "40"},
	}
	for i, c := range checks {
		if got[i].Month != c.month {
			t.Errorf("month %d = %s, want %s", i, got[i].Month, c.month)
		}
		if !got[i].Income.Equal(dec(c.income)) || !got[i].Expense.Equal(dec(c.expense)) {
			t.Errorf("%s = income %s expense %s, want %s/%s", c.month, got[i].Income, got[i].Expense, c.income, c.expense)
		}
	}
}

func TestByMonthAcrossYearBoundary(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2023-11-30", models.KindExpense, 1, "Food"),
		tx("2", "2024-01-01", models.KindExpense, 1, "Food"),
	}

	got := ByMonth(txs)
	months := []string{"2023-11", "2023-12", "2024-01"}
	if len(got) != len(months) {
		t.Fatalf("got %+v", got)
	}
	for i, m := range months {
		if got[i].Month != m {
			t.Errorf("month %d = %s, want %s", i, got[i].Month, m)
		}
	}
}

func TestByMonthEmpty(t *testing.T) {
	if got := ByMonth(nil); len(got) != 0 {
		t.Errorf("expected no months, got %+v", got)
	}
}

func TestBalanceTimeline(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-06-03", models.KindExpense, 30, "Food"),
		tx("2", "2024-06-01", models.KindIncome, 100, "Salary"),
		tx("3", "2024-06-01", models.KindExpense, 20, "Rent"),
		tx("4", "not-a-date", models.KindIncome, 5, "Other"),
	}

	got := BalanceTimeline(txs)
	want := []BalancePoint{
		{"2024-06-01", dec("80")},
		{"2024-06-03", dec("50")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i].Date != want[i].Date || !got[i].Balance.Equal(want[i].Balance) {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSummarizeBalanceInvariant(t *testing.T) {
	txs := []models.Transaction{
		tx("t1", "2024-06-02", models.KindIncome, 100, "Salary"),
		tx("t2", "2024-06-01", models.KindExpense, 20, "Food"),
		tx("t3", "2024-05-30", models.KindExpense, 12.5, "Food"),
	}

	agg := Summarize(txs)
	if !agg.Balance.Equal(agg.TotalIncome.Sub(agg.TotalExpense)) {
		t.Errorf("balance %s != income %s - expense %s", agg.Balance, agg.TotalIncome, agg.TotalExpense)
	}
	if !agg.Balance.Equal(dec("67.5")) {
		t.Errorf("balance = %s, want 67.5", agg.Balance)
	}
	last := agg.BalanceTimeline[len(agg.BalanceTimeline)-1]
	if !last.Balance.Equal(agg.Balance) {
		t.Errorf("timeline ends at %s, want %s", last.Balance, agg.Balance)
	}
}
