package view

import (
	"fmt"
	"testing"

	"github.com/mmynk/fintrack/internal/calculator"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/session"
)

var signedIn = session.Snapshot{
	Status:    session.StatusSignedIn,
	Principal: &models.Principal{ID: "u1", Email: "ada@x.io", DisplayName: "Ada"},
	Profile:   &models.UserProfile{Email: "ada@x.io", FullName: "Ada", CreatedAt: "2024-03-05T10:00:00Z"},
}

func stateOf(txs ...models.Transaction) State {
	return State{Session: signedIn, List: txs, Aggregates: calculator.Summarize(txs), Today: "2024-06-10"}
}

func tx(id, date string, kind models.Kind, amount float64, category, desc string) models.Transaction {
	return models.Transaction{ID: id, UserID: "u1", Date: date, Type: kind, Amount: amount, Category: category, Description: desc}
}

func TestAmountLabel(t *testing.T) {
	tests := []struct {
		tx   models.Transaction
		want string
	}{
		{tx("1", "2024-06-01", models.KindIncome, 100, "Salary", ""), "+$100.00"},
		{tx("2", "2024-06-01", models.KindExpense, 12.5, "Food", ""), "-$12.50"},
		{tx("3", "2024-06-01", models.KindExpense, 0.1, "Food", ""), "-$0.10"},
	}
	for _, tt := range tests {
		if got := AmountLabel(tt.tx); got != tt.want {
			t.Errorf("AmountLabel(%v) = %q, want %q", tt.tx.Amount, got, tt.want)
		}
	}
}

func TestRenderRequiresSignIn(t *testing.T) {
	for _, status := range []session.Status{session.StatusUnknown, session.StatusSignedOut, session.StatusAuthenticating, session.StatusRegistering} {
		v := Render(NavAnalytics, State{Session: session.Snapshot{Status: status}})
		if v.Route != RouteSignIn || v.Body != nil || v.SignedIn() {
			t.Errorf("%s: expected sign-in route, got %+v", status, v)
		}
	}
}

func TestRenderDashboard(t *testing.T) {
	var txs []models.Transaction
	for i := 9; i >= 1; i-- {
		txs = append(txs, tx(fmt.Sprint(i), fmt.Sprintf("2024-06-%02d", i), models.KindExpense, 1, "Food", ""))
	}
	txs = append(txs, tx("s", "2024-05-01", models.KindIncome, 100, "Salary", ""))

	v := Render(NavDashboard, stateOf(txs...))
	d, ok := v.Body.(Dashboard)
	if !ok {
		t.Fatalf("expected dashboard body, got %T", v.Body)
	}
	if len(d.Recent) != RecentCount || d.Recent[0].ID != "9" || d.Recent[4].ID != "5" {
		t.Errorf("unexpected recent rows: %+v", d.Recent)
	}
	if v.Totals.Income != "$100.00" || v.Totals.Expense != "$9.00" || v.Totals.Balance != "$91.00" {
		t.Errorf("unexpected totals: %+v", v.Totals)
	}
	if len(d.Timeline) != 10 || d.Timeline[len(d.Timeline)-1].Balance != 91 {
		t.Errorf("unexpected timeline: %+v", d.Timeline)
	}
	if v.Form.Kind != models.KindExpense || v.Form.Category != "Groceries" || v.Form.Date != "2024-06-10" {
		t.Errorf("unexpected form defaults: %+v", v.Form)
	}
}

func TestRenderNegativeBalance(t *testing.T) {
	v := Render(NavDashboard, stateOf(tx("t2", "2024-06-01", models.KindExpense, 20, "Rent", "")))
	if v.Totals.Balance != "-$20.00" {
		t.Errorf("balance = %q, want -$20.00", v.Totals.Balance)
	}
}

func TestRenderTransactionsFilters(t *testing.T) {
	st := stateOf(
		tx("1", "2024-06-03", models.KindExpense, 10, "Food", "Lunch with Bob"),
		tx("2", "2024-06-02", models.KindExpense, 50, "Rent", "June"),
		tx("3", "2024-06-01", models.KindIncome, 900, "Salary", "june payroll"),
		tx("4", "2024-06-01", models.KindExpense, 5, "Food", "coffee"),
	)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"1", "2", "3", "4"}},
		{"query matches description case-insensitively", Filter{Query: "JUNE"}, []string{"2", "3"}},
		{"query matches category", Filter{Query: "foo"}, []string{"1", "4"}},
		{"kind", Filter{Kind: models.KindIncome}, []string{"3"}},
		{"category", Filter{Category: "Rent"}, []string{"2"}},
		{"conjunction", Filter{Query: "june", Kind: models.KindExpense}, []string{"2"}},
		{"nothing", Filter{Query: "june", Category: "Food"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st.Filter = tt.filter
			body := Render(NavTransactions, st).Body.(Transactions)
			if len(body.Rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %v", len(body.Rows), tt.want)
			}
			for i, id := range tt.want {
				if body.Rows[i].ID != id {
					t.Errorf("row %d = %s, want %s", i, body.Rows[i].ID, id)
				}
			}
			if body.Total != 4 {
				t.Errorf("total = %d, want 4", body.Total)
			}
		})
	}

	body := Render(NavTransactions, stateOf(st.List...)).Body.(Transactions)
	want := []string{"Food", "Rent", "Salary"}
	if fmt.Sprint(body.Categories) != fmt.Sprint(want) {
		t.Errorf("categories = %v, want %v", body.Categories, want)
	}
}

func TestRenderCategoriesAndAnalytics(t *testing.T) {
	st := stateOf(
		tx("1", "2024-05-03", models.KindExpense, 10, "Food", ""),
		tx("2", "2024-06-02", models.KindExpense, 50, "Rent", ""),
		tx("3", "2024-06-01", models.KindIncome, 900, "Salary", ""),
	)

	cats := Render(NavCategories, st).Body.(Categories)
	if len(cats.Expense) != 2 || cats.Expense[0] != (Slice{Name: "Rent", Value: 50}) {
		t.Errorf("unexpected expense slices: %+v", cats.Expense)
	}
	if len(cats.Income) != 1 || cats.Income[0] != (Slice{Name: "Salary", Value: 900}) {
		t.Errorf("unexpected income slices: %+v", cats.Income)
	}

	an := Render(NavAnalytics, st).Body.(Analytics)
	want := []MonthPoint{{"2024-05", 0, 10}, {"2024-06", 900, 50}}
	if len(an.ByMonth) != len(want) {
		t.Fatalf("byMonth = %+v", an.ByMonth)
	}
	for i := range want {
		if an.ByMonth[i] != want[i] {
			t.Errorf("month %d = %+v, want %+v", i, an.ByMonth[i], want[i])
		}
	}
}

func TestRenderSettings(t *testing.T) {
	s := Render(NavSettings, stateOf()).Body.(Settings)
	if s.FullName != "Ada" || s.Email != "ada@x.io" || s.MemberSince != "March 5, 2024" {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.ChangePassword || s.DeleteAccount || s.ExportCSV {
		t.Error("account actions must render disabled")
	}
}

func TestParseNav(t *testing.T) {
	if n, ok := ParseNav(" Analytics "); !ok || n != NavAnalytics {
		t.Errorf("ParseNav = %q, %v", n, ok)
	}
	if _, ok := ParseNav("reports"); ok {
		t.Error("unknown entries must be rejected")
	}
}
