// Package view turns session state and the transaction list into read-only
// view models, one per navigation entry.
package view

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fintrack/internal/calculator"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/session"
)

// Nav is a navigation entry of the dashboard shell.
type Nav string

const (
	NavDashboard    Nav = "dashboard"
	NavTransactions Nav = "transactions"
	NavCategories   Nav = "categories"
	NavAnalytics    Nav = "analytics"
	NavSettings     Nav = "settings"
	NavSignOut      Nav = "signout"
)

// Menu lists the navigation entries in display order.
var Menu = []Nav{NavDashboard, NavTransactions, NavCategories, NavAnalytics, NavSettings, NavSignOut}

// ParseNav returns the entry named s.
func ParseNav(s string) (Nav, bool) {
	n := Nav(strings.ToLower(strings.TrimSpace(s)))
	return n, slices.Contains(Menu, n)
}

// Routes.
const (
	RouteSignIn    = "/"
	RouteDashboard = "/dashboard"
)

// RecentCount is the number of entries shown on the dashboard.
const RecentCount = 5

// Filter narrows the transactions page. Empty fields match everything.
type Filter struct {
	Query    string      `json:"query,omitempty"`
	Kind     models.Kind `json:"kind,omitempty"`
	Category string      `json:"category,omitempty"`
}

// Match reports whether tx satisfies every set field.
func (f Filter) Match(tx models.Transaction) bool {
	if f.Kind != "" && tx.Type != f.Kind {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(tx.Description), q) ||
			strings.Contains(strings.ToLower(tx.Category), q)
	}
	return true
}

// State is everything a page is rendered from.
type State struct {
	Session    session.Snapshot
	List       []models.Transaction
	Aggregates calculator.Aggregates
	Filter     Filter
	Today      string
}

// View is the rendered shell. Body is nil unless the session is signed in.
type View struct {
	Route  string            `json:"route"`
	Nav    Nav               `json:"nav"`
	Menu   []Nav             `json:"menu"`
	User   *models.Principal `json:"user,omitempty"`
	Totals *Totals           `json:"totals,omitempty"`
	Form   *Form             `json:"form,omitempty"`
	Body   Body              `json:"body,omitempty"`
}

// SignedIn reports whether the view is the protected shell.
func (v View) SignedIn() bool {
	return v.Route == RouteDashboard
}

// Body is one page of the shell.
type Body interface {
	page() Nav
}

// Row is a transaction as displayed.
type Row struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Kind        models.Kind `json:"type"`
	Amount      string      `json:"amount"`
}

// Totals are the header figures.
type Totals struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

// Form holds the add-transaction defaults.
type Form struct {
	Kind              models.Kind `json:"type"`
	Category          string      `json:"category"`
	Date              string      `json:"date"`
	ExpenseCategories []string    `json:"expenseCategories"`
	IncomeCategories  []string    `json:"incomeCategories"`
}

// BalancePoint is a line-chart point.
type BalancePoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// MonthPoint is a bar-chart group.
type MonthPoint struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// Slice is a pie-chart wedge.
type Slice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Dashboard struct {
	Recent   []Row          `json:"recent"`
	Timeline []BalancePoint `json:"timeline"`
}

type Transactions struct {
	Rows       []Row    `json:"rows"`
	Filter     Filter   `json:"filter"`
	Categories []string `json:"categories"`
	Total      int      `json:"total"`
}

type Categories struct {
	Expense []Slice `json:"expense"`
	Income  []Slice `json:"income"`
}

type Analytics struct {
	ByMonth           []MonthPoint `json:"byMonth"`
	ExpenseByCategory []Slice      `json:"expenseByCategory"`
	IncomeByCategory  []Slice      `json:"incomeByCategory"`
}

// Settings shows the profile. The account actions are not implemented and
// render disabled.
type Settings struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	MemberSince    string `json:"memberSince"`
	ChangePassword bool   `json:"changePassword"`
	DeleteAccount  bool   `json:"deleteAccount"`
	ExportCSV      bool   `json:"exportCsv"`
}

func (Dashboard) page() Nav    { return NavDashboard }
func (Transactions) page() Nav { return NavTransactions }
func (Categories) page() Nav   { return NavCategories }
func (Analytics) page() Nav    { return NavAnalytics }
func (Settings) page() Nav     { return NavSettings }

var renderers = map[Nav]func(State) Body{
	NavDashboard:    renderDashboard,
	NavTransactions: renderTransactions,
	NavCategories:   renderCategories,
	NavAnalytics:    renderAnalytics,
	NavSettings:     renderSettings,
}

// Render builds the view for nav. Any state other than signed-in yields the
// sign-in route.
func Render(nav Nav, st State) View {
	if !st.Session.SignedIn() {
		return View{Route: RouteSignIn, Nav: NavDashboard}
	}

	render, ok := renderers[nav]
	if !ok {
		nav, render = NavDashboard, renderDashboard
	}
	agg := st.Aggregates
	return View{
		Route: RouteDashboard,
		Nav:   nav,
		Menu:  Menu,
		User:  st.Session.Principal,
		Totals: &Totals{
			Income:  FormatMoney(agg.TotalIncome),
			Expense: FormatMoney(agg.TotalExpense),
			Balance: FormatMoney(agg.Balance),
		},
		Form: &Form{
			Kind:              models.KindExpense,
			Category:          models.DefaultCategory,
			Date:              st.Today,
			ExpenseCategories: models.ExpenseCategories,
			IncomeCategories:  models.IncomeCategories,
		},
		Body: render(st),
	}
}

func renderDashboard(st State) Body {
	recent := st.List[:min(RecentCount, len(st.List))]
	timeline := make([]BalancePoint, len(st.Aggregates.BalanceTimeline))
	for i, p := range st.Aggregates.BalanceTimeline {
		timeline[i] = BalancePoint{Date: p.Date, Balance: p.Balance.InexactFloat64()}
	}
	return Dashboard{Recent: rows(recent), Timeline: timeline}
}

func renderTransactions(st State) Body {
	var matched []models.Transaction
	var categories []string
	for _, tx := range st.List {
		if !slices.Contains(categories, tx.Category) {
			categories = append(categories, tx.Category)
		}
		if st.Filter.Match(tx) {
			matched = append(matched, tx)
		}
	}
	slices.Sort(categories)
	return Transactions{Rows: rows(matched), Filter: st.Filter, Categories: categories, Total: len(st.List)}
}

func renderCategories(st State) Body {
	return Categories{
		Expense: slicesOf(st.Aggregates.ExpenseByCategory),
		Income:  slicesOf(st.Aggregates.IncomeByCategory),
	}
}

func renderAnalytics(st State) Body {
	months := make([]MonthPoint, len(st.Aggregates.ByMonth))
	for i, m := range st.Aggregates.ByMonth {
		months[i] = MonthPoint{Month: m.Month, Income: m.Income.InexactFloat64(), Expense: m.Expense.InexactFloat64()}
	}
	return Analytics{
		ByMonth:           months,
		ExpenseByCategory: slicesOf(st.Aggregates.ExpenseByCategory),
		IncomeByCategory:  slicesOf(st.Aggregates.IncomeByCategory),
	}
}

func renderSettings(st State) Body {
	s := Settings{}
	if p := st.Session.Principal; p != nil {
		s.Email = p.Email
		s.FullName = p.DisplayName
	}
	if prof := st.Session.Profile; prof != nil {
		s.FullName = prof.FullName
		s.Email = prof.Email
		s.MemberSince = prof.CreatedAt
		if t, err := time.Parse(time.RFC3339, prof.CreatedAt); err == nil {
			s.MemberSince = t.Format("January 2, 2006")
		}
	}
	return s
}

func rows(txs []models.Transaction) []Row {
	out := make([]Row, len(txs))
	for i, tx := range txs {
		out[i] = Row{
			ID:          tx.ID,
			Date:        tx.Date,
			Category:    tx.Category,
			Description: tx.Description,
			Kind:        tx.Type,
			Amount:      AmountLabel(tx),
		}
	}
	return out
}

func slicesOf(totals []calculator.CategoryTotal) []Slice {
	out := make([]Slice, len(totals))
	for i, c := range totals {
		out[i] = Slice{Name: c.Category, Value: c.Amount.InexactFloat64()}
	}
	return out
}

// AmountLabel renders a transaction amount with its sign, e.g. "+$100.00"
// or "-$12.50".
func AmountLabel(tx models.Transaction) string {
	sign := "+"
	if tx.Type == models.KindExpense {
		sign = "-"
	}
	return sign + "$" + decimal.NewFromFloat(tx.Amount).StringFixed(2)
}

// FormatMoney renders d as dollars with cents; negatives lead with "-".
func FormatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
