package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used by Transaction.Date.
const DateLayout = "2006-01-02"

// Kind says whether a transaction adds to or subtracts from the balance.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is a single financial event owned by exactly one principal.
type Transaction struct {
	// ID is the backend-assigned document identifier.
	ID string `json:"id"`

	// UserID is the owning principal's identifier.
	UserID string `json:"userId"`

	// Amount is always positive. Rounding and display belong to the UI.
	Amount float64 `json:"amount"`

	Category string `json:"category"`

	// Date is the calendar date (YYYY-MM-DD) in the user's local reckoning.
	Date string `json:"date"`

	// Description may be empty.
	Description string `json:"description"`

	Type Kind `json:"type"`

	// CreatedAt is the server timestamp, used only for tie-breaking.
	CreatedAt time.Time `json:"createdAt"`
}

// TransactionDraft carries the client-supplied fields of a new transaction.
// The backend assigns ID and CreatedAt.
type TransactionDraft struct {
	UserID      string  `json:"userId"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Type        Kind    `json:"type"`
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Category vocabulary offered by the add-transaction form.
var (
	ExpenseCategories = []string{
		"Groceries", "Rent", "Utilities", "Entertainment", "Food",
		"Transportation", "Shopping", "Health", "Other",
	}
	IncomeCategories = []string{
		"Salary", "Freelance", "Investments", "Gifts", "Other",
	}
)

// DefaultCategory is preselected by the add-transaction form.
const DefaultCategory = "Groceries"
