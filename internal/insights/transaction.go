// Package insights implements recurring-transaction detection, monthly series
// statistics and cash-flow projection over a window of user transactions.
//
// Everything in this package is synchronous and free of I/O. Callers supply the
// transactions, the current time and, where a simulation is involved, the random
// source, so identical inputs always produce identical outputs.
package insights

import (
	"fmt"
	"math"
	"time"
)

// TransactionType tells whether money came in or went out. Amounts are always
// positive; the sign is carried by the type.
type TransactionType int

const (
	TransactionTypeUnspecified TransactionType = iota
	Income
	Expense
)

func (t TransactionType) String() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return "unspecified"
	}
}

// MarshalText encodes the type as "income" / "expense".
func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts "income" or "expense".
func (t *TransactionType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "income":
		*t = Income
	case "expense":
		*t = Expense
	default:
		return fmt.Errorf("unknown transaction type %q", string(b))
	}
	return nil
}

// sign returns +1 for income and -1 for expenses.
func (t TransactionType) sign() float64 {
	if t == Income {
		return 1
	}
	return -1
}

// Transaction is a single posted movement on a user's account.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
}

// ValidationError reports a transaction rejected at the ingestion boundary.
type ValidationError struct {
	TransactionID string
	Field         string
	Reason        string
}

func (e *ValidationError) Error() string {
	if e.TransactionID != "" {
		return fmt.Sprintf("invalid transaction %s: %s %s", e.TransactionID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid transaction: %s %s", e.Field, e.Reason)
}

// Validate checks the invariants the analytics rely on: a finite positive
// amount, a calendar date and a known type.
func (t Transaction) Validate() error {
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return &ValidationError{TransactionID: t.ID, Field: "amount", Reason: "must be finite"}
	}
	if t.Amount <= 0 {
		return &ValidationError{TransactionID: t.ID, Field: "amount", Reason: "must be greater than zero"}
	}
	if t.Date.IsZero() {
		return &ValidationError{TransactionID: t.ID, Field: "date", Reason: "is required"}
	}
	if t.Type != Income && t.Type != Expense {
		return &ValidationError{TransactionID: t.ID, Field: "type", Reason: "must be income or expense"}
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole number of calendar days from a to b.
func daysBetween(a, b time.Time) float64 {
	return math.Round(Day(b).Sub(Day(a)).Hours() / 24)
}
