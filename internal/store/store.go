package store

import (
	"context"
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/insights"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// TransactionSource returns a user's transactions for a date window, oldest
// first. Every returned transaction has passed insights validation.
type TransactionSource interface {
	ListTransactions(ctx context.Context, userID string, r DateRange) ([]insights.Transaction, error)
}

// TransactionWriter persists raw ledger records.
type TransactionWriter interface {
	PutRecords(ctx context.Context, records ...TransactionRecord) error
	// DeleteUser removes every record of a user.
	DeleteUser(ctx context.Context, userID string) error
}

// Store is a transaction backend that can be read and seeded.
type Store interface {
	TransactionSource
	TransactionWriter
}

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the range of the given number of days ending on now.
func LastDays(now time.Time, days int) DateRange {
	end := insights.Day(now)
	return DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether t falls on a day within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := insights.Day(t)
	if !r.Start.IsZero() && d.Before(insights.Day(r.Start)) {
		return false
	}
	if !r.End.IsZero() && d.After(insights.Day(r.End)) {
		return false
	}
	return true
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && insights.Day(r.End).Before(insights.Day(r.Start)) {
		return fmt.Errorf("invalid date range: end %s before start %s",
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return nil
}

// Days is the inclusive length of a closed range, 0 when a bound is open.
func (r DateRange) Days() int {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return int(insights.Day(r.End).Sub(insights.Day(r.Start)).Hours()/24) + 1
}

func (r DateRange) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format(time.DateOnly)
	}
	return format(r.Start) + ".." + format(r.End)
}
