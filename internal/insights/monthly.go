package insights

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyDataPoint aggregates one calendar month. Balance is always
// Income - Expenses.
type MonthlyDataPoint struct {
	MonthKey         string    `json:"monthKey"`
	Income           float64   `json:"income"`
	Expenses         float64   `json:"expenses"`
	Balance          float64   `json:"balance"`
	TransactionCount int       `json:"transactionCount"`
	Date             time.Time `json:"date"`
}

// MonthKey formats the "2006-01" key of the month containing t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// AggregateMonthly sums transactions per calendar month, oldest first. Only
// months that contain at least one transaction are emitted. Sums are kept in
// decimal and rounded to cents before conversion.
func AggregateMonthly(txs []Transaction) []MonthlyDataPoint {
	type bucket struct {
		start    time.Time
		income   decimal.Decimal
		expenses decimal.Decimal
		count    int
	}

	buckets := make(map[string]*bucket)
	for _, tx := range txs {
		d := Day(tx.Date)
		key := MonthKey(d)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)}
			buckets[key] = b
		}
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Type {
		case Income:
			b.income = b.income.Add(amount)
		case Expense:
			b.expenses = b.expenses.Add(amount)
		}
		b.count++
	}

	points := make([]MonthlyDataPoint, 0, len(buckets))
	for key, b := range buckets {
		income := b.income.Round(2).InexactFloat64()
		expenses := b.expenses.Round(2).InexactFloat64()
		points = append(points, MonthlyDataPoint{
			MonthKey:         key,
			Income:           income,
			Expenses:         expenses,
			Balance:          income - expenses,
			TransactionCount: b.count,
			Date:             b.start,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}
