package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/google/uuid"
)

// demoMonths is how much history SeedDemoTransactions generates.
const demoMonths = 6

type demoBill struct {
	description string
	category    string
	typ         insights.TransactionType
	day         int
	amount      float64
	// jitter is the ± relative noise applied to amount.
	jitter float64
}

var demoBills = []demoBill{
	{"Payroll ACME Corp", "income", insights.Income, 5, 5200, 0},
	{"Rent Apartment 302", "housing", insights.Expense, 1, 1800, 0},
	{"NETFLIX.COM", "", insights.Expense, 12, 39.90, 0},
	{"Spotify Premium", "", insights.Expense, 18, 21.90, 0},
	{"Energia Eletrica", "", insights.Expense, 20, 180, 0.12},
	{"Smart Fit Gym", "", insights.Expense, 8, 99.90, 0},
}

// demoRecordID is a name-based UUID, so seeding a persistent store twice
// overwrites the same records.
func demoRecordID(userID string, date time.Time, desc string) string {
	name := userID + "|" + date.Format(time.DateOnly) + "|" + desc
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// SeedDemoTransactions writes six months of plausible activity for userID
// ending on now: salary, rent, subscriptions, a noisy utility bill, weekly
// groceries and scattered coffee purchases. It returns the number of records
// written.
func SeedDemoTransactions(ctx context.Context, w TransactionWriter, userID string, now time.Time, rnd insights.RandomSource) (int, error) {
	now = insights.Day(now)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -demoMonths+1, 0)

	noisy := func(amount, jitter float64) float64 {
		if jitter == 0 {
			return amount
		}
		return math.Round(amount*(1+(rnd.Float64()*2-1)*jitter)*100) / 100
	}
	record := func(date time.Time, amount float64, typ insights.TransactionType, desc, category string) TransactionRecord {
		return RecordFromTransaction(userID, insights.Transaction{
			ID:          demoRecordID(userID, date, desc),
			Date:        date,
			Amount:      amount,
			Type:        typ,
			Description: desc,
			Category:    category,
		})
	}

	var records []TransactionRecord
	for m := 0; m < demoMonths; m++ {
		month := start.AddDate(0, m, 0)
		for _, bill := range demoBills {
			date := month.AddDate(0, 0, bill.day-1)
			if date.After(now) {
				continue
			}
			records = append(records, record(date, noisy(bill.amount, bill.jitter), bill.typ, bill.description, bill.category))
		}
	}

	for d := start.AddDate(0, 0, 2); !d.After(now); d = d.AddDate(0, 0, 7) {
		records = append(records, record(d, noisy(125, 0.3), insights.Expense, "Supermercado Pao de Acucar", "food"))
	}
	for d := start; !d.After(now); d = d.AddDate(0, 0, 1) {
		if rnd.Float64() < 0.15 {
			records = append(records, record(d, noisy(6.5, 0.4), insights.Expense, fmt.Sprintf("Cafe %d", d.YearDay()%7), "food"))
		}
	}

	if err := w.PutRecords(ctx, records...); err != nil {
		return 0, fmt.Errorf("failed to seed demo transactions: %w", err)
	}
	return len(records), nil
}
