package service

import (
	"context"
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/store"
)

var testNow = time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)

// testContext creates a context with authenticated user claims for testing
func testContext(userID string) context.Context {
	return auth.WithUserClaims(context.Background(), &auth.UserClaims{
		UID:         userID,
		Email:       userID + "@test.com",
		DisplayName: "Test User",
		Verified:    true,
	})
}

// monthly returns n transactions on the given day of n consecutive months
// ending in June 2025.
func monthly(desc string, typ insights.TransactionType, amount float64, day, n int) []insights.Transaction {
	txs := make([]insights.Transaction, 0, n)
	start := time.Date(2025, time.June, day, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	for i := 0; i < n; i++ {
		txs = append(txs, insights.Transaction{
			ID:          fmt.Sprintf("%s-%d", desc, i),
			Date:        start.AddDate(0, i, 0),
			Amount:      amount,
			Type:        typ,
			Description: desc,
		})
	}
	return txs
}

// household is six months of salary and rent.
func household() []insights.Transaction {
	txs := monthly("ACME PAYROLL", insights.Income, 4000, 5, 6)
	return append(txs, monthly("Rent", insights.Expense, 1500, 1, 6)...)
}

func newTestService(source store.TransactionSource) *InsightsService {
	return NewInsightsService(source, WithClock(insights.FixedClock(testNow)), WithProjectionSeed(7))
}
