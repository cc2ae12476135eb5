package insights

import (
	"fmt"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthlySeries returns n transactions of amount on the same day of n
// consecutive months starting at start.
func monthlySeries(desc string, typ TransactionType, amount float64, start time.Time, n int) []Transaction {
	txs := make([]Transaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, Transaction{
			ID:          fmt.Sprintf("%s-%d", desc, i),
			Date:        start.AddDate(0, i, 0),
			Amount:      amount,
			Type:        typ,
			Description: desc,
		})
	}
	return txs
}

// everyNDays returns n transactions spaced step days apart.
func everyNDays(desc string, typ TransactionType, amount float64, start time.Time, step, n int) []Transaction {
	txs := make([]Transaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, Transaction{
			ID:          fmt.Sprintf("%s-%d", desc, i),
			Date:        start.AddDate(0, 0, i*step),
			Amount:      amount,
			Type:        typ,
			Description: desc,
		})
	}
	return txs
}
