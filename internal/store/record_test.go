package store

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTransaction(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)

	t.Run("credit becomes income", func(t *testing.T) {
		tx, err := TransactionRecord{
			ID:          "r1",
			Date:        time.Date(2025, time.March, 3, 9, 30, 0, 0, loc),
			Amount:      2500,
			Kind:        KindCredit,
			Description: "Salary",
		}.ToTransaction()
		require.NoError(t, err)
		assert.Equal(t, insights.Income, tx.Type)
		assert.Equal(t, day(2025, time.March, 3), tx.Date)
	})

	t.Run("debit becomes expense", func(t *testing.T) {
		tx, err := TransactionRecord{ID: "r2", Date: day(2025, time.March, 4), Amount: 12.5, Kind: KindDebit, Category: "food"}.ToTransaction()
		require.NoError(t, err)
		assert.Equal(t, insights.Expense, tx.Type)
		assert.Equal(t, "food", tx.Category)
	})

	tests := []struct {
		name  string
		rec   TransactionRecord
		field string
	}{
		{"unknown kind", TransactionRecord{ID: "x", Date: day(2025, 1, 1), Amount: 1, Kind: "transfer"}, "kind"},
		{"non-finite amount", TransactionRecord{ID: "x", Date: day(2025, 1, 1), Amount: math.Inf(1), Kind: KindDebit}, "amount"},
		{"zero amount", TransactionRecord{ID: "x", Date: day(2025, 1, 1), Kind: KindDebit}, "amount"},
		{"missing date", TransactionRecord{ID: "x", Amount: 1, Kind: KindCredit}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rec.ToTransaction()
			var verr *insights.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRecordFromTransaction(t *testing.T) {
	tx := insights.Transaction{ID: "t", Date: day(2025, time.May, 1), Amount: 10, Type: insights.Income, Description: "refund"}
	rec := RecordFromTransaction("u1", tx)
	assert.Equal(t, KindCredit, rec.Kind)
	assert.Equal(t, "u1", rec.UserID)

	back, err := rec.ToTransaction()
	require.NoError(t, err)
	assert.Equal(t, tx, back)
}
