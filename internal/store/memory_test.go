package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreListTransactions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.PutRecords(ctx,
		TransactionRecord{ID: "b", UserID: "u1", Date: day(2025, time.February, 1), Amount: 50, Kind: KindDebit, Description: "gym"},
		TransactionRecord{ID: "a", UserID: "u1", Date: day(2025, time.February, 1), Amount: 3000, Kind: KindCredit, Description: "salary"},
		TransactionRecord{ID: "c", UserID: "u1", Date: day(2025, time.January, 10), Amount: 20, Kind: KindDebit},
		TransactionRecord{ID: "d", UserID: "u2", Date: day(2025, time.February, 1), Amount: 99, Kind: KindDebit},
		TransactionRecord{UserID: "u1", Date: day(2025, time.March, 15), Amount: 5, Kind: KindDebit},
	))
	assert.Equal(t, 5, s.Len())

	txs, err := s.ListTransactions(ctx, "u1", DateRange{Start: day(2025, time.January, 1), End: day(2025, time.February, 28)})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "c", txs[0].ID)
	assert.Equal(t, "a", txs[1].ID)
	assert.Equal(t, insights.Income, txs[1].Type)
	assert.Equal(t, "b", txs[2].ID)

	all, err := s.ListTransactions(ctx, "u1", DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.NotEmpty(t, all[3].ID)

	none, err := s.ListTransactions(ctx, "nobody", DateRange{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.PutRecords(ctx,
		TransactionRecord{ID: "ok", UserID: "u1", Date: day(2025, time.January, 1), Amount: 1, Kind: KindDebit},
		TransactionRecord{ID: "bad", UserID: "u1", Date: day(2025, time.January, 1), Amount: -1, Kind: KindDebit},
	)
	var verr *insights.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, s.Len())

	assert.Error(t, s.PutRecords(ctx, TransactionRecord{ID: "x", Date: day(2025, 1, 1), Amount: 1, Kind: KindDebit}))
}

func TestMemoryStoreInvalidRange(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.ListTransactions(context.Background(), "u1", DateRange{Start: day(2025, 2, 1), End: day(2025, 1, 1)})
	assert.Error(t, err)
}

func TestMemoryStoreDeleteUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutRecords(ctx,
		TransactionRecord{UserID: "u1", Date: day(2025, 1, 1), Amount: 1, Kind: KindDebit},
		TransactionRecord{UserID: "u2", Date: day(2025, 1, 1), Amount: 1, Kind: KindDebit},
	))
	require.NoError(t, s.DeleteUser(ctx, "u1"))
	assert.Equal(t, 1, s.Len())
}
