package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/service"
	"github.com/castlemilk/pfinance/insights/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T, verifier auth.TokenVerifier) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	path, handler := service.NewInsightsServiceHandler(service.NewInsightsService(mem),
		connect.WithInterceptors(auth.AuthInterceptor(verifier)))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, mem
}

func TestVerify(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("test-secret-test-secret-test-secret", "")
	require.NoError(t, err)
	token, err := verifier.SignToken(auth.UserClaims{UID: "alice"}, time.Hour)
	require.NoError(t, err)

	server, mem := newServer(t, verifier)
	ctx := context.Background()

	err = verify(ctx, server.URL, token, "alice")
	assert.ErrorContains(t, err, "no recurring patterns")

	_, err = store.SeedDemoTransactions(ctx, mem, "alice", time.Now(), insights.NewSeededRandom(1))
	require.NoError(t, err)
	assert.NoError(t, verify(ctx, server.URL, token, "alice"))

	err = verify(ctx, server.URL, "", "alice")
	assert.ErrorContains(t, err, "failed to get insights")
}

func TestSeedUser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)
	stale := store.TransactionRecord{
		ID: "stale", UserID: "alice", Date: now.AddDate(0, 0, -3), Amount: 42, Kind: store.KindDebit, Description: "old import",
	}
	other := store.TransactionRecord{
		ID: "other", UserID: "bob", Date: now, Amount: 7, Kind: store.KindDebit, Description: "coffee",
	}

	t.Run("keeps existing records", func(t *testing.T) {
		mem := store.NewMemoryStore()
		require.NoError(t, mem.PutRecords(ctx, stale, other))

		n, err := seedUser(ctx, mem, "alice", false, now, insights.NewSeededRandom(1))
		require.NoError(t, err)
		assert.Equal(t, n+2, mem.Len())
	})

	t.Run("reset deletes the user first", func(t *testing.T) {
		mem := store.NewMemoryStore()
		require.NoError(t, mem.PutRecords(ctx, stale, other))

		n, err := seedUser(ctx, mem, "alice", true, now, insights.NewSeededRandom(1))
		require.NoError(t, err)
		assert.Equal(t, n+1, mem.Len())

		txs, err := mem.ListTransactions(ctx, "alice", store.DateRange{})
		require.NoError(t, err)
		for _, tx := range txs {
			assert.NotEqual(t, "stale", tx.ID)
		}
	})

	t.Run("reset failure stops seeding", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		w := store.NewMockTransactionWriter(ctrl)
		w.EXPECT().DeleteUser(gomock.Any(), "alice").Return(assert.AnError)

		_, err := seedUser(ctx, w, "alice", true, now, insights.NewSeededRandom(1))
		assert.ErrorIs(t, err, assert.AnError)
	})
}
