package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name      string
		window    Window
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:      "defaults to lookback ending today",
			wantStart: "2024-06-20",
			wantEnd:   "2025-06-20",
		},
		{
			name:      "explicit range",
			window:    Window{StartDate: "2025-01-01", EndDate: "2025-03-31"},
			wantStart: "2025-01-01",
			wantEnd:   "2025-03-31",
		},
		{
			name:      "end only",
			window:    Window{EndDate: "2025-03-31"},
			wantStart: "2024-03-31",
			wantEnd:   "2025-03-31",
		},
		{
			name:      "longest allowed range",
			window:    Window{StartDate: "2023-01-01", EndDate: "2024-12-31"},
			wantStart: "2023-01-01",
			wantEnd:   "2024-12-31",
		},
		{
			name:    "range too long",
			window:  Window{StartDate: "2023-01-01", EndDate: "2025-01-01"},
			wantErr: true,
		},
		{
			name:    "end before start",
			window:  Window{StartDate: "2025-03-01", EndDate: "2025-02-01"},
			wantErr: true,
		},
		{
			name:    "bad format",
			window:  Window{StartDate: "01/03/2025"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseWindow(tt.window, testNow, 365)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.Start.Format(time.DateOnly))
			assert.Equal(t, tt.wantEnd, r.End.Format(time.DateOnly))
		})
	}
}

func TestWrapStoreError(t *testing.T) {
	assert.NoError(t, wrapStoreError("list transactions", nil))

	err := wrapStoreError("list transactions", errors.New("connection refused"))
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	assert.Contains(t, err.Error(), "failed to list transactions: connection refused")

	verr := &insights.ValidationError{TransactionID: "tx-1", Field: "amount", Reason: "must be positive"}
	err = wrapStoreError("list transactions", fmt.Errorf("record tx-1: %w", verr))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	var target *insights.ValidationError
	assert.True(t, errors.As(err, &target))

	err = wrapStoreError("list transactions", context.DeadlineExceeded)
	assert.Equal(t, connect.CodeDeadlineExceeded, connect.CodeOf(err))
}

func TestParseStrategy(t *testing.T) {
	s, err := parseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, insights.DescriptionFirst, s)

	s, err = parseStrategy("value-first")
	require.NoError(t, err)
	assert.Equal(t, insights.ValueFirst, s)

	_, err = parseStrategy("amount")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestDetectRecurringPatterns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	tests := []struct {
		name         string
		ctx          context.Context
		request      DetectRecurringPatternsRequest
		setupMock    func()
		expectedCode connect.Code
		wantPatterns int
	}{
		{
			name:    "finds salary and rent",
			ctx:     testContext("user-123"),
			request: DetectRecurringPatternsRequest{},
			setupMock: func() {
				mockSource.EXPECT().
					ListTransactions(gomock.Any(), "user-123", store.LastDays(testNow, 365)).
					Return(household(), nil)
			},
			wantPatterns: 2,
		},
		{
			name:    "value-first strategy",
			ctx:     testContext("user-123"),
			request: DetectRecurringPatternsRequest{Strategy: "value-first"},
			setupMock: func() {
				mockSource.EXPECT().
					ListTransactions(gomock.Any(), "user-123", gomock.Any()).
					Return(household(), nil)
			},
			wantPatterns: 2,
		},
		{
			name:    "no history",
			ctx:     testContext("user-123"),
			request: DetectRecurringPatternsRequest{},
			setupMock: func() {
				mockSource.EXPECT().
					ListTransactions(gomock.Any(), "user-123", gomock.Any()).
					Return(nil, nil)
			},
			wantPatterns: 0,
		},
		{
			name:         "unauthenticated",
			ctx:          context.Background(),
			setupMock:    func() {},
			expectedCode: connect.CodeUnauthenticated,
		},
		{
			name:         "another user's data",
			ctx:          testContext("user-123"),
			request:      DetectRecurringPatternsRequest{Window: Window{UserID: "user-456"}},
			setupMock:    func() {},
			expectedCode: connect.CodePermissionDenied,
		},
		{
			name:         "unknown strategy",
			ctx:          testContext("user-123"),
			request:      DetectRecurringPatternsRequest{Strategy: "fuzzy"},
			setupMock:    func() {},
			expectedCode: connect.CodeInvalidArgument,
		},
		{
			name:    "store failure",
			ctx:     testContext("user-123"),
			request: DetectRecurringPatternsRequest{},
			setupMock: func() {
				mockSource.EXPECT().
					ListTransactions(gomock.Any(), "user-123", gomock.Any()).
					Return(nil, errors.New("database error"))
			},
			expectedCode: connect.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			resp, err := svc.DetectRecurringPatterns(tt.ctx, connect.NewRequest(&tt.request))
			if tt.expectedCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Msg.Patterns, tt.wantPatterns)
			assert.NotNil(t, resp.Msg.Patterns)
		})
	}
}

func TestAnalyzeMonthlySeries(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	mockSource.EXPECT().
		ListTransactions(gomock.Any(), "user-123", gomock.Any()).
		Return(household(), nil)

	resp, err := svc.AnalyzeMonthlySeries(testContext("user-123"), connect.NewRequest(&AnalyzeMonthlySeriesRequest{}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Months, 6)
	assert.Equal(t, "2025-01", resp.Msg.Months[0].MonthKey)
	assert.InDelta(t, 2500, resp.Msg.Months[5].Balance, 0.001)
	assert.Equal(t, insights.TrendStable, resp.Msg.Analysis.Trend.Direction)
}

func TestDefaultWindowLookback(t *testing.T) {
	tests := []struct {
		name      string
		days      int
		wantStart string
	}{
		{"longest allowed lookback", MaxWindowDays - 1, "2023-06-21"},
		{"lookback beyond the window limit is ignored", MaxWindowDays, "2024-06-20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			svc := NewInsightsService(mem,
				WithClock(insights.FixedClock(testNow)),
				WithLookbackDays(tt.days))

			resp, err := svc.GetInsights(testContext("user-123"), connect.NewRequest(&GetInsightsRequest{}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, resp.Msg.StartDate)
			assert.Equal(t, "2025-06-20", resp.Msg.EndDate)
		})
	}
}

func TestEstimateInitialBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	mockSource.EXPECT().
		ListTransactions(gomock.Any(), "user-123", gomock.Any()).
		Return(household(), nil)

	resp, err := svc.EstimateInitialBalance(testContext("user-123"), connect.NewRequest(&EstimateInitialBalanceRequest{}))
	require.NoError(t, err)
	assert.Greater(t, resp.Msg.Estimate.InitialBalance, 0.0)
}

func TestProjectCashFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	mockSource.EXPECT().
		ListTransactions(gomock.Any(), "user-123", gomock.Any()).
		Return(household(), nil).
		Times(2)

	t.Run("provided balance", func(t *testing.T) {
		balance := 250.0
		resp, err := svc.ProjectCashFlow(testContext("user-123"), connect.NewRequest(&ProjectCashFlowRequest{InitialBalance: &balance}))
		require.NoError(t, err)
		assert.Equal(t, BalanceProvided, resp.Msg.BalanceSource)
		assert.Equal(t, 250.0, resp.Msg.InitialBalance)
		assert.Equal(t, 250.0, resp.Msg.Summary.InitialBalance)
		require.Len(t, resp.Msg.Projection, insights.ProjectionHorizonDays+1)
		assert.Equal(t, 250.0, resp.Msg.Projection[0].Balance)
		assert.LessOrEqual(t, resp.Msg.LowestBalance, 250.0)
	})

	t.Run("estimated balance", func(t *testing.T) {
		resp, err := svc.ProjectCashFlow(testContext("user-123"), connect.NewRequest(&ProjectCashFlowRequest{}))
		require.NoError(t, err)
		assert.Equal(t, BalanceEstimated, resp.Msg.BalanceSource)
		assert.InDelta(t, 4000-1500, resp.Msg.Summary.MonthlyFlow, 1)
	})
}

func TestProjectCashFlowIsDeterministic(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	txs := monthly("Rent", insights.Expense, 1500, 1, 6)
	mockSource.EXPECT().
		ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(txs, nil).
		Times(2)

	balance := 100.0
	req := &ProjectCashFlowRequest{InitialBalance: &balance}
	first, err := svc.ProjectCashFlow(testContext("user-123"), connect.NewRequest(req))
	require.NoError(t, err)
	second, err := svc.ProjectCashFlow(testContext("user-123"), connect.NewRequest(req))
	require.NoError(t, err)

	assert.NotEmpty(t, first.Msg.Summary.AlertDays)
	assert.Equal(t, first.Msg.Summary.AlertDays, second.Msg.Summary.AlertDays)
}

func TestGetPredictiveAnalysis(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	mockSource.EXPECT().
		ListTransactions(gomock.Any(), "user-123", gomock.Any()).
		Return(household(), nil)

	resp, err := svc.GetPredictiveAnalysis(testContext("user-123"), connect.NewRequest(&GetPredictiveAnalysisRequest{}))
	require.NoError(t, err)

	pa := resp.Msg.Prediction
	assert.Equal(t, 6, pa.MonthsAnalyzed)
	assert.InDelta(t, 4000, pa.NextMonthIncome, 1000)
	assert.InDelta(t, 1500, pa.NextMonthExpenses, 375)
	assert.GreaterOrEqual(t, pa.Confidence, 15.0)
	assert.LessOrEqual(t, pa.Confidence, 95.0)
	assert.Equal(t, testNow, pa.GeneratedAt)
}

func TestGetInsightsFetchesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	mockSource.EXPECT().
		ListTransactions(gomock.Any(), "user-123", gomock.Any()).
		Return(household(), nil).
		Times(1)

	resp, err := svc.GetInsights(testContext("user-123"), connect.NewRequest(&GetInsightsRequest{}))
	require.NoError(t, err)

	assert.Equal(t, "2024-06-20", resp.Msg.StartDate)
	assert.Equal(t, "2025-06-20", resp.Msg.EndDate)
	assert.Len(t, resp.Msg.Patterns, 2)
	assert.Len(t, resp.Msg.Months, 6)
	assert.Equal(t, BalanceEstimated, resp.Msg.CashFlow.BalanceSource)
	assert.Equal(t, resp.Msg.Balance.InitialBalance, resp.Msg.CashFlow.InitialBalance)
	assert.Equal(t, 6, resp.Msg.Prediction.MonthsAnalyzed)
}

func TestPredict(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	_, err := svc.Predict(context.Background(), "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	mockSource.EXPECT().
		ListTransactions(gomock.Any(), "user-123", store.LastDays(testNow, 365)).
		Return(household(), nil)

	pa, err := svc.Predict(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Equal(t, 6, pa.MonthsAnalyzed)
}

func TestHandlerOverConnect(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSource := store.NewMockTransactionSource(ctrl)
	svc := newTestService(mockSource)

	path, handler := NewInsightsServiceHandler(svc, connect.WithInterceptors(auth.LocalDevInterceptor()))
	assert.Equal(t, "/insights.v1.InsightsService/", path)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewInsightsClient(server.Client(), server.URL)

	t.Run("predictive analysis as the local user", func(t *testing.T) {
		mockSource.EXPECT().
			ListTransactions(gomock.Any(), auth.LocalDevUserID, gomock.Any()).
			Return(household(), nil)

		resp, err := client.GetPredictiveAnalysis(context.Background(), connect.NewRequest(&GetPredictiveAnalysisRequest{}))
		require.NoError(t, err)
		assert.Equal(t, 6, resp.Msg.Prediction.MonthsAnalyzed)
		assert.NotEmpty(t, resp.Msg.Prediction.Recommendation)
	})

	t.Run("error codes cross the wire", func(t *testing.T) {
		_, err := client.DetectRecurringPatterns(context.Background(), connect.NewRequest(&DetectRecurringPatternsRequest{
			Window: Window{StartDate: "2020-01-01", EndDate: "2025-01-01"},
		}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("unknown procedure", func(t *testing.T) {
		resp, err := server.Client().Post(server.URL+"/insights.v1.InsightsService/Nope", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
