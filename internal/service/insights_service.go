package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLookbackDays is the window used when a request names no dates.
	DefaultLookbackDays = 365
	// MaxWindowDays bounds the inclusive length of a requested window.
	MaxWindowDays = 731
)

// InsightsService serves recurring-pattern detection, monthly analysis and
// cash-flow projection over a user's stored transactions.
type InsightsService struct {
	source       store.TransactionSource
	clock        insights.Clock
	lookbackDays int
	seed         int64
	categorizer  *insights.Categorizer
}

// Option configures an InsightsService.
type Option func(*InsightsService)

// WithClock replaces the system clock.
func WithClock(c insights.Clock) Option {
	return func(s *InsightsService) { s.clock = c }
}

// WithLookbackDays sets the default window length. Values that would exceed
// MaxWindowDays are ignored.
func WithLookbackDays(days int) Option {
	return func(s *InsightsService) {
		if days > 0 && days < MaxWindowDays {
			s.lookbackDays = days
		}
	}
}

// WithProjectionSeed seeds the alert-day simulation. Every request starts
// from the same seed so identical data yields identical alerts.
func WithProjectionSeed(seed int64) Option {
	return func(s *InsightsService) { s.seed = seed }
}

// WithCategorizer replaces the keyword table used to categorize patterns.
func WithCategorizer(c *insights.Categorizer) Option {
	return func(s *InsightsService) { s.categorizer = c }
}

// NewInsightsService creates a service reading from source.
func NewInsightsService(source store.TransactionSource, opts ...Option) *InsightsService {
	s := &InsightsService{
		source:       source,
		clock:        insights.SystemClock(),
		lookbackDays: DefaultLookbackDays,
		seed:         1,
		categorizer:  insights.DefaultCategorizer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Request scope
// ============================================================================

// request is the state shared by every computation of one call.
type request struct {
	userID string
	window store.DateRange
	now    time.Time
	cache  *insights.Cache
}

func (s *InsightsService) begin(ctx context.Context, w Window) (*request, error) {
	userID, err := auth.ResolveUserID(ctx, w.UserID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	window, err := parseWindow(w, now, s.lookbackDays)
	if err != nil {
		return nil, err
	}
	return &request{userID: userID, window: window, now: now, cache: insights.NewCache()}, nil
}

// transactions fetches the window once per request.
func (s *InsightsService) transactions(ctx context.Context, r *request) ([]insights.Transaction, error) {
	return insights.Memo(r.cache, "transactions", func() ([]insights.Transaction, error) {
		txs, err := s.source.ListTransactions(ctx, r.userID, r.window)
		if err != nil {
			return nil, wrapStoreError("list transactions", err)
		}
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"user_id":      r.userID,
			"window":       r.window.String(),
			"transactions": len(txs),
		}).Debug("Loaded transactions")
		return txs, nil
	})
}

func (s *InsightsService) detector(strategy insights.GroupingStrategy) *insights.Detector {
	d := insights.NewDetector(strategy)
	d.Categorizer = s.categorizer
	return d
}

// patterns runs detection memoized in the request cache.
func (s *InsightsService) patterns(r *request, txs []insights.Transaction, strategy insights.GroupingStrategy) []insights.RecurringPattern {
	return s.detector(strategy).DetectCached(r.cache, txs, r.now)
}

// ============================================================================
// Procedures
// ============================================================================

// DetectRecurringPatterns lists the recurring patterns in the window.
func (s *InsightsService) DetectRecurringPatterns(ctx context.Context, req *connect.Request[DetectRecurringPatternsRequest]) (*connect.Response[DetectRecurringPatternsResponse], error) {
	r, err := s.begin(ctx, req.Msg.Window)
	if err != nil {
		return nil, err
	}
	strategy, err := parseStrategy(req.Msg.Strategy)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&DetectRecurringPatternsResponse{
		Patterns:         nonNil(s.patterns(r, txs, strategy)),
		TransactionCount: len(txs),
	}), nil
}

// AnalyzeMonthlySeries aggregates the window by month and runs the series
// statistics.
func (s *InsightsService) AnalyzeMonthlySeries(ctx context.Context, req *connect.Request[AnalyzeMonthlySeriesRequest]) (*connect.Response[AnalyzeMonthlySeriesResponse], error) {
	r, err := s.begin(ctx, req.Msg.Window)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return nil, err
	}

	months := insights.AggregateMonthlyCached(r.cache, txs)
	return connect.NewResponse(&AnalyzeMonthlySeriesResponse{
		Months:   nonNil(months),
		Analysis: insights.AnalyzeMonthlySeries(months, r.now),
	}), nil
}

// EstimateInitialBalance estimates the balance the user holds today.
func (s *InsightsService) EstimateInitialBalance(ctx context.Context, req *connect.Request[EstimateInitialBalanceRequest]) (*connect.Response[EstimateInitialBalanceResponse], error) {
	r, err := s.begin(ctx, req.Msg.Window)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&EstimateInitialBalanceResponse{
		Estimate: insights.EstimateInitialBalance(txs, insights.FixedClock(r.now)),
	}), nil
}

// ProjectCashFlow projects the balance over the next thirty days from the
// value-first patterns and reports the days at risk of a deficit.
func (s *InsightsService) ProjectCashFlow(ctx context.Context, req *connect.Request[ProjectCashFlowRequest]) (*connect.Response[ProjectCashFlowResponse], error) {
	r, err := s.begin(ctx, req.Msg.Window)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return nil, err
	}

	res := s.projectCashFlow(r, txs, req.Msg.InitialBalance)
	return connect.NewResponse(&res), nil
}

func (s *InsightsService) projectCashFlow(r *request, txs []insights.Transaction, initial *float64) ProjectCashFlowResponse {
	res := ProjectCashFlowResponse{BalanceSource: BalanceProvided}
	if initial != nil {
		res.InitialBalance = *initial
	} else {
		res.InitialBalance = insights.EstimateInitialBalance(txs, insights.FixedClock(r.now)).InitialBalance
		res.BalanceSource = BalanceEstimated
	}

	patterns := s.patterns(r, txs, insights.ValueFirst)
	res.Summary = insights.SummarizeCashFlow(patterns, res.InitialBalance, insights.NewSeededRandom(s.seed))
	res.Projection = insights.ProjectCashFlow(patterns, res.InitialBalance, r.now)
	res.LowestBalance = insights.LowestBalance(res.Projection)
	return res
}

// GetPredictiveAnalysis forecasts next month's income, expenses and balance.
func (s *InsightsService) GetPredictiveAnalysis(ctx context.Context, req *connect.Request[GetPredictiveAnalysisRequest]) (*connect.Response[GetPredictiveAnalysisResponse], error) {
	r, err := s.begin(ctx, req.Msg.Window)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&GetPredictiveAnalysisResponse{
		Prediction: s.predict(r, txs),
	}), nil
}

func (s *InsightsService) predict(r *request, txs []insights.Transaction) insights.PredictiveAnalysis {
	pa := insights.BuildPredictiveAnalysis(txs, insights.PredictiveOptions{
		Clock:    insights.FixedClock(r.now),
		Random:   insights.NewSeededRandom(s.seed),
		Cache:    r.cache,
		Detector: s.detector(insights.ValueFirst),
	})
	pa.RecurringPatterns = nonNil(pa.RecurringPatterns)
	pa.Months = nonNil(pa.Months)
	return pa
}

// GetInsights returns every analysis of the window from a single fetch.
func (s *InsightsService) GetInsights(ctx context.Context, req *connect.Request[GetInsightsRequest]) (*connect.Response[GetInsightsResponse], error) {
	r, err := s.begin(ctx, req.Msg.Window)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return nil, err
	}

	months := insights.AggregateMonthlyCached(r.cache, txs)
	res := &GetInsightsResponse{
		StartDate:  r.window.Start.Format(time.DateOnly),
		EndDate:    r.window.End.Format(time.DateOnly),
		Patterns:   nonNil(s.patterns(r, txs, insights.DescriptionFirst)),
		Months:     nonNil(months),
		Analysis:   insights.AnalyzeMonthlySeries(months, r.now),
		Balance:    insights.EstimateInitialBalance(txs, insights.FixedClock(r.now)),
		CashFlow:   s.projectCashFlow(r, txs, req.Msg.InitialBalance),
		Prediction: s.predict(r, txs),
	}

	hits, misses := r.cache.Stats()
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":      r.userID,
		"cache_hits":   hits,
		"cache_misses": misses,
		"patterns":     len(res.Patterns),
	}).Info("Built insights")
	return connect.NewResponse(res), nil
}

// Predict builds the predictive analysis for a user over the default window.
// It bypasses authentication and serves in-process callers such as the
// alert digest.
func (s *InsightsService) Predict(ctx context.Context, userID string) (insights.PredictiveAnalysis, error) {
	if userID == "" {
		return insights.PredictiveAnalysis{}, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("user_id is required"))
	}
	now := s.clock.Now()
	r := &request{
		userID: userID,
		window: store.LastDays(now, s.lookbackDays),
		now:    now,
		cache:  insights.NewCache(),
	}
	txs, err := s.transactions(ctx, r)
	if err != nil {
		return insights.PredictiveAnalysis{}, err
	}
	return s.predict(r, txs), nil
}

// ============================================================================
// Helpers
// ============================================================================

// parseWindow resolves a request window against now. Missing bounds default
// to the lookback ending today.
func parseWindow(w Window, now time.Time, lookbackDays int) (store.DateRange, error) {
	r := store.LastDays(now, lookbackDays)
	if w.EndDate != "" {
		end, err := time.Parse(time.DateOnly, w.EndDate)
		if err != nil {
			return store.DateRange{}, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("end_date must be YYYY-MM-DD: %q", w.EndDate))
		}
		r.End = end
		r.Start = end.AddDate(0, 0, -lookbackDays)
	}
	if w.StartDate != "" {
		start, err := time.Parse(time.DateOnly, w.StartDate)
		if err != nil {
			return store.DateRange{}, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("start_date must be YYYY-MM-DD: %q", w.StartDate))
		}
		r.Start = start
	}
	if err := r.Validate(); err != nil {
		return store.DateRange{}, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if r.Days() > MaxWindowDays {
		return store.DateRange{}, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("date range must not exceed %d days", MaxWindowDays))
	}
	return r, nil
}

func parseStrategy(name string) (insights.GroupingStrategy, error) {
	switch name {
	case "", insights.DescriptionFirst.String():
		return insights.DescriptionFirst, nil
	case insights.ValueFirst.String():
		return insights.ValueFirst, nil
	}
	return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown strategy %q", name))
}

// wrapStoreError wraps store errors with operation context and maps them to
// a Connect code. Records that fail validation are the caller's data, not a
// server fault.
func wrapStoreError(operation string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("failed to %s: %w", operation, err)

	var verr *insights.ValidationError
	switch {
	case errors.As(err, &verr):
		return connect.NewError(connect.CodeFailedPrecondition, wrapped)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, wrapped)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, wrapped)
	}
	return connect.NewError(connect.CodeInternal, wrapped)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
