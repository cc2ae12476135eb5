package service

import "github.com/castlemilk/pfinance/insights/internal/insights"

// Window selects the user and date range of a request. Dates are YYYY-MM-DD
// and inclusive. An empty user means the caller; empty dates default to the
// configured lookback ending today.
type Window struct {
	UserID    string `json:"userId,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type DetectRecurringPatternsRequest struct {
	Window
	// Strategy is "description-first" (default) or "value-first".
	Strategy string `json:"strategy,omitempty"`
}

type DetectRecurringPatternsResponse struct {
	Patterns         []insights.RecurringPattern `json:"patterns"`
	TransactionCount int                         `json:"transactionCount"`
}

type AnalyzeMonthlySeriesRequest struct {
	Window
}

type AnalyzeMonthlySeriesResponse struct {
	Months   []insights.MonthlyDataPoint `json:"months"`
	Analysis insights.MonthlyAnalysis    `json:"analysis"`
}

type EstimateInitialBalanceRequest struct {
	Window
}

type EstimateInitialBalanceResponse struct {
	Estimate insights.BalanceEstimate `json:"estimate"`
}

type ProjectCashFlowRequest struct {
	Window
	// InitialBalance overrides the estimated starting balance.
	InitialBalance *float64 `json:"initialBalance,omitempty"`
}

// Balance sources reported by ProjectCashFlow.
const (
	BalanceProvided  = "provided"
	BalanceEstimated = "estimated"
)

type ProjectCashFlowResponse struct {
	InitialBalance float64                    `json:"initialBalance"`
	BalanceSource  string                     `json:"balanceSource"`
	Summary        insights.CashFlowSummary   `json:"summary"`
	Projection     []insights.ProjectionPoint `json:"projection"`
	LowestBalance  float64                    `json:"lowestBalance"`
}

type GetPredictiveAnalysisRequest struct {
	Window
}

type GetPredictiveAnalysisResponse struct {
	Prediction insights.PredictiveAnalysis `json:"prediction"`
}

type GetInsightsRequest struct {
	Window
	InitialBalance *float64 `json:"initialBalance,omitempty"`
}

// GetInsightsResponse bundles every analysis over one fetch of the window.
type GetInsightsResponse struct {
	StartDate  string                      `json:"startDate"`
	EndDate    string                      `json:"endDate"`
	Patterns   []insights.RecurringPattern `json:"patterns"`
	Months     []insights.MonthlyDataPoint `json:"months"`
	Analysis   insights.MonthlyAnalysis    `json:"analysis"`
	Balance    insights.BalanceEstimate    `json:"balance"`
	CashFlow   ProjectCashFlowResponse     `json:"cashFlow"`
	Prediction insights.PredictiveAnalysis `json:"prediction"`
}
