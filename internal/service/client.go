package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// InsightsClient calls a remote insights service over Connect with the JSON
// codec.
type InsightsClient struct {
	detectRecurringPatterns *connect.Client[DetectRecurringPatternsRequest, DetectRecurringPatternsResponse]
	analyzeMonthlySeries    *connect.Client[AnalyzeMonthlySeriesRequest, AnalyzeMonthlySeriesResponse]
	estimateInitialBalance  *connect.Client[EstimateInitialBalanceRequest, EstimateInitialBalanceResponse]
	projectCashFlow         *connect.Client[ProjectCashFlowRequest, ProjectCashFlowResponse]
	getPredictiveAnalysis   *connect.Client[GetPredictiveAnalysisRequest, GetPredictiveAnalysisResponse]
	getInsights             *connect.Client[GetInsightsRequest, GetInsightsResponse]
}

// NewInsightsClient creates a client for the service at baseURL.
func NewInsightsClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *InsightsClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &InsightsClient{
		detectRecurringPatterns: connect.NewClient[DetectRecurringPatternsRequest, DetectRecurringPatternsResponse](httpClient, baseURL+DetectRecurringPatternsProcedure, opts...),
		analyzeMonthlySeries:    connect.NewClient[AnalyzeMonthlySeriesRequest, AnalyzeMonthlySeriesResponse](httpClient, baseURL+AnalyzeMonthlySeriesProcedure, opts...),
		estimateInitialBalance:  connect.NewClient[EstimateInitialBalanceRequest, EstimateInitialBalanceResponse](httpClient, baseURL+EstimateInitialBalanceProcedure, opts...),
		projectCashFlow:         connect.NewClient[ProjectCashFlowRequest, ProjectCashFlowResponse](httpClient, baseURL+ProjectCashFlowProcedure, opts...),
		getPredictiveAnalysis:   connect.NewClient[GetPredictiveAnalysisRequest, GetPredictiveAnalysisResponse](httpClient, baseURL+GetPredictiveAnalysisProcedure, opts...),
		getInsights:             connect.NewClient[GetInsightsRequest, GetInsightsResponse](httpClient, baseURL+GetInsightsProcedure, opts...),
	}
}

func (c *InsightsClient) DetectRecurringPatterns(ctx context.Context, req *connect.Request[DetectRecurringPatternsRequest]) (*connect.Response[DetectRecurringPatternsResponse], error) {
	return c.detectRecurringPatterns.CallUnary(ctx, req)
}

func (c *InsightsClient) AnalyzeMonthlySeries(ctx context.Context, req *connect.Request[AnalyzeMonthlySeriesRequest]) (*connect.Response[AnalyzeMonthlySeriesResponse], error) {
	return c.analyzeMonthlySeries.CallUnary(ctx, req)
}

func (c *InsightsClient) EstimateInitialBalance(ctx context.Context, req *connect.Request[EstimateInitialBalanceRequest]) (*connect.Response[EstimateInitialBalanceResponse], error) {
	return c.estimateInitialBalance.CallUnary(ctx, req)
}

func (c *InsightsClient) ProjectCashFlow(ctx context.Context, req *connect.Request[ProjectCashFlowRequest]) (*connect.Response[ProjectCashFlowResponse], error) {
	return c.projectCashFlow.CallUnary(ctx, req)
}

func (c *InsightsClient) GetPredictiveAnalysis(ctx context.Context, req *connect.Request[GetPredictiveAnalysisRequest]) (*connect.Response[GetPredictiveAnalysisResponse], error) {
	return c.getPredictiveAnalysis.CallUnary(ctx, req)
}

func (c *InsightsClient) GetInsights(ctx context.Context, req *connect.Request[GetInsightsRequest]) (*connect.Response[GetInsightsResponse], error) {
	return c.getInsights.CallUnary(ctx, req)
}
