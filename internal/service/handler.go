package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// ServiceName is the fully-qualified name of the insights service.
const ServiceName = "insights.v1.InsightsService"

// Procedure paths of the insights service.
const (
	DetectRecurringPatternsProcedure = "/" + ServiceName + "/DetectRecurringPatterns"
	AnalyzeMonthlySeriesProcedure    = "/" + ServiceName + "/AnalyzeMonthlySeries"
	EstimateInitialBalanceProcedure  = "/" + ServiceName + "/EstimateInitialBalance"
	ProjectCashFlowProcedure         = "/" + ServiceName + "/ProjectCashFlow"
	GetPredictiveAnalysisProcedure   = "/" + ServiceName + "/GetPredictiveAnalysis"
	GetInsightsProcedure             = "/" + ServiceName + "/GetInsights"
)

// InsightsServiceHandler is implemented by *InsightsService.
type InsightsServiceHandler interface {
	DetectRecurringPatterns(context.Context, *connect.Request[DetectRecurringPatternsRequest]) (*connect.Response[DetectRecurringPatternsResponse], error)
	AnalyzeMonthlySeries(context.Context, *connect.Request[AnalyzeMonthlySeriesRequest]) (*connect.Response[AnalyzeMonthlySeriesResponse], error)
	EstimateInitialBalance(context.Context, *connect.Request[EstimateInitialBalanceRequest]) (*connect.Response[EstimateInitialBalanceResponse], error)
	ProjectCashFlow(context.Context, *connect.Request[ProjectCashFlowRequest]) (*connect.Response[ProjectCashFlowResponse], error)
	GetPredictiveAnalysis(context.Context, *connect.Request[GetPredictiveAnalysisRequest]) (*connect.Response[GetPredictiveAnalysisResponse], error)
	GetInsights(context.Context, *connect.Request[GetInsightsRequest]) (*connect.Response[GetInsightsResponse], error)
}

// NewInsightsServiceHandler builds an HTTP handler serving every insights
// procedure with the JSON codec. It returns the path to mount it on.
func NewInsightsServiceHandler(svc InsightsServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	handlers := map[string]http.Handler{
		DetectRecurringPatternsProcedure: connect.NewUnaryHandler(DetectRecurringPatternsProcedure, svc.DetectRecurringPatterns, opts...),
		AnalyzeMonthlySeriesProcedure:    connect.NewUnaryHandler(AnalyzeMonthlySeriesProcedure, svc.AnalyzeMonthlySeries, opts...),
		EstimateInitialBalanceProcedure:  connect.NewUnaryHandler(EstimateInitialBalanceProcedure, svc.EstimateInitialBalance, opts...),
		ProjectCashFlowProcedure:         connect.NewUnaryHandler(ProjectCashFlowProcedure, svc.ProjectCashFlow, opts...),
		GetPredictiveAnalysisProcedure:   connect.NewUnaryHandler(GetPredictiveAnalysisProcedure, svc.GetPredictiveAnalysis, opts...),
		GetInsightsProcedure:             connect.NewUnaryHandler(GetInsightsProcedure, svc.GetInsights, opts...),
	}

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
