package insights

import (
	"fmt"
	"math"
	"time"
)

// MinMonthsForPrediction is the history needed for a full prediction.
const MinMonthsForPrediction = 3

// PredictionWeights are the blend weights of the three forecast signals.
// They always sum to 1.
type PredictionWeights struct {
	Recurring  float64 `json:"recurring"`
	Regression float64 `json:"regression"`
	Recent     float64 `json:"recent"`
}

// PredictiveAnalysis is the next-month forecast for one transaction window.
type PredictiveAnalysis struct {
	NextMonthIncome   float64            `json:"nextMonthIncome"`
	NextMonthExpenses float64            `json:"nextMonthExpenses"`
	NextMonthBalance  float64            `json:"nextMonthBalance"`
	Confidence        float64            `json:"confidence"`
	Trend             string             `json:"trend"`
	Recommendation    string             `json:"recommendation"`
	RecurringPatterns []RecurringPattern `json:"recurringPatterns"`

	MonthsAnalyzed   int               `json:"monthsAnalyzed"`
	Months           []MonthlyDataPoint `json:"months"`
	Analysis         MonthlyAnalysis   `json:"analysis"`
	SeasonalApplied  bool              `json:"seasonalApplied"`
	IncomeWeights    PredictionWeights `json:"incomeWeights"`
	ExpenseWeights   PredictionWeights `json:"expenseWeights"`
	Balance          BalanceEstimate   `json:"balance"`
	CashFlow         CashFlowSummary   `json:"cashFlow"`
	Projection       []ProjectionPoint `json:"projection"`
	HasCashFlowAlert bool              `json:"hasCashFlowAlert"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// PredictiveOptions carries the collaborators of BuildPredictiveAnalysis.
type PredictiveOptions struct {
	// Clock supplies "now". Defaults to the system clock.
	Clock Clock
	// Random drives the alert-day simulation. Nil disables the random shock.
	Random RandomSource
	// Cache memoizes aggregation and detection. Keys include a fingerprint of
	// the transactions, so one cache may serve several windows.
	Cache *Cache
	// Detector defaults to the value-first detector.
	Detector *Detector
}

const (
	recentWindowMonths  = 3
	lastMonthSwing      = 0.25
	seasonalMinimum     = 20.0
	trendSlopeThreshold = 100.0
	trendMinRSquared    = 0.3
	highVolatility      = 0.5
	manyPatterns        = 5
)

// Confidence bounds of the overall prediction.
const (
	predictionConfidenceFloor = 15.0
	predictionConfidenceCeil  = 95.0
)

// BuildPredictiveAnalysis forecasts next month's income, expenses and balance.
// With fewer than three months of history it returns a low-confidence result
// echoing the latest month.
func BuildPredictiveAnalysis(txs []Transaction, opts PredictiveOptions) PredictiveAnalysis {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	detector := opts.Detector
	if detector == nil {
		detector = NewDetector(ValueFirst)
	}
	now := clock.Now()

	months := AggregateMonthlyCached(opts.Cache, txs)
	patterns := detector.DetectCached(opts.Cache, txs, now)

	balance := EstimateInitialBalance(txs, clock)
	summary := SummarizeCashFlow(patterns, balance.InitialBalance, opts.Random)
	projection := ProjectCashFlow(patterns, balance.InitialBalance, now)

	pa := PredictiveAnalysis{
		RecurringPatterns: patterns,
		MonthsAnalyzed:    len(months),
		Months:            months,
		Analysis:          AnalyzeMonthlySeries(months, now),
		Balance:           balance,
		CashFlow:          summary,
		Projection:        projection,
		HasCashFlowAlert:  len(summary.AlertDays) > 0 || LowestBalance(projection) < 0,
		GeneratedAt:       now,
		Trend:             TrendStable,
	}

	if len(months) < MinMonthsForPrediction {
		return degenerateAnalysis(pa)
	}

	n := len(months)
	last := months[n-1]
	analysis := pa.Analysis

	incomes := make([]float64, n)
	expenses := make([]float64, n)
	for i, m := range months {
		incomes[i] = m.Income
		expenses[i] = m.Expenses
	}
	recentIncome := Mean(incomes[max(0, n-recentWindowMonths):])
	recentExpenses := Mean(expenses[max(0, n-recentWindowMonths):])

	recurringIncome, recurringExpenses := RecurringTotals(patterns)
	avgR2 := (analysis.IncomeRegression.RSquared + analysis.ExpenseRegression.RSquared) / 2

	pa.IncomeWeights = blendWeights(averageConfidence(patterns, Income), avgR2)
	pa.ExpenseWeights = blendWeights(averageConfidence(patterns, Expense), avgR2)

	income := pa.IncomeWeights.blend(recurringIncome, analysis.IncomeRegression.Predict(float64(n)), recentIncome)
	spend := pa.ExpenseWeights.blend(recurringExpenses, analysis.ExpenseRegression.Predict(float64(n)), recentExpenses)

	// The factor corrects only when the current month was actually observed.
	if analysis.Seasonality.TargetObserved && analysis.Seasonality.Confidence > seasonalMinimum {
		income *= analysis.Seasonality.Factor
		spend *= analysis.Seasonality.Factor
		pa.SeasonalApplied = true
	}

	pa.NextMonthIncome = round2(clampToLastMonth(income, last.Income, recentIncome))
	pa.NextMonthExpenses = round2(clampToLastMonth(spend, last.Expenses, recentExpenses))
	pa.NextMonthBalance = round2(pa.NextMonthIncome - pa.NextMonthExpenses)

	pa.Confidence = predictionConfidence(n, avgR2, len(patterns), analysis, pa.SeasonalApplied)
	pa.Trend = trendLabel(analysis)
	pa.Recommendation = recommend(pa)
	return pa
}

func degenerateAnalysis(pa PredictiveAnalysis) PredictiveAnalysis {
	if n := len(pa.Months); n > 0 {
		latest := pa.Months[n-1]
		pa.NextMonthIncome = latest.Income
		pa.NextMonthExpenses = latest.Expenses
		pa.NextMonthBalance = latest.Balance
	}
	// 15 with no history, 25 with two months.
	pa.Confidence = predictionConfidenceFloor + 5*float64(len(pa.Months))
	pa.Trend = TrendStable
	pa.Recommendation = fmt.Sprintf(
		"Only %d month(s) of history available. Keep recording transactions; forecasts need at least %d months.",
		len(pa.Months), MinMonthsForPrediction)
	return pa
}

// blendWeights gives recurring patterns up to 50% and the regression up to
// 35%, leaving the remainder to the recent average.
func blendWeights(patternConfidence, avgR2 float64) PredictionWeights {
	w := PredictionWeights{
		Recurring:  math.Min(0.5, patternConfidence*0.7),
		Regression: math.Min(0.35, avgR2*0.5),
	}
	w.Recent = 1 - w.Recurring - w.Regression
	return w
}

func (w PredictionWeights) blend(recurring, regression, recent float64) float64 {
	return w.Recurring*recurring + w.Regression*regression + w.Recent*recent
}

// averageConfidence is the mean 0..1 confidence of the patterns of type t,
// 0 when there are none.
func averageConfidence(patterns []RecurringPattern, t TransactionType) float64 {
	var sum float64
	var n int
	for _, p := range patterns {
		if p.Type == t {
			sum += p.ConfidenceRatio()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// clampToLastMonth keeps a prediction within ±25% of the last observed
// month. An empty last month falls back to the recent average as anchor.
func clampToLastMonth(prediction, last, recent float64) float64 {
	anchor := last
	if anchor == 0 {
		anchor = recent
	}
	if anchor <= 0 {
		return math.Max(0, prediction)
	}
	return clamp(prediction, anchor*(1-lastMonthSwing), anchor*(1+lastMonthSwing))
}

func predictionConfidence(months int, avgR2 float64, patterns int, a MonthlyAnalysis, seasonal bool) float64 {
	score := 40.0
	score += math.Min(25, 2.5*float64(months))
	score += avgR2 * 20
	score += math.Min(25, 2.5*float64(patterns))
	if seasonal {
		score += math.Min(15, a.Seasonality.Confidence*0.15)
	}
	score -= math.Min(30, a.Volatility*30)
	return round2(clamp(score, predictionConfidenceFloor, predictionConfidenceCeil))
}

// trendLabel trusts the balance regression only when it is both steep and a
// reasonable fit, otherwise it falls back to the moving average.
func trendLabel(a MonthlyAnalysis) string {
	reg := a.BalanceRegression
	if math.Abs(reg.Slope) > trendSlopeThreshold && reg.RSquared > trendMinRSquared {
		if reg.Slope > 0 {
			return TrendUp
		}
		return TrendDown
	}
	if a.Trend.Direction == "" {
		return TrendStable
	}
	return a.Trend.Direction
}

// recommend picks the message by priority: cash-flow alert, positive trend,
// negative trend, volatility, many commitments, then a stability note.
func recommend(pa PredictiveAnalysis) string {
	switch {
	case pa.HasCashFlowAlert:
		return fmt.Sprintf("Cash-flow alert: your balance may go negative within %d days. Review upcoming expenses or move funds before then.",
			firstAlertDay(pa))
	case pa.Trend == TrendUp:
		return fmt.Sprintf("Your balance is trending up. Consider moving part of the expected %.2f surplus into savings.",
			math.Max(0, pa.NextMonthBalance))
	case pa.Trend == TrendDown:
		return "Your balance is trending down. Look at the expense categories that grew the most over the last months."
	case pa.Analysis.Volatility > highVolatility:
		return "Your monthly results vary a lot. Building an emergency buffer would smooth out the swings."
	case len(pa.RecurringPatterns) >= manyPatterns:
		return fmt.Sprintf("You have %d recurring commitments. Review subscriptions and bills you no longer use.",
			len(pa.RecurringPatterns))
	default:
		return "Your finances look stable. Keep tracking to improve forecast accuracy."
	}
}

func firstAlertDay(pa PredictiveAnalysis) int {
	first := summaryHorizonDays
	if len(pa.CashFlow.AlertDays) > 0 {
		first = pa.CashFlow.AlertDays[0]
	}
	for _, p := range pa.Projection {
		if p.Balance < 0 {
			if p.Day < first {
				first = p.Day
			}
			break
		}
	}
	return first
}
