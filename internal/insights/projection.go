package insights

import (
	"math"
	"sort"
	"time"
)

const (
	// daysPerMonth converts between monthly and daily flow.
	daysPerMonth = 30.44

	summaryHorizonDays = 90
	maxAlertDays       = 5
	// alertPerturbation is the ± relative shock applied to the simulated
	// balance when looking for negative days.
	alertPerturbation = 0.2
)

// CashFlowSummary is the scalar projection of recurring patterns.
type CashFlowSummary struct {
	InitialBalance  float64 `json:"initialBalance"`
	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	MonthlyFlow     float64 `json:"monthlyFlow"`
	Projected30     float64 `json:"projected30"`
	Projected60     float64 `json:"projected60"`
	Projected90     float64 `json:"projected90"`
	// AlertDays are day offsets (ascending) on which a perturbed balance went
	// negative during the 90-day simulation. At most five are reported.
	AlertDays []int `json:"alertDays"`
}

// RecurringTotals sums the monthly equivalents of income and expense patterns.
func RecurringTotals(patterns []RecurringPattern) (income, expenses float64) {
	for _, p := range patterns {
		switch p.Type {
		case Income:
			income += p.MonthlyEquivalent()
		case Expense:
			expenses += p.MonthlyEquivalent()
		}
	}
	return income, expenses
}

// SummarizeCashFlow extrapolates monthly recurring flow to 30/60/90 days and
// simulates 90 days with a ±20% random shock from rnd to flag alert days. A
// nil rnd disables the shock.
func SummarizeCashFlow(patterns []RecurringPattern, initialBalance float64, rnd RandomSource) CashFlowSummary {
	income, expenses := RecurringTotals(patterns)
	flow := income - expenses

	s := CashFlowSummary{
		InitialBalance:  round2(initialBalance),
		MonthlyIncome:   round2(income),
		MonthlyExpenses: round2(expenses),
		MonthlyFlow:     round2(flow),
		Projected30:     round2(initialBalance + flow),
		Projected60:     round2(initialBalance + 2*flow),
		Projected90:     round2(initialBalance + 3*flow),
		AlertDays:       []int{},
	}

	// The shock scales each day's movement. Scaling the balance itself could
	// never change its sign.
	dailyNet := income/daysPerMonth - expenses/daysPerMonth
	balance := initialBalance
	for day := 1; day <= summaryHorizonDays && len(s.AlertDays) < maxAlertDays; day++ {
		shock := 0.0
		if rnd != nil {
			shock = (rnd.Float64()*2 - 1) * alertPerturbation
		}
		balance += dailyNet * (1 + shock)
		if balance < 0 {
			s.AlertDays = append(s.AlertDays, day)
		}
	}
	sort.Ints(s.AlertDays)
	return s
}

// ProjectionPoint is one day of the projected balance trajectory.
type ProjectionPoint struct {
	Day         int       `json:"day"`
	Date        time.Time `json:"date"`
	Balance     float64   `json:"balance"`
	Pessimistic float64   `json:"pessimistic"`
	Optimistic  float64   `json:"optimistic"`
	Confidence  float64   `json:"confidence"`
}

const (
	// ProjectionHorizonDays is the length of the daily projection.
	ProjectionHorizonDays = 30

	projectionMinConfidence   = 0.5
	projectionMinTransactions = 3
	projectionMaxPatterns     = 8
	// projectionDiscount halves every expected daily impact.
	projectionDiscount = 0.5
	maxBandVariability = 0.2
	maxDailyChange     = 200.0
	confidenceDecay    = 20.0
	minDayConfidence   = 0.2
)

// DayConfidence is the confidence of the projection day days out:
// exp(-day/20) with a floor of 0.2.
func DayConfidence(day int) float64 {
	return math.Max(minDayConfidence, math.Exp(-float64(day)/confidenceDecay))
}

// projectionInput is a pattern selected for the daily projection.
type projectionInput struct {
	pattern    RecurringPattern
	confidence float64
	perDay     float64
}

// selectProjectionPatterns keeps patterns with confidence above 0.5 and at
// least three occurrences, ranked by confidence × daily impact, top 8.
func selectProjectionPatterns(patterns []RecurringPattern) []projectionInput {
	var inputs []projectionInput
	for _, p := range patterns {
		conf := p.ConfidenceRatio()
		if conf <= projectionMinConfidence || p.TransactionCount < projectionMinTransactions || p.IntervalDays <= 0 {
			continue
		}
		inputs = append(inputs, projectionInput{
			pattern:    p,
			confidence: conf,
			perDay:     p.AverageAmount / float64(p.IntervalDays),
		})
	}
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].confidence*inputs[i].perDay > inputs[j].confidence*inputs[j].perDay
	})
	if len(inputs) > projectionMaxPatterns {
		inputs = inputs[:projectionMaxPatterns]
	}
	return inputs
}

// occurrenceProbability ramps linearly from 0 to the pattern's confidence
// while day approaches the interval, then holds at min(1, confidence).
func occurrenceProbability(day, interval int, confidence float64) float64 {
	if day >= interval {
		return math.Min(1, confidence)
	}
	return float64(day) / float64(interval) * confidence
}

// ProjectCashFlow returns the daily balance trajectory for the next 30 days
// starting at start, including day 0. Each day the bands move by the base
// step ± the patterns' spread. Their daily moves are clamped asymmetrically
// so the pessimistic line can fall faster than it rises and the optimistic
// line the opposite.
func ProjectCashFlow(patterns []RecurringPattern, initialBalance float64, start time.Time) []ProjectionPoint {
	start = Day(start)
	inputs := selectProjectionPatterns(patterns)

	points := make([]ProjectionPoint, 0, ProjectionHorizonDays+1)
	balance, pessimistic, optimistic := initialBalance, initialBalance, initialBalance
	points = append(points, ProjectionPoint{
		Day:         0,
		Date:        start,
		Balance:     round2(balance),
		Pessimistic: round2(pessimistic),
		Optimistic:  round2(optimistic),
		Confidence:  1,
	})

	for day := 1; day <= ProjectionHorizonDays; day++ {
		var net, band float64
		for _, in := range inputs {
			prob := occurrenceProbability(day, in.pattern.IntervalDays, in.confidence)
			impact := in.pattern.Type.sign() * in.perDay * prob * projectionDiscount
			net += impact
			band += math.Abs(impact) * math.Min(in.pattern.Variability, maxBandVariability)
		}
		net = clamp(net, -maxDailyChange, maxDailyChange)

		balance += net
		pessimistic += clamp(net-band, -1.5*maxDailyChange, 0.5*maxDailyChange)
		optimistic += clamp(net+band, -0.5*maxDailyChange, 1.5*maxDailyChange)

		points = append(points, ProjectionPoint{
			Day:         day,
			Date:        start.AddDate(0, 0, day),
			Balance:     round2(balance),
			Pessimistic: round2(pessimistic),
			Optimistic:  round2(optimistic),
			Confidence:  round4(DayConfidence(day)),
		})
	}
	return points
}

// LowestBalance returns the smallest projected base balance.
func LowestBalance(points []ProjectionPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	lowest := points[0].Balance
	for _, p := range points[1:] {
		lowest = math.Min(lowest, p.Balance)
	}
	return lowest
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
