package insights

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SeasonalTag classifies the natural period of a pattern.
type SeasonalTag string

const (
	SeasonalWeekly    SeasonalTag = "weekly"
	SeasonalMonthly   SeasonalTag = "monthly"
	SeasonalQuarterly SeasonalTag = "quarterly"
	SeasonalNone      SeasonalTag = "none"
)

// RecurringPattern describes one accepted recurring group. Confidence is a
// score in [30,95]; Trend is in [-1,1] and Variability in [0,1].
type RecurringPattern struct {
	Description      string          `json:"description"`
	AverageAmount    float64         `json:"averageAmount"`
	Frequency        Frequency       `json:"frequency"`
	IntervalDays     int             `json:"intervalDays"`
	Confidence       float64         `json:"confidence"`
	Category         string          `json:"category"`
	Type             TransactionType `json:"type"`
	NextExpectedDate time.Time       `json:"nextExpectedDate"`
	Trend            float64         `json:"trend"`
	Variability      float64         `json:"variability"`
	Seasonality      SeasonalTag     `json:"seasonality"`
	MinAmount        float64         `json:"minAmount"`
	MaxAmount        float64         `json:"maxAmount"`
	TransactionCount int             `json:"transactionCount"`
}

// MonthlyEquivalent converts the average amount into a per-month figure.
func (p RecurringPattern) MonthlyEquivalent() float64 {
	return p.AverageAmount * p.Frequency.monthlyMultiplier()
}

// SignedMonthlyEquivalent is positive for income and negative for expenses.
func (p RecurringPattern) SignedMonthlyEquivalent() float64 {
	return p.Type.sign() * p.MonthlyEquivalent()
}

// ConfidenceRatio returns Confidence on a 0..1 scale.
func (p RecurringPattern) ConfidenceRatio() float64 {
	return p.Confidence / 100
}

// GroupingStrategy selects the grouper and the cadence rule used together.
type GroupingStrategy int

const (
	// DescriptionFirst groups by normalized description then 15% value
	// buckets, with the lenient cadence rule.
	DescriptionFirst GroupingStrategy = iota
	// ValueFirst groups by rounded value and description prefix, with the
	// strict cadence rule.
	ValueFirst
)

func (s GroupingStrategy) String() string {
	if s == ValueFirst {
		return "value-first"
	}
	return "description-first"
}

// Detector turns a transaction window into recurring patterns.
type Detector struct {
	Strategy    GroupingStrategy
	Categorizer *Categorizer
}

// NewDetector returns a detector with the default categorizer.
func NewDetector(strategy GroupingStrategy) *Detector {
	return &Detector{Strategy: strategy, Categorizer: DefaultCategorizer()}
}

// DetectRecurringPatterns runs the description-first detector.
func DetectRecurringPatterns(txs []Transaction, now time.Time) []RecurringPattern {
	return NewDetector(DescriptionFirst).Detect(txs, now)
}

// Detect groups, classifies and describes txs. now drives the recency bonus
// and the age penalty. Output is ordered by confidence, highest first.
func (d *Detector) Detect(txs []Transaction, now time.Time) []RecurringPattern {
	var (
		groups []TransactionGroup
		rule   CadenceRule
	)
	switch d.Strategy {
	case ValueFirst:
		groups, rule = GroupByValue(txs), CadenceStrict
	default:
		groups, rule = GroupByDescription(txs), CadenceLenient
	}

	patterns := make([]RecurringPattern, 0, len(groups))
	for _, g := range groups {
		c := Classify(g.Transactions, rule)
		if !c.Recurring {
			continue
		}
		patterns = append(patterns, d.describe(g, c, rule, now))
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		if patterns[i].AverageAmount != patterns[j].AverageAmount {
			return patterns[i].AverageAmount > patterns[j].AverageAmount
		}
		return patterns[i].Description < patterns[j].Description
	})
	return patterns
}

func (d *Detector) describe(g TransactionGroup, c Classification, rule CadenceRule, now time.Time) RecurringPattern {
	txs := g.Transactions
	amounts := make([]float64, len(txs))
	minAmount, maxAmount := math.Inf(1), math.Inf(-1)
	for i, tx := range txs {
		amounts[i] = tx.Amount
		minAmount = math.Min(minAmount, tx.Amount)
		maxAmount = math.Max(maxAmount, tx.Amount)
	}
	mean := Mean(amounts)
	cv := CoefficientOfVariation(amounts)

	first, last := txs[0], txs[len(txs)-1]
	daysSinceLast := math.Max(0, daysBetween(last.Date, now))

	category := mostCommonCategory(txs)
	if category == "" {
		category = d.Categorizer.Categorize(first.Description)
	}

	return RecurringPattern{
		Description:      first.Description,
		AverageAmount:    round2(mean),
		Frequency:        c.Frequency,
		IntervalDays:     int(math.Round(c.MeanInterval)),
		Confidence:       patternConfidence(len(txs), c, rule, cv, daysSinceLast),
		Category:         category,
		Type:             g.Type,
		NextExpectedDate: Day(last.Date).AddDate(0, 0, int(math.Round(c.MeanInterval))),
		Trend:            amountTrend(amounts, mean),
		Variability:      math.Min(1, cv),
		Seasonality:      seasonalTag(c.MeanInterval),
		MinAmount:        minAmount,
		MaxAmount:        maxAmount,
		TransactionCount: len(txs),
	}
}

const (
	confidenceBase  = 40.0
	confidenceFloor = 30.0
	confidenceCeil  = 95.0
)

// patternConfidence scores an accepted group. The result never reaches 0 or
// 100: an accepted pattern is never certain and never fully discounted.
func patternConfidence(count int, c Classification, rule CadenceRule, amountCV, daysSinceLast float64) float64 {
	score := confidenceBase

	// Sample size.
	score += math.Min(25, float64(count-1)*8)

	// Interval consistency.
	consistency := math.Max(0, 1-c.IntervalCV)
	if rule == CadenceStrict {
		score += math.Min(30, consistency*40)
	} else {
		score += math.Min(30, c.MatchRatio*20+consistency*10)
	}

	score += regularityBonus(c.Frequency, c.MeanInterval)

	// Amount consistency.
	score += math.Min(15, math.Max(0, 1-amountCV)*15)

	// Recency.
	switch {
	case daysSinceLast <= 7:
		score += 10
	case daysSinceLast <= 30:
		score += 5
	}
	if daysSinceLast > 60 {
		score -= math.Min(10, (daysSinceLast-60)/10)
	}

	return round2(clamp(score, confidenceFloor, confidenceCeil))
}

// idealIntervals are the sub-ranges of each frequency that earn the full
// regularity bonus.
var idealIntervals = map[Frequency]struct {
	min, max, bonus float64
}{
	Weekly:    {6, 8, 20},
	Monthly:   {28, 32, 20},
	Quarterly: {85, 95, 15},
}

func regularityBonus(f Frequency, meanInterval float64) float64 {
	if ideal, ok := idealIntervals[f]; ok && meanInterval >= ideal.min && meanInterval <= ideal.max {
		return ideal.bonus
	}
	return 10
}

// amountTrend is the regression slope of amounts by occurrence, relative to
// the mean amount.
func amountTrend(amounts []float64, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	slope := RegressionOverIndex(amounts).Slope
	return round2(clamp(slope/mean, -1, 1))
}

// seasonalTargets are tested in order with a 20% tolerance.
var seasonalTargets = []struct {
	days float64
	tag  SeasonalTag
}{
	{7, SeasonalWeekly},
	{30, SeasonalMonthly},
	{90, SeasonalQuarterly},
}

func seasonalTag(meanInterval float64) SeasonalTag {
	for _, t := range seasonalTargets {
		if math.Abs(meanInterval-t.days) <= t.days*0.2 {
			return t.tag
		}
	}
	return SeasonalNone
}

// mostCommonCategory returns the most frequent non-empty category, breaking
// ties alphabetically. It returns "" when no transaction has one.
func mostCommonCategory(txs []Transaction) string {
	counts := make(map[string]int)
	for _, tx := range txs {
		if tx.Category != "" {
			counts[tx.Category]++
		}
	}
	best, bestCount := "", 0
	for cat, n := range counts {
		if n > bestCount || (n == bestCount && cat < best) {
			best, bestCount = cat, n
		}
	}
	return best
}

// String is used in logs.
func (p RecurringPattern) String() string {
	return fmt.Sprintf("%s %s %.2f every %dd (%.0f%%)", p.Type, p.Frequency, p.AverageAmount, p.IntervalDays, p.Confidence)
}
