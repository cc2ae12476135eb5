package insights

import (
	"math"
	"time"
)

// Regression is an ordinary least-squares fit y = Slope*x + Intercept.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"rSquared"`
}

// Predict evaluates the fitted line at x.
func (r Regression) Predict(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// LinearRegression fits xs against ys. Fewer than two points or no variance in
// xs yields the zero Regression. A flat ys yields slope 0, the mean as
// intercept and an R² of 0.
func LinearRegression(xs, ys []float64) Regression {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return Regression{}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}
	fn := float64(n)
	denom := fn*sumX2 - sumX*sumX
	if denom == 0 {
		return Regression{}
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		predicted := slope*xs[i] + intercept
		ssRes += (ys[i] - predicted) * (ys[i] - predicted)
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
	}
	if ssTot == 0 {
		return Regression{Slope: 0, Intercept: meanY, RSquared: 0}
	}

	r2 := 1 - ssRes/ssTot
	return Regression{Slope: slope, Intercept: intercept, RSquared: clamp(r2, 0, 1)}
}

// RegressionOverIndex fits values against x = 0, 1, 2, ...
func RegressionOverIndex(values []float64) Regression {
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	return LinearRegression(xs, values)
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance, 0 for fewer than two values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// CoefficientOfVariation returns stddev/|mean|, 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / math.Abs(mean)
}

// Seasonality describes how the current calendar month compares to the rest
// of the year.
type Seasonality struct {
	HasSeasonality bool    `json:"hasSeasonality"`
	Factor         float64 `json:"factor"`
	// Confidence is the spread between the strongest and weakest calendar
	// month relative to the overall mean, as a percentage.
	Confidence     float64 `json:"confidence"`
	DistinctMonths int     `json:"distinctMonths"`
	// TargetObserved is set when the target month has data, so Factor is
	// measured rather than the neutral 1.
	TargetObserved bool    `json:"targetObserved"`
}

// DetectSeasonality averages balance magnitude per calendar month and reports
// the factor for target. At least three distinct calendar months are needed.
func DetectSeasonality(points []MonthlyDataPoint, target time.Month) Seasonality {
	neutral := Seasonality{Factor: 1}

	byMonth := make(map[time.Month][]float64)
	for _, p := range points {
		m := p.Date.Month()
		byMonth[m] = append(byMonth[m], math.Abs(p.Balance))
	}
	neutral.DistinctMonths = len(byMonth)
	if len(byMonth) < 3 {
		return neutral
	}

	averages := make(map[time.Month]float64, len(byMonth))
	var all []float64
	for m, values := range byMonth {
		avg := Mean(values)
		averages[m] = avg
		all = append(all, avg)
	}
	globalMean := Mean(all)
	if globalMean == 0 {
		return neutral
	}

	maxAvg, minAvg := all[0], all[0]
	for _, v := range all[1:] {
		maxAvg = math.Max(maxAvg, v)
		minAvg = math.Min(minAvg, v)
	}

	s := Seasonality{
		Factor:         1,
		Confidence:     clamp((maxAvg-minAvg)/globalMean*100, 0, 100),
		DistinctMonths: len(byMonth),
	}
	if avg, ok := averages[target]; ok {
		s.Factor = clamp(avg/globalMean, 0.5, 2)
		s.TargetObserved = true
	}
	s.HasSeasonality = s.Confidence > 0
	return s
}

// Volatility is the stddev of monthly balances over their mean magnitude,
// clamped to [0,1].
func Volatility(points []MonthlyDataPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	balances := make([]float64, len(points))
	magnitudes := make([]float64, len(points))
	for i, p := range points {
		balances[i] = p.Balance
		magnitudes[i] = math.Abs(p.Balance)
	}
	meanMag := Mean(magnitudes)
	if meanMag == 0 {
		return 0
	}
	return clamp(StdDev(balances)/meanMag, 0, 1)
}

// Cycle is a repeating pattern of the given length in months.
type Cycle struct {
	Detected    bool    `json:"detected"`
	Length      int     `json:"length"`
	Correlation float64 `json:"correlation"`
}

// cycleLengths are the candidate cycle lengths in months.
var cycleLengths = []int{3, 4, 6}

// minCyclePairs is the minimum number of lagged pairs needed to score a cycle.
const minCyclePairs = 3

// DetectCycle compares each value with the value N months earlier for
// N in {3,4,6} and accepts the best-correlating length above 0.7.
func DetectCycle(values []float64) Cycle {
	var best Cycle
	for _, n := range cycleLengths {
		if len(values)-n < minCyclePairs {
			continue
		}
		corr := pearson(values[n:], values[:len(values)-n])
		if corr > best.Correlation {
			best = Cycle{Length: n, Correlation: corr}
		}
	}
	best.Detected = best.Correlation > 0.7
	if !best.Detected {
		return Cycle{Correlation: best.Correlation}
	}
	return best
}

func pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	meanA, meanB := Mean(a), Mean(b)
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// Trend labels.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// MovingAverageTrend is the direction of the last three values against the
// window before them.
type MovingAverageTrend struct {
	Direction  string  `json:"direction"`
	Recent     float64 `json:"recent"`
	Previous   float64 `json:"previous"`
	Difference float64 `json:"difference"`
}

const (
	movingAverageWindow = 3
	trendThreshold      = 0.1
)

// DetectMovingAverageTrend compares the average of the last three values to
// the average of up to three values before them. The normalized difference
// must exceed 0.1 to count as a direction.
func DetectMovingAverageTrend(values []float64) MovingAverageTrend {
	if len(values) <= movingAverageWindow {
		return MovingAverageTrend{Direction: TrendStable}
	}

	recentWindow := values[len(values)-movingAverageWindow:]
	prevEnd := len(values) - movingAverageWindow
	prevStart := prevEnd - movingAverageWindow
	if prevStart < 0 {
		prevStart = 0
	}
	previousWindow := values[prevStart:prevEnd]

	t := MovingAverageTrend{
		Direction: TrendStable,
		Recent:    Mean(recentWindow),
		Previous:  Mean(previousWindow),
	}
	switch {
	case t.Previous != 0:
		t.Difference = (t.Recent - t.Previous) / math.Abs(t.Previous)
	case t.Recent > 0:
		t.Difference = 1
	case t.Recent < 0:
		t.Difference = -1
	}

	if t.Difference > trendThreshold {
		t.Direction = TrendUp
	} else if t.Difference < -trendThreshold {
		t.Direction = TrendDown
	}
	return t
}

// MonthlyAnalysis bundles the toolkit outputs for one monthly series.
type MonthlyAnalysis struct {
	IncomeRegression  Regression         `json:"incomeRegression"`
	ExpenseRegression Regression         `json:"expenseRegression"`
	BalanceRegression Regression         `json:"balanceRegression"`
	Seasonality       Seasonality        `json:"seasonality"`
	Volatility        float64            `json:"volatility"`
	Cycle             Cycle              `json:"cycle"`
	Trend             MovingAverageTrend `json:"trend"`
}

// AnalyzeMonthlySeries runs every toolkit primitive over points, which must be
// in chronological order. Seasonality is evaluated for the calendar month of
// now.
func AnalyzeMonthlySeries(points []MonthlyDataPoint, now time.Time) MonthlyAnalysis {
	income := make([]float64, len(points))
	expenses := make([]float64, len(points))
	balances := make([]float64, len(points))
	for i, p := range points {
		income[i] = p.Income
		expenses[i] = p.Expenses
		balances[i] = p.Balance
	}

	return MonthlyAnalysis{
		IncomeRegression:  RegressionOverIndex(income),
		ExpenseRegression: RegressionOverIndex(expenses),
		BalanceRegression: RegressionOverIndex(balances),
		Seasonality:       DetectSeasonality(points, now.Month()),
		Volatility:        Volatility(points),
		Cycle:             DetectCycle(balances),
		Trend:             DetectMovingAverageTrend(balances),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// round2 rounds to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
