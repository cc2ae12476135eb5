package insights

import (
	"fmt"
	"math"
)

// Frequency is the recurrence cadence of a pattern.
type Frequency int

const (
	FrequencyUnknown Frequency = iota
	Weekly
	Monthly
	Quarterly
)

func (f Frequency) String() string {
	switch f {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	default:
		return "unknown"
	}
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(b []byte) error {
	switch string(b) {
	case "weekly":
		*f = Weekly
	case "monthly":
		*f = Monthly
	case "quarterly":
		*f = Quarterly
	case "unknown":
		*f = FrequencyUnknown
	default:
		return fmt.Errorf("unknown frequency %q", string(b))
	}
	return nil
}

// monthlyMultiplier converts one occurrence into a monthly equivalent.
func (f Frequency) monthlyMultiplier() float64 {
	switch f {
	case Weekly:
		return 4.33
	case Monthly:
		return 1
	case Quarterly:
		return 1.0 / 3
	default:
		return 0
	}
}

// intervalRange maps an inclusive day range to a frequency. Fortnightly and
// bimonthly cadences fold into monthly.
type intervalRange struct {
	min, max  float64
	frequency Frequency
}

var intervalRanges = []intervalRange{
	{5, 10, Weekly},
	{11, 24, Monthly},
	{25, 35, Monthly},
	{36, 79, Monthly},
	{80, 100, Quarterly},
}

// FrequencyForInterval classifies a mean interval in days. The interval is
// rounded to whole days before the inclusive ranges are tested.
func FrequencyForInterval(days float64) Frequency {
	d := math.Round(days)
	for _, r := range intervalRanges {
		if d >= r.min && d <= r.max {
			return r.frequency
		}
	}
	return FrequencyUnknown
}

// namedCadence is a well-known billing interval with a tolerance in days.
type namedCadence struct {
	days, tolerance float64
}

var namedCadences = []namedCadence{
	{7, 2},
	{14, 3},
	{30, 5},
	{60, 7},
}

// CadenceRule selects how strictly a group's intervals must agree.
type CadenceRule int

const (
	// CadenceStrict accepts intervals with a coefficient of variation of at
	// most 0.5.
	CadenceStrict CadenceRule = iota
	// CadenceLenient also accepts when 70% of the intervals match a named
	// cadence or sit within 30% of their own mean.
	CadenceLenient
)

const (
	maxIntervalCV       = 0.5
	lenientMatchRatio   = 0.7
	selfConsistencyBand = 0.3
)

// Classification is the verdict of the frequency classifier for one group.
type Classification struct {
	Recurring      bool
	Frequency      Frequency
	Intervals      []float64
	MeanInterval   float64
	IntervalStdDev float64
	// IntervalCV is IntervalStdDev / MeanInterval.
	IntervalCV float64
	// MatchRatio is the share of intervals that satisfied the lenient rule.
	MatchRatio float64
}

// Intervals returns the positive day gaps between consecutive transactions.
// Same-day repeats contribute no interval.
func Intervals(txs []Transaction) []float64 {
	ordered := sortedByDate(txs)
	var out []float64
	for i := 1; i < len(ordered); i++ {
		if d := daysBetween(ordered[i-1].Date, ordered[i].Date); d > 0 {
			out = append(out, d)
		}
	}
	return out
}

// minIntervals is the fewest gaps either rule will judge.
const minIntervals = 2

// Classify decides whether the group recurs and at which cadence.
func Classify(txs []Transaction, rule CadenceRule) Classification {
	c := Classification{Intervals: Intervals(txs)}
	if len(c.Intervals) < minIntervals {
		return c
	}

	c.MeanInterval = Mean(c.Intervals)
	c.IntervalStdDev = StdDev(c.Intervals)
	if c.MeanInterval <= 0 {
		return c
	}
	c.IntervalCV = c.IntervalStdDev / c.MeanInterval
	steady := c.IntervalCV <= maxIntervalCV

	switch rule {
	case CadenceStrict:
		if !steady {
			return c
		}
		c.MatchRatio = 1
	case CadenceLenient:
		named := namedCadenceRatio(c.Intervals)
		self := selfConsistencyRatio(c.Intervals, c.MeanInterval)
		c.MatchRatio = math.Max(named, self)
		if !steady && c.MatchRatio < lenientMatchRatio {
			return c
		}
	}

	c.Frequency = FrequencyForInterval(c.MeanInterval)
	c.Recurring = c.Frequency != FrequencyUnknown
	return c
}

func namedCadenceRatio(intervals []float64) float64 {
	matched := 0
	for _, d := range intervals {
		for _, nc := range namedCadences {
			if math.Abs(d-nc.days) <= nc.tolerance {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(intervals))
}

func selfConsistencyRatio(intervals []float64, mean float64) float64 {
	matched := 0
	for _, d := range intervals {
		if math.Abs(d-mean) <= mean*selfConsistencyBand {
			matched++
		}
	}
	return float64(matched) / float64(len(intervals))
}
