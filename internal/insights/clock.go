package insights

import (
	"math/rand"
	"time"
)

// Clock supplies "now" for recency and age calculations.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always reports the same instant.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// SystemClock reads the wall clock. Only the outer layers should use it.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// RandomSource feeds the alert-day simulation. *rand.Rand satisfies it.
type RandomSource interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

// NewSeededRandom returns a deterministic RandomSource.
func NewSeededRandom(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}
