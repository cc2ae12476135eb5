package insights

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache memoizes intermediate results for the lifetime of one request. It
// must be created per request and is not safe for concurrent use. A nil
// *Cache disables memoization.
type Cache struct {
	values map[string]any
	hits   int
	misses int
}

// NewCache returns an empty request cache.
func NewCache() *Cache {
	return &Cache{values: make(map[string]any)}
}

// Memo returns the value stored under key, computing and storing it with fn
// on a miss. Errors are returned as-is and not cached.
func Memo[T any](c *Cache, key string, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}
	if v, ok := c.values[key]; ok {
		if typed, ok := v.(T); ok {
			c.hits++
			return typed, nil
		}
	}
	c.misses++
	v, err := fn()
	if err != nil {
		return v, err
	}
	c.values[key] = v
	return v, nil
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	return c.hits, c.misses
}

// memoPure is Memo for computations that cannot fail.
func memoPure[T any](c *Cache, key string, fn func() T) T {
	v, _ := Memo(c, key, func() (T, error) { return fn(), nil })
	return v
}

// Fingerprint identifies a transaction set. Cache keys derived from it keep
// results of different windows apart when a cache is shared.
func Fingerprint(txs []Transaction) string {
	d := xxhash.New()
	for _, tx := range txs {
		fmt.Fprintf(d, "%s|%d|%g|%d|%s|%s\n", tx.ID, tx.Date.Unix(), tx.Amount, tx.Type, tx.Description, tx.Category)
	}
	return strconv.FormatUint(d.Sum64(), 16) + "/" + strconv.Itoa(len(txs))
}

// AggregateMonthlyCached is AggregateMonthly memoized in c.
func AggregateMonthlyCached(c *Cache, txs []Transaction) []MonthlyDataPoint {
	if c == nil {
		return AggregateMonthly(txs)
	}
	return memoPure(c, "monthly/"+Fingerprint(txs), func() []MonthlyDataPoint {
		return AggregateMonthly(txs)
	})
}

// DetectCached is Detect memoized in c, keyed by strategy, the day of now and
// the transaction set. Detectors sharing a cache must share a categorizer.
func (d *Detector) DetectCached(c *Cache, txs []Transaction, now time.Time) []RecurringPattern {
	if c == nil {
		return d.Detect(txs, now)
	}
	key := "patterns/" + d.Strategy.String() + "/" + Day(now).Format(time.DateOnly) + "/" + Fingerprint(txs)
	return memoPure(c, key, func() []RecurringPattern {
		return d.Detect(txs, now)
	})
}
