package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MinSampleSize is the smallest group that can be called recurring.
const MinSampleSize = 2

const (
	// valueTolerance is the relative distance from a bucket's first member
	// that still counts as the same amount.
	valueTolerance = 0.15
	// valueBucketWidth is the rounding step of value-first grouping keys.
	valueBucketWidth = 10
	// descriptionPrefixLen is how much of the description value-first
	// grouping compares.
	descriptionPrefixLen = 12
)

// TransactionGroup is a candidate recurring group produced by a grouper.
// Transactions are in chronological order.
type TransactionGroup struct {
	Key                   string
	NormalizedDescription string
	Type                  TransactionType
	Transactions          []Transaction
}

// sortedByDate returns a chronologically ordered copy of txs. Ties keep
// their input order.
func sortedByDate(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return Day(out[i].Date).Before(Day(out[j].Date))
	})
	return out
}

type valueBucket struct {
	reference float64
	members   []Transaction
}

// GroupByDescription partitions transactions by type and normalized
// description, then splits each partition into value buckets. A transaction
// joins the first bucket whose first member is within 15% of its amount,
// otherwise it opens a new bucket. Transactions without a usable description
// are ignored and buckets smaller than MinSampleSize are dropped.
func GroupByDescription(txs []Transaction) []TransactionGroup {
	ordered := sortedByDate(txs)

	var keys []string
	partitions := make(map[string][]Transaction)
	normalized := make(map[string]string)
	for _, tx := range ordered {
		norm := NormalizeDescription(tx.Description)
		if norm == "" {
			continue
		}
		key := tx.Type.String() + "|" + norm
		if _, ok := partitions[key]; !ok {
			keys = append(keys, key)
			normalized[key] = norm
		}
		partitions[key] = append(partitions[key], tx)
	}

	var groups []TransactionGroup
	for _, key := range keys {
		partition := partitions[key]
		if len(partition) < MinSampleSize {
			continue
		}

		var buckets []*valueBucket
		for _, tx := range partition {
			placed := false
			for _, b := range buckets {
				if math.Abs(tx.Amount-b.reference) <= b.reference*valueTolerance {
					b.members = append(b.members, tx)
					placed = true
					break
				}
			}
			if !placed {
				buckets = append(buckets, &valueBucket{reference: tx.Amount, members: []Transaction{tx}})
			}
		}

		for i, b := range buckets {
			if len(b.members) < MinSampleSize {
				continue
			}
			groups = append(groups, TransactionGroup{
				Key:                   fmt.Sprintf("%s#%d", key, i),
				NormalizedDescription: normalized[key],
				Type:                  partition[0].Type,
				Transactions:          b.members,
			})
		}
	}
	return groups
}

// GroupByValue buckets transactions by amount rounded to the nearest 10 and
// the first 12 characters of the lower-cased description. Groups smaller than
// MinSampleSize are dropped.
func GroupByValue(txs []Transaction) []TransactionGroup {
	ordered := sortedByDate(txs)

	var keys []string
	byKey := make(map[string]*TransactionGroup)
	for _, tx := range ordered {
		prefix := []rune(strings.ToLower(strings.TrimSpace(tx.Description)))
		if len(prefix) > descriptionPrefixLen {
			prefix = prefix[:descriptionPrefixLen]
		}
		rounded := math.Round(tx.Amount/valueBucketWidth) * valueBucketWidth
		key := fmt.Sprintf("%s|%.0f|%s", tx.Type, rounded, string(prefix))

		g, ok := byKey[key]
		if !ok {
			g = &TransactionGroup{
				Key:                   key,
				NormalizedDescription: NormalizeDescription(tx.Description),
				Type:                  tx.Type,
			}
			byKey[key] = g
			keys = append(keys, key)
		}
		g.Transactions = append(g.Transactions, tx)
	}

	var groups []TransactionGroup
	for _, key := range keys {
		if g := byKey[key]; len(g.Transactions) >= MinSampleSize {
			groups = append(groups, *g)
		}
	}
	return groups
}
