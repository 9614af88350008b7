// Package aggregate groups accepted transactions into per-district,
// per-year price buckets and reduces them to summary statistics.
package aggregate

import (
	"github.com/ppd-pricemap/internal/ledger"
	"github.com/ppd-pricemap/internal/postcode"
)

type bucketKey struct {
	District string
	Year     int
}

// YearBucket accumulates the full price distribution for one (district,
// year) pair. The whole distribution is kept because the median needs a
// full sort, not a running estimate.
type YearBucket struct {
	AllPrices  []int
	ByCategory map[string][]int
}

// Aggregator owns the buckets for one run. Grouping is order-independent:
// buckets hold the same prices whatever order transactions arrive in.
type Aggregator struct {
	buckets map[bucketKey]*YearBucket
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{buckets: make(map[bucketKey]*YearBucket)}
}

// Add appends a transaction's price to its (district, year) bucket,
// creating the bucket on first sight. The district is derived from the
// postcode through the same extraction the enrichment pipeline uses.
func (a *Aggregator) Add(tx ledger.Transaction) {
	key := bucketKey{District: postcode.District(tx.Postcode), Year: tx.Year}

	bucket, ok := a.buckets[key]
	if !ok {
		bucket = &YearBucket{ByCategory: make(map[string][]int)}
		a.buckets[key] = bucket
	}

	bucket.AllPrices = append(bucket.AllPrices, tx.Price)
	bucket.ByCategory[tx.Category] = append(bucket.ByCategory[tx.Category], tx.Price)
}

// DistrictCount returns the number of distinct districts seen so far.
func (a *Aggregator) DistrictCount() int {
	seen := make(map[string]bool)
	for key := range a.buckets {
		seen[key.District] = true
	}
	return len(seen)
}
