package aggregate

import (
	"math"
	"sort"
)

// CategoryStats summarises one property category within a year.
type CategoryStats struct {
	AvgPrice int `json:"avgPrice"`
	Count    int `json:"count"`
}

// YearStats is the immutable summary of one district year.
type YearStats struct {
	Year             int                      `json:"year"`
	AvgPrice         int                      `json:"avgPrice"`
	MedianPrice      int                      `json:"medianPrice"`
	TransactionCount int                      `json:"transactionCount"`
	YoYChange        *float64                 `json:"yoyChange"`
	ByCategory       map[string]CategoryStats `json:"byCategory"`
}

// DistrictSeries is the full ascending-year series for one district.
type DistrictSeries struct {
	Code  string      `json:"code"`
	Name  string      `json:"name"`
	Years []YearStats `json:"years"`
}

// Compute reduces every bucket into YearStats and returns one series per
// district, sorted by code so repeated runs emit identical output.
func (a *Aggregator) Compute() []DistrictSeries {
	byDistrict := make(map[string][]int)
	for key := range a.buckets {
		byDistrict[key.District] = append(byDistrict[key.District], key.Year)
	}

	codes := make([]string, 0, len(byDistrict))
	for code := range byDistrict {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	series := make([]DistrictSeries, 0, len(codes))
	for _, code := range codes {
		years := byDistrict[code]
		sort.Ints(years)

		yearStats := make([]YearStats, 0, len(years))
		for _, year := range years {
			bucket := a.buckets[bucketKey{District: code, Year: year}]
			stats := computeYear(year, bucket)

			// YoY against the previous entry in this district's own
			// series, not the calendar-adjacent year.
			if len(yearStats) > 0 {
				prev := yearStats[len(yearStats)-1].AvgPrice
				if prev > 0 {
					change := round1(float64(stats.AvgPrice-prev) / float64(prev) * 100)
					stats.YoYChange = &change
				}
			}
			yearStats = append(yearStats, stats)
		}

		series = append(series, DistrictSeries{Code: code, Name: code, Years: yearStats})
	}

	return series
}

func computeYear(year int, bucket *YearBucket) YearStats {
	sorted := make([]int, len(bucket.AllPrices))
	copy(sorted, bucket.AllPrices)
	sort.Ints(sorted)

	byCategory := make(map[string]CategoryStats, len(bucket.ByCategory))
	for category, prices := range bucket.ByCategory {
		if len(prices) == 0 {
			continue
		}
		byCategory[category] = CategoryStats{AvgPrice: mean(prices), Count: len(prices)}
	}

	return YearStats{
		Year:             year,
		AvgPrice:         mean(sorted),
		MedianPrice:      median(sorted),
		TransactionCount: len(sorted),
		ByCategory:       byCategory,
	}
}

// mean returns the average rounded to the nearest whole currency unit.
func mean(prices []int) int {
	sum := 0
	for _, p := range prices {
		sum += p
	}
	return int(math.Round(float64(sum) / float64(len(prices))))
}

// median returns the middle element of an already sorted slice, averaging
// the two middle values for an even count.
func median(sorted []int) int {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return int(math.Round(float64(sorted[n/2-1]+sorted[n/2]) / 2))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
