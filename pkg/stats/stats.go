// Package stats summarizes a series of extreme water levels.
package stats

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptySeries is returned when there is nothing to summarize.
var ErrEmptySeries = errors.New("cannot summarize an empty series")

// Summary holds the statistics reported for a run.
type Summary struct {
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
}

// Summarize computes the median and mean of values without modifying it.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptySeries
	}
	return Summary{
		Median: Median(values),
		Mean:   stat.Mean(values, nil),
		Count:  len(values),
	}, nil
}

// Median returns the middle of values, or the average of the two middle values
// when there is an even number of them. It works on a copy. Median of an
// empty slice is 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
