// sim/metrics_utils.go
package sim

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

type IntOrFloat64 interface {
	int | int64 | float64
}

// CalculatePercentile is a util function that calculates the p-th percentile
// (0-100) of an ascending-sorted data list, interpolating linearly between
// neighbouring ranks. The 50th percentile of an even-length list is the mean
// of the two middle values. Returns 0 for empty input.
func CalculatePercentile[T IntOrFloat64](data []T, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	rank := p / 100.0 * float64(n-1)
	lowerIdx := int(math.Floor(rank))
	upperIdx := int(math.Ceil(rank))
	if upperIdx >= n {
		return float64(data[n-1])
	}
	if lowerIdx == upperIdx {
		return float64(data[lowerIdx])
	}
	lowerVal := float64(data[lowerIdx])
	upperVal := float64(data[upperIdx])
	return lowerVal + (upperVal-lowerVal)*(rank-float64(lowerIdx))
}

// CalculateMean is a util function that calculates the mean of a data list.
// Returns 0 for empty input.
func CalculateMean[T IntOrFloat64](numbers []T) float64 {
	if len(numbers) == 0 {
		return 0.0
	}
	return stat.Mean(toFloat64s(numbers), nil)
}

// CalculateStdDev returns the sample standard deviation, or 0 for fewer than two values.
func CalculateStdDev[T IntOrFloat64](numbers []T) float64 {
	if len(numbers) < 2 {
		return 0.0
	}
	return stat.StdDev(toFloat64s(numbers), nil)
}

// minutesSorted converts durations to minutes and sorts them ascending.
func minutesSorted(waits []time.Duration) []float64 {
	mins := make([]float64, len(waits))
	for i, w := range waits {
		mins[i] = w.Minutes()
	}
	slices.Sort(mins)
	return mins
}

func toFloat64s[T IntOrFloat64](numbers []T) []float64 {
	out := make([]float64, len(numbers))
	for i, v := range numbers {
		out[i] = float64(v)
	}
	return out
}

// perHour returns count divided by elapsed hours, or 0 when no time elapsed.
func perHour(count int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Hours()
}
