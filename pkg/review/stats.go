package review

import (
	"math"
	"slices"
)

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// mean returns the arithmetic mean, or 0 for an empty sample.
func mean(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	var sum float64
	for _, v := range sample {
		sum += v
	}
	return sum / float64(len(sample))
}

// nearestRank returns the value at index floor(n*p) of the ascending-sorted
// sample. This is not a standard interpolating percentile; the index
// formula is kept for compatibility with historical output. Median is
// nearestRank(s, 0.5), P90 is nearestRank(s, 0.9). Zero for an empty sample.
func nearestRank(sample []float64, p float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sorted := slices.Clone(sample)
	slices.Sort(sorted)
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// minSample returns the smallest value, or 0 for an empty sample.
func minSample(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	return slices.Min(sample)
}

// weightedAvg returns sum(value*weight)/sum(weight), or 0 when the total
// weight is zero. Values and weights must be the same length.
func weightedAvg(values, weights []float64) float64 {
	var sum, total float64
	for i := range values {
		sum += values[i] * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return 0
	}
	return sum / total
}
