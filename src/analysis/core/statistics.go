package core

import (
	"math"

	"indicator-observer/src/models"
)

// Side selects one country column of a comparison table.
type Side int

const (
	First Side = iota
	Second
)

// -----------------------------------------------------------------------------

func pick(row models.MComparisonRow, side Side) *float64 {
	if side == First {
		return row.Country1Value
	}
	return row.Country2Value
}

// Column returns the observed values of one side in row order, skipping gaps.
func Column(rows []models.MComparisonRow, side Side) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v := pick(row, side); v != nil {
			values = append(values, *v)
		}
	}
	return values
}

// Overlap returns the aligned values of the days both sides observed.
func Overlap(rows []models.MComparisonRow) (first, second []float64) {
	for _, row := range rows {
		if row.Country1Value == nil || row.Country2Value == nil {
			continue
		}
		first = append(first, *row.Country1Value)
		second = append(second, *row.Country2Value)
	}
	return first, second
}

// -----------------------------------------------------------------------------

// Moments returns the mean and population standard deviation of values,
// accumulated in one pass (Welford).
func Moments(values []float64) (mean, std float64) {
	var m2 float64
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	if len(values) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(values)))
}

// -----------------------------------------------------------------------------

// Pearson is the correlation of two aligned samples. It is 0 when the
// samples differ in length, have fewer than two points, or one is flat.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	meanX, stdX := Moments(x)
	meanY, stdY := Moments(y)
	if stdX == 0 || stdY == 0 {
		return 0
	}

	var cov float64
	for i := range x {
		cov += (x[i] - meanX) * (y[i] - meanY)
	}
	r := cov / float64(len(x)) / (stdX * stdY)
	return math.Max(-1, math.Min(1, r))
}

// -----------------------------------------------------------------------------

// RelativeChange is the move from the first to the last value, relative to
// the magnitude of the first. A series shorter than two points or starting
// at zero has no change.
func RelativeChange(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return 0
	}
	first, last := values[0], values[len(values)-1]
	return (last - first) / math.Abs(first)
}
