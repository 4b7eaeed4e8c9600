package rimage

import (
	"math"
	"slices"

	"github.com/pkg/errors"
)

// Default percentile bounds used to clip outliers before colouring.
const (
	DefaultLowerBoundPercentile = 0.1
	DefaultUpperBoundPercentile = 0.9
)

// PercentileNormalizer maps depth values into [0, 1] between two sample percentiles.
type PercentileNormalizer struct {
	Lower float64
	Upper float64
}

// NewPercentileNormalizer sorts a copy of the values and picks
// lower = sorted[floor(n*lowerBoundPercentile)] and upper = sorted[floor(n*upperBoundPercentile)],
// with the index clamped to n-1. NaN has no place in the order and is left out; infinities are
// kept. With no values the bounds are 0 and 1.
func NewPercentileNormalizer(values []float32, lowerBoundPercentile, upperBoundPercentile float64) (*PercentileNormalizer, error) {
	if err := checkPercentile("lower", lowerBoundPercentile); err != nil {
		return nil, err
	}
	if err := checkPercentile("upper", upperBoundPercentile); err != nil {
		return nil, err
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(float64(v)) {
			sorted = append(sorted, float64(v))
		}
	}
	if len(sorted) == 0 {
		return &PercentileNormalizer{Lower: 0, Upper: 1}, nil
	}
	slices.Sort(sorted)

	return &PercentileNormalizer{
		Lower: sorted[percentileIndex(len(sorted), lowerBoundPercentile)],
		Upper: sorted[percentileIndex(len(sorted), upperBoundPercentile)],
	}, nil
}

func checkPercentile(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return errors.Errorf("%s bound percentile %v is outside [0, 1]", name, p)
	}
	return nil
}

func percentileIndex(n int, p float64) int {
	idx := int(math.Floor(float64(n) * p))
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// Normalize returns clamp((v-lower)/(upper-lower), 0, 1). A flat range and NaN give 0, and
// values between infinite bounds that have no defined ratio give 0 as well.
func (pn *PercentileNormalizer) Normalize(v float32) float64 {
	f := float64(v)
	span := pn.Upper - pn.Lower
	switch {
	case math.IsNaN(f) || !(span > 0):
		return 0
	case f <= pn.Lower:
		return 0
	case f >= pn.Upper:
		return 1
	}
	t := (f - pn.Lower) / span
	switch {
	case !(t > 0):
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
