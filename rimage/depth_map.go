package rimage

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// DepthMatrix is a decoded depth file: Rows*Cols depth values in row-major order.
// Duplicated is set when the payload held the grid twice and only the first copy was kept.
type DepthMatrix struct {
	Rows       int
	Cols       int
	Data       []float32
	Duplicated bool
}

// DepthStats summarizes the finite values of a depth matrix.
type DepthStats struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	P10     float64 `json:"p10"`
	P90     float64 `json:"p90"`
}

// Stats computes DepthStats. Zero and non-finite values count as missing.
func (dm *DepthMatrix) Stats() (DepthStats, error) {
	values := make(stats.Float64Data, 0, len(dm.Data))
	for _, v := range dm.Data {
		if v == 0 || !isFinite(v) {
			continue
		}
		values = append(values, float64(v))
	}
	out := DepthStats{Count: len(values), Missing: len(dm.Data) - len(values)}
	if len(values) == 0 {
		return out, nil
	}

	var err error
	if out.Min, err = stats.Min(values); err != nil {
		return out, errors.Wrap(err, "min")
	}
	if out.Max, err = stats.Max(values); err != nil {
		return out, errors.Wrap(err, "max")
	}
	if out.Mean, err = stats.Mean(values); err != nil {
		return out, errors.Wrap(err, "mean")
	}
	if out.Median, err = stats.Median(values); err != nil {
		return out, errors.Wrap(err, "median")
	}
	if out.P10, err = stats.PercentileNearestRank(values, 10); err != nil {
		return out, errors.Wrap(err, "10th percentile")
	}
	if out.P90, err = stats.PercentileNearestRank(values, 90); err != nil {
		return out, errors.Wrap(err, "90th percentile")
	}
	return out, nil
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DuplicationPolicy decides what happens to a payload holding exactly twice the expected
// number of values, which some capture paths produce.
type DuplicationPolicy int

const (
	// DuplicationUseTopHalf keeps the first Rows*Cols values.
	DuplicationUseTopHalf DuplicationPolicy = iota
	// DuplicationReject treats a doubled payload as a dimension mismatch.
	DuplicationReject
)

func (p DuplicationPolicy) String() string {
	switch p {
	case DuplicationUseTopHalf:
		return "top_half"
	case DuplicationReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseDuplicationPolicy parses "top_half" or "reject". The empty string is top_half.
func ParseDuplicationPolicy(s string) (DuplicationPolicy, error) {
	switch strings.ToLower(s) {
	case "", "top_half":
		return DuplicationUseTopHalf, nil
	case "reject":
		return DuplicationReject, nil
	default:
		return DuplicationUseTopHalf, errors.Errorf("unknown duplication policy %q", s)
	}
}

// decodeFloats reads count little-endian float32 values from data.
func decodeFloats(data []byte, count int) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
