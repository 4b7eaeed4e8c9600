package rimage

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/depthkit/logging"
)

// DecodeDepthBytes turns a depth file payload into a rows x cols matrix. The float count must
// be rows*cols, or 2*rows*cols when policy allows keeping the first half.
func DecodeDepthBytes(data []byte, rows, cols int, policy DuplicationPolicy) (*DepthMatrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, newDecodeError(DimensionMismatch, errors.Errorf("invalid depth dimensions %dx%d", cols, rows))
	}
	if len(data)%4 != 0 {
		return nil, newDecodeError(DimensionMismatch,
			errors.Errorf("depth payload of %d bytes is not a whole number of float32 values", len(data)))
	}

	count := len(data) / 4
	if cols > count/rows+1 {
		return nil, newDecodeError(DimensionMismatch,
			errors.Errorf("depth payload holds %d values, too few for %dx%d", count, cols, rows))
	}
	expected := rows * cols

	dm := &DepthMatrix{Rows: rows, Cols: cols}
	switch {
	case count == expected:
	case count == 2*expected && policy == DuplicationUseTopHalf:
		dm.Duplicated = true
	default:
		return nil, newDecodeError(DimensionMismatch,
			errors.Errorf("depth payload holds %d values, expected %d for %dx%d", count, expected, cols, rows))
	}
	dm.Data = decodeFloats(data, expected)
	return dm, nil
}

// DecodeDepth reads src from the local filesystem and decodes it.
func DecodeDepth(ctx context.Context, src DepthSource, rows, cols int, policy DuplicationPolicy) (*DepthMatrix, error) {
	return NewDepthDecoder(OSStorage{}, policy, logging.Global()).Decode(ctx, src, rows, cols)
}

// A DepthDecoder resolves depth sources through a Storage and decodes them.
type DepthDecoder struct {
	storage Storage
	policy  DuplicationPolicy
	logger  logging.Logger
}

// NewDepthDecoder returns a decoder. A nil storage is allowed and makes every non inline
// source report ErrNoData.
func NewDepthDecoder(storage Storage, policy DuplicationPolicy, logger logging.Logger) *DepthDecoder {
	return &DepthDecoder{storage: storage, policy: policy, logger: logger}
}

// Decode reads and decodes src.
func (d *DepthDecoder) Decode(ctx context.Context, src DepthSource, rows, cols int) (*DepthMatrix, error) {
	data, err := ReadDepthSource(ctx, d.storage, src)
	if err != nil {
		return nil, err
	}
	dm, err := DecodeDepthBytes(data, rows, cols, d.policy)
	if err != nil {
		return nil, err
	}
	if dm.Duplicated {
		d.logger.CDebugw(ctx, "depth payload is duplicated, keeping the first half", "rows", rows, "cols", cols)
	}
	return dm, nil
}
