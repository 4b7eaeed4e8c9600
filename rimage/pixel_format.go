package rimage

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// PixelFormat describes how one sample of a sensor depth buffer is stored.
type PixelFormat int

// The supported sensor pixel formats. Disparity is inverse depth (1/meters).
const (
	PixelFormatUnknown PixelFormat = iota
	DepthFloat32
	DisparityFloat32
	DepthFloat16
	DisparityFloat16
)

func (f PixelFormat) String() string {
	switch f {
	case DepthFloat32:
		return "depth_float32"
	case DisparityFloat32:
		return "disparity_float32"
	case DepthFloat16:
		return "depth_float16"
	case DisparityFloat16:
		return "disparity_float16"
	default:
		return "unknown"
	}
}

// ParsePixelFormat is the inverse of PixelFormat.String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	for _, f := range []PixelFormat{DepthFloat32, DisparityFloat32, DepthFloat16, DisparityFloat16} {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return PixelFormatUnknown, errors.Errorf("unknown depth pixel format %q", s)
}

// BytesPerPixel returns the sample size, or 0 for an unknown format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case DepthFloat32, DisparityFloat32:
		return 4
	case DepthFloat16, DisparityFloat16:
		return 2
	default:
		return 0
	}
}

// IsDisparity is true for the inverse depth formats.
func (f PixelFormat) IsDisparity() bool {
	return f == DisparityFloat32 || f == DisparityFloat16
}

// sample reads a single little-endian sample in its stored unit.
func (f PixelFormat) sample(b []byte) float32 {
	if f.BytesPerPixel() == 2 {
		return halfToFloat32(binary.LittleEndian.Uint16(b))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// disparityToDepth inverts a disparity sample. Anything that has no finite positive
// inverse is reported as 0, the missing depth value.
func disparityToDepth(d float32) float32 {
	if !(d > 0) || math.IsInf(float64(d), 1) {
		return 0
	}
	return 1 / d
}

// halfToFloat32 widens an IEEE-754 binary16 value.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	var bits uint32
	switch {
	case exp == 0 && mant == 0:
		bits = sign << 31
	case exp == 0:
		// subnormal, renormalize
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		bits = (sign << 31) | (e << 23) | (mant << 13)
	case exp == 0x1f:
		bits = (sign << 31) | (0xff << 23) | (mant << 13)
	default:
		bits = (sign << 31) | ((exp - 15 + 127) << 23) | (mant << 13)
	}
	return math.Float32frombits(bits)
}
