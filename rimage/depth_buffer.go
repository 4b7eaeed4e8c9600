// Package rimage turns sensor depth buffers into compact depth files and depth files back into
// false colour images.
package rimage

import (
	"encoding/binary"
	"io"
	"math"
)

// RawDepthFrame is a depth buffer as handed over by the sensor. Rows may carry trailing
// padding (BytesPerRow > Width*bytesPerPixel). A nil Data means the buffer memory could
// not be mapped.
type RawDepthFrame struct {
	Format      PixelFormat
	Width       int
	Height      int
	BytesPerRow int
	Planar      bool
	Data        []byte
}

// ValidBytesPerRow is the number of bytes per row that hold samples.
func (raw RawDepthFrame) ValidBytesPerRow() int {
	return raw.Width * raw.Format.BytesPerPixel()
}

// RowPadding is the number of trailing bytes on each row that must be skipped.
func (raw RawDepthFrame) RowPadding() int {
	return raw.BytesPerRow - raw.ValidBytesPerRow()
}

// Dimensions are the geometry of an encoded depth file.
type Dimensions struct {
	Width            int `json:"width"`
	Height           int `json:"height"`
	ValidBytesPerRow int `json:"valid_bytes_per_row"`
}

// CanonicalDepthBuffer is an upright, unpadded, row-major grid of 32-bit depth values.
type CanonicalDepthBuffer struct {
	Format PixelFormat
	Width  int
	Height int
	Data   []float32
}

// Dimensions returns the geometry of the buffer as it will be written.
func (buf *CanonicalDepthBuffer) Dimensions() Dimensions {
	return Dimensions{Width: buf.Width, Height: buf.Height, ValidBytesPerRow: buf.Width * 4}
}

// Bytes returns exactly Width*Height*4 little-endian bytes, with no header.
func (buf *CanonicalDepthBuffer) Bytes() []byte {
	out := make([]byte, len(buf.Data)*4)
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// WriteTo writes the depth file payload.
func (buf *CanonicalDepthBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// NormalizeDepthBuffer turns a sensor frame into the canonical buffer: orientation applied,
// samples converted to 32-bit depth and row padding dropped. Planar frames are rejected
// with ErrUnsupportedFormat and unreadable memory with ErrBufferAccess. Both the encoder
// and DepthDimensions go through here so the reported size always matches the bytes.
func NormalizeDepthBuffer(raw RawDepthFrame, o Orientation) (*CanonicalDepthBuffer, error) {
	if err := validateFrame(raw, o); err != nil {
		return nil, err
	}

	samples := unpackRows(raw)
	toDepth(samples, raw.Format)

	oriented, w, h, err := orientGrid(samples, raw.Width, raw.Height, o)
	if err != nil {
		return nil, &CaptureError{Kind: UnsupportedFormat, Err: err}
	}
	return &CanonicalDepthBuffer{Format: DepthFloat32, Width: w, Height: h, Data: oriented}, nil
}

// DepthDimensions reports the size of the file EncodeDepth would produce for raw.
func DepthDimensions(raw RawDepthFrame, o Orientation) (Dimensions, error) {
	buf, err := NormalizeDepthBuffer(raw, o)
	if err != nil {
		return Dimensions{}, err
	}
	return buf.Dimensions(), nil
}

func validateFrame(raw RawDepthFrame, o Orientation) error {
	bpp := raw.Format.BytesPerPixel()
	switch {
	case bpp == 0:
		return newCaptureError(UnsupportedFormat, "unknown depth pixel format %d", int(raw.Format))
	case raw.Planar:
		return newCaptureError(UnsupportedFormat, "planar %s buffers are not supported", raw.Format)
	case !o.IsValid():
		return newCaptureError(UnsupportedFormat, "unknown orientation %d", int(o))
	case raw.Data == nil:
		return newCaptureError(BufferAccessError, "depth buffer has no base address")
	case raw.Width <= 0 || raw.Height <= 0:
		return newCaptureError(BufferAccessError, "invalid depth buffer size %dx%d", raw.Width, raw.Height)
	}

	if raw.Width > math.MaxInt/bpp/raw.Height {
		return newCaptureError(BufferAccessError, "depth buffer size %dx%d overflows", raw.Width, raw.Height)
	}
	valid := raw.ValidBytesPerRow()
	if raw.BytesPerRow < valid {
		return newCaptureError(BufferAccessError,
			"bytes per row %d is smaller than %d pixels of %d bytes", raw.BytesPerRow, raw.Width, bpp)
	}
	if raw.BytesPerRow > (math.MaxInt-valid)/raw.Height {
		return newCaptureError(BufferAccessError, "depth buffer size %dx%d overflows", raw.Width, raw.Height)
	}
	if need := raw.BytesPerRow*(raw.Height-1) + valid; len(raw.Data) < need {
		return newCaptureError(BufferAccessError,
			"depth buffer holds %d bytes but %dx%d with %d bytes per row needs %d",
			len(raw.Data), raw.Width, raw.Height, raw.BytesPerRow, need)
	}
	return nil
}

// unpackRows reads exactly Width samples from each row, skipping the row padding.
func unpackRows(raw RawDepthFrame) []float32 {
	bpp := raw.Format.BytesPerPixel()
	out := make([]float32, raw.Width*raw.Height)
	for y := 0; y < raw.Height; y++ {
		row := raw.Data[y*raw.BytesPerRow : y*raw.BytesPerRow+raw.ValidBytesPerRow()]
		for x := 0; x < raw.Width; x++ {
			out[y*raw.Width+x] = raw.Format.sample(row[x*bpp:])
		}
	}
	return out
}

func toDepth(samples []float32, f PixelFormat) {
	if !f.IsDisparity() {
		return
	}
	for i, d := range samples {
		samples[i] = disparityToDepth(d)
	}
}
