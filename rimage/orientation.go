package rimage

import (
	"github.com/pkg/errors"
)

// Orientation is an EXIF orientation tag. The depth buffer is turned upright with the same
// convention used for the photo it belongs to. The zero value behaves as OrientationUp.
type Orientation int

// EXIF orientation values.
const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeftMirrored  Orientation = 5
	OrientationRight         Orientation = 6
	OrientationRightMirrored Orientation = 7
	OrientationLeft          Orientation = 8
)

// IsValid is true for 0 and the eight EXIF values.
func (o Orientation) IsValid() bool {
	return o >= 0 && o <= OrientationLeft
}

// SwapsAxes is true when the upright image is the transpose of the stored one in size.
func (o Orientation) SwapsAxes() bool {
	return o >= OrientationLeftMirrored && o <= OrientationLeft
}

// IsMirrored is true for the orientations that include a reflection.
func (o Orientation) IsMirrored() bool {
	switch o {
	case OrientationUpMirrored, OrientationDownMirrored, OrientationLeftMirrored, OrientationRightMirrored:
		return true
	default:
		return false
	}
}

// OrientedSize returns the width and height after applying o to a w x h grid.
func (o Orientation) OrientedSize(w, h int) (int, int) {
	if o.SwapsAxes() {
		return h, w
	}
	return w, h
}

// sourceXY maps a coordinate of the upright grid back into the w x h stored grid.
func (o Orientation) sourceXY(x, y, w, h int) (int, int) {
	switch o {
	case OrientationUpMirrored:
		return w - 1 - x, y
	case OrientationDown:
		return w - 1 - x, h - 1 - y
	case OrientationDownMirrored:
		return x, h - 1 - y
	case OrientationLeftMirrored:
		return y, x
	case OrientationRight:
		return y, h - 1 - x
	case OrientationRightMirrored:
		return w - 1 - y, h - 1 - x
	case OrientationLeft:
		return w - 1 - y, x
	default:
		return x, y
	}
}

// orientGrid applies o to a row-major w x h grid and returns a new grid plus its size.
// The input is never modified.
func orientGrid(src []float32, w, h int, o Orientation) ([]float32, int, int, error) {
	if !o.IsValid() {
		return nil, 0, 0, errors.Errorf("unknown orientation %d", int(o))
	}
	if len(src) != w*h {
		return nil, 0, 0, errors.Errorf("grid of %d values is not %dx%d", len(src), w, h)
	}
	dw, dh := o.OrientedSize(w, h)
	dst := make([]float32, len(src))
	if o == 0 || o == OrientationUp {
		copy(dst, src)
		return dst, dw, dh, nil
	}
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := o.sourceXY(x, y, w, h)
			dst[y*dw+x] = src[sy*w+sx]
		}
	}
	return dst, dw, dh, nil
}
