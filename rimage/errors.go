package rimage

import (
	"fmt"

	"github.com/pkg/errors"
)

// CaptureErrorKind classifies why a depth buffer could not be encoded.
type CaptureErrorKind int

const (
	// UnsupportedFormat is returned for planar buffers, unknown pixel formats and unknown orientations.
	UnsupportedFormat CaptureErrorKind = iota + 1
	// BufferAccessError is returned when the buffer memory is missing or too small for its geometry.
	BufferAccessError
	// CaptureIOError is returned when the encoded depth file cannot be written.
	CaptureIOError
)

func (k CaptureErrorKind) String() string {
	switch k {
	case UnsupportedFormat:
		return "unsupported format"
	case BufferAccessError:
		return "buffer access"
	case CaptureIOError:
		return "io"
	default:
		return fmt.Sprintf("unknown capture error kind %d", int(k))
	}
}

// A CaptureError is returned by the depth encoder. It matches the Err* capture sentinels
// under errors.Is by kind.
type CaptureError struct {
	Kind CaptureErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return "depth capture failed: " + e.Kind.String()
	}
	return fmt.Sprintf("depth capture failed (%s): %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind-only CaptureError of the same kind.
func (e *CaptureError) Is(target error) bool {
	t, ok := target.(*CaptureError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

func newCaptureError(kind CaptureErrorKind, format string, args ...interface{}) error {
	return &CaptureError{Kind: kind, Err: errors.Errorf(format, args...)}
}

var (
	// ErrUnsupportedFormat matches every UnsupportedFormat capture error.
	ErrUnsupportedFormat = &CaptureError{Kind: UnsupportedFormat}
	// ErrBufferAccess matches every BufferAccessError capture error.
	ErrBufferAccess = &CaptureError{Kind: BufferAccessError}
	// ErrCaptureIO matches every CaptureIOError capture error.
	ErrCaptureIO = &CaptureError{Kind: CaptureIOError}
)

// DecodeErrorKind classifies why a depth file could not be turned into a matrix.
type DecodeErrorKind int

const (
	// DimensionMismatch is returned when the number of floats does not fit the requested grid.
	DimensionMismatch DecodeErrorKind = iota + 1
	// DecodeIOError is returned when the depth source cannot be read.
	DecodeIOError
	// SourceUnavailable is returned for malformed or unresolvable depth sources.
	SourceUnavailable
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DimensionMismatch:
		return "dimension mismatch"
	case DecodeIOError:
		return "io"
	case SourceUnavailable:
		return "source unavailable"
	default:
		return fmt.Sprintf("unknown decode error kind %d", int(k))
	}
}

// A DecodeError is returned by the depth decoder.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "depth decode failed: " + e.Kind.String()
	}
	return fmt.Sprintf("depth decode failed (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind-only DecodeError of the same kind.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

func newDecodeError(kind DecodeErrorKind, err error) error {
	return &DecodeError{Kind: kind, Err: err}
}

var (
	// ErrDimensionMismatch matches every DimensionMismatch decode error.
	ErrDimensionMismatch = &DecodeError{Kind: DimensionMismatch}
	// ErrDecodeIO matches every DecodeIOError decode error.
	ErrDecodeIO = &DecodeError{Kind: DecodeIOError}
	// ErrSourceUnavailable matches every SourceUnavailable decode error.
	ErrSourceUnavailable = &DecodeError{Kind: SourceUnavailable}

	// ErrNoData is returned when there is no way to read depth on this host. It is a normal
	// outcome rather than a failure and is never wrapped in a DecodeError.
	ErrNoData = errors.New("no depth data available")
)
