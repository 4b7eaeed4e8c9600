package rimage

import (
	"context"
	"io"

	"go.viam.com/depthkit/logging"
	"go.viam.com/depthkit/utils"
)

// DepthFile is a persisted canonical depth buffer. The file holds Width*Height little-endian
// float32 values and nothing else, so the size has to travel with the path.
type DepthFile struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Dimensions returns the geometry of the stored payload.
func (df DepthFile) Dimensions() Dimensions {
	return Dimensions{Width: df.Width, Height: df.Height, ValidBytesPerRow: df.Width * 4}
}

// EncodeDepth normalizes raw into the bytes-ready canonical buffer.
func EncodeDepth(raw RawDepthFrame, o Orientation) (*CanonicalDepthBuffer, error) {
	return NormalizeDepthBuffer(raw, o)
}

// WriteDepthFile encodes raw and writes it to path in a single write. The file only appears
// once it is complete; on any error nothing is left at path.
func WriteDepthFile(
	ctx context.Context,
	path string,
	raw RawDepthFrame,
	o Orientation,
	logger logging.Logger,
) (DepthFile, error) {
	buf, err := EncodeDepth(raw, o)
	if err != nil {
		return DepthFile{}, err
	}
	if padding := raw.RowPadding(); padding > 0 {
		logger.CDebugw(ctx, "dropping depth row padding",
			"format", raw.Format.String(), "width", raw.Width, "bytesPerRow", raw.BytesPerRow, "padding", padding)
	}
	if err := ctx.Err(); err != nil {
		return DepthFile{}, &CaptureError{Kind: CaptureIOError, Err: err}
	}

	if err := utils.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	}); err != nil {
		return DepthFile{}, &CaptureError{Kind: CaptureIOError, Err: err}
	}

	logger.CDebugf(ctx, "wrote %dx%d depth file %q", buf.Width, buf.Height, path)
	return DepthFile{Path: path, Width: buf.Width, Height: buf.Height}, nil
}
