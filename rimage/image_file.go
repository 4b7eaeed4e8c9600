package rimage

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	goutils "go.viam.com/utils"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"go.viam.com/depthkit/utils"
)

// Raw RGBA payloads start with the magic, then the width and height as big endian uint32s.
var rgbaMagicNumber = []byte("RGBA")

const (
	rgbaMagicByteCount  = 4
	rgbaWidthByteCount  = 4
	rgbaHeightByteCount = 4
	rgbaHeaderSize      = rgbaMagicByteCount + rgbaWidthByteCount + rgbaHeightByteCount
)

// EncodeImage encodes img with the given mime type.
func EncodeImage(ctx context.Context, img image.Image, mimeType string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeImageTo(&buf, img, mimeType); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeImageTo(w io.Writer, img image.Image, mimeType string) error {
	switch mimeType {
	case utils.MimeTypePNG:
		return png.Encode(w, img)
	case utils.MimeTypeJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case utils.MimeTypeQOI:
		return qoi.Encode(w, img)
	case utils.MimeTypePPM:
		return ppm.Encode(w, img)
	case utils.MimeTypeBMP:
		return bmp.Encode(w, img)
	case utils.MimeTypeTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case utils.MimeTypeRawRGBA:
		return encodeRawRGBA(w, img)
	default:
		return utils.NewUnsupportedMimeTypeError(mimeType)
	}
}

func encodeRawRGBA(w io.Writer, img image.Image) error {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != 4*rgba.Rect.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	header := make([]byte, rgbaHeaderSize)
	copy(header, rgbaMagicNumber)
	binary.BigEndian.PutUint32(header[rgbaMagicByteCount:], uint32(rgba.Rect.Dx()))
	binary.BigEndian.PutUint32(header[rgbaMagicByteCount+rgbaWidthByteCount:], uint32(rgba.Rect.Dy()))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(rgba.Pix)
	return err
}

func init() {
	image.RegisterFormat("raw-rgba", string(rgbaMagicNumber), func(r io.Reader) (image.Image, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return decodeRawRGBA(data)
	}, decodeRawRGBAConfig)
}

// rawRGBASize reads the header of a raw RGBA payload. Sizes that image.NewRGBA cannot
// allocate are rejected.
func rawRGBASize(header []byte) (int, int, error) {
	if len(header) < rgbaHeaderSize || !bytes.Equal(header[:rgbaMagicByteCount], rgbaMagicNumber) {
		return 0, 0, errors.New("not a raw rgba payload")
	}
	width := binary.BigEndian.Uint32(header[rgbaMagicByteCount:])
	height := binary.BigEndian.Uint32(header[rgbaMagicByteCount+rgbaWidthByteCount:])
	if width > math.MaxInt32 || height > math.MaxInt32 || uint64(width)*uint64(height)*4 > math.MaxInt32 {
		return 0, 0, utils.NewInvalidDimensionsError(int(width), int(height))
	}
	return int(width), int(height), nil
}

func decodeRawRGBAConfig(r io.Reader) (image.Config, error) {
	header := make([]byte, rgbaHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return image.Config{}, errors.Wrap(err, "not a raw rgba payload")
	}
	width, height, err := rawRGBASize(header)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: width, Height: height}, nil
}

// decodeRawRGBA is the inverse of encoding with MimeTypeRawRGBA.
func decodeRawRGBA(data []byte) (*image.RGBA, error) {
	width, height, err := rawRGBASize(data)
	if err != nil {
		return nil, err
	}
	pix := data[rgbaHeaderSize:]
	if uint64(width)*uint64(height)*4 != uint64(len(pix)) {
		return nil, errors.Errorf("raw rgba payload has %d bytes of pixels for %dx%d", len(pix), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return img, nil
}

// WriteImageToFile encodes img based on the extension of path and writes it atomically.
func WriteImageToFile(path string, img image.Image) error {
	mimeType := utils.MimeTypeFromPath(path)
	if mimeType == "" || mimeType == utils.MimeTypeRawDepthF32 {
		return errors.Errorf("cannot tell which image format to write for %q", path)
	}
	return utils.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return encodeImageTo(w, img, mimeType)
	})
}

// ReadImageFromFile decodes an image file in any of the registered formats.
func ReadImageFromFile(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		goutils.UncheckedError(f.Close())
	}()
	img, _, err := image.Decode(f)
	return img, err
}
