package utils

import (
	"path/filepath"
	"strings"
)

const (
	// MimeTypeRawDepthF32 is a headerless little-endian float32 depth payload.
	MimeTypeRawDepthF32 = "application/x-depth-f32"

	// MimeTypeOctetStream is what depth files are shared as.
	MimeTypeOctetStream = "application/octet-stream"

	// MimeTypeRawRGBA is for go's internal image.RGBA.
	MimeTypeRawRGBA = "image/raw-rgba"

	// MimeTypeJPEG is regular jpgs.
	MimeTypeJPEG = "image/jpeg"

	// MimeTypePNG is regular pngs.
	MimeTypePNG = "image/png"

	// MimeTypeQOI is for .qoi "Quite OK Image" for lossless, fast encoding/decoding.
	MimeTypeQOI = "image/qoi"

	// MimeTypePPM is for binary portable pixmaps.
	MimeTypePPM = "image/x-portable-pixmap"

	// MimeTypeBMP is for windows bitmaps.
	MimeTypeBMP = "image/bmp"

	// MimeTypeTIFF is for tiffs.
	MimeTypeTIFF = "image/tiff"
)

// DepthFileExt is the extension given to encoded depth payloads.
const DepthFileExt = "depth.bin"

// MimeTypeFromPath guesses the image mime type of a file by its extension. An empty string
// means the extension is not known.
func MimeTypeFromPath(path string) string {
	if strings.HasSuffix(path, "."+DepthFileExt) {
		return MimeTypeRawDepthF32
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return MimeTypePNG
	case ".jpg", ".jpeg":
		return MimeTypeJPEG
	case ".qoi":
		return MimeTypeQOI
	case ".ppm":
		return MimeTypePPM
	case ".bmp":
		return MimeTypeBMP
	case ".tif", ".tiff":
		return MimeTypeTIFF
	case ".rgba":
		return MimeTypeRawRGBA
	default:
		return ""
	}
}
