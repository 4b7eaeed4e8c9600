package utils

import (
	"github.com/pkg/errors"
)

// NewUnsupportedMimeTypeError is used when an image is asked to be encoded in a format we cannot produce.
func NewUnsupportedMimeTypeError(mimeType string) error {
	return errors.Errorf("unsupported mime type %q", mimeType)
}

// NewInvalidDimensionsError is used when a width/height pair cannot describe a raster.
func NewInvalidDimensionsError(width, height int) error {
	return errors.Errorf("invalid dimensions %dx%d", width, height)
}
