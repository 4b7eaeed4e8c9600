package capture

import (
	"go.viam.com/depthkit/rimage"
)

// Output orientation names reported with a captured photo.
const (
	OrientationPortrait           = "portrait"
	OrientationPortraitUpsideDown = "portrait-upside-down"
	OrientationLandscapeLeft      = "landscape-left"
	OrientationLandscapeRight     = "landscape-right"
)

// OrientationName collapses an EXIF orientation to its output orientation name. Mirroring is
// reported separately.
func OrientationName(o rimage.Orientation) string {
	switch o {
	case rimage.OrientationDown, rimage.OrientationDownMirrored:
		return OrientationPortraitUpsideDown
	case rimage.OrientationLeft, rimage.OrientationLeftMirrored:
		return OrientationLandscapeLeft
	case rimage.OrientationRight, rimage.OrientationRightMirrored:
		return OrientationLandscapeRight
	default:
		return OrientationPortrait
	}
}
