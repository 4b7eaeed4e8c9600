package rimage

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/depthkit/utils"
)

// Size of the box depth previews are fitted into.
const (
	DefaultPreviewWidth  = 300
	DefaultPreviewHeight = 200
)

// RenderOptions controls how depth values are turned into colours.
type RenderOptions struct {
	LowerBoundPercentile float64
	UpperBoundPercentile float64
	ColorMap             ColorMap
	Policy               DuplicationPolicy
}

// DefaultRenderOptions are the 0.1/0.9 percentile bounds with the jet colour map.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		LowerBoundPercentile: DefaultLowerBoundPercentile,
		UpperBoundPercentile: DefaultUpperBoundPercentile,
		ColorMap:             JetColorMap,
		Policy:               DuplicationUseTopHalf,
	}
}

// RenderDepth colours a decoded matrix. It returns nil when the image cannot be built.
func RenderDepth(ctx context.Context, dm *DepthMatrix, opts RenderOptions) *image.RGBA {
	if dm == nil {
		return nil
	}
	return RenderDepthValues(ctx, dm.Data, dm.Rows, dm.Cols, opts)
}

// RenderDepthValues colours rows*cols row-major depth values (or twice that many when the
// policy keeps the first half). It never panics and returns nil when the image cannot be built.
func RenderDepthValues(ctx context.Context, values []float32, rows, cols int, opts RenderOptions) *image.RGBA {
	img, err := RenderDepthImage(ctx, values, rows, cols, opts)
	if err != nil {
		return nil
	}
	return img
}

// RenderDepthImage is RenderDepthValues reporting why rendering failed.
func RenderDepthImage(ctx context.Context, values []float32, rows, cols int, opts RenderOptions) (img *image.RGBA, err error) {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			img = nil
			err = errors.Errorf("panic rendering %dx%d depth: %v", cols, rows, thePanic)
		}
	}()

	if rows <= 0 || cols <= 0 || cols > math.MaxInt32/rows/4 {
		return nil, utils.NewInvalidDimensionsError(cols, rows)
	}
	n := rows * cols
	switch {
	case len(values) == n:
	case len(values) == 2*n && opts.Policy == DuplicationUseTopHalf:
		values = values[:n]
	default:
		return nil, errors.Errorf("got %d depth values for a %dx%d image", len(values), cols, rows)
	}

	cmap := opts.ColorMap
	if cmap == nil {
		cmap = JetColorMap
	}
	norm, err := NewPercentileNormalizer(values, opts.LowerBoundPercentile, opts.UpperBoundPercentile)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, cols, rows))
	if err := utils.ParallelForEachRowBand(ctx, rows, func(ctx context.Context, from, to int) error {
		for y := from; y < to; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x < cols; x++ {
				c := cmap.At(norm.Normalize(values[y*cols+x]))
				i := out.PixOffset(x, y)
				out.Pix[i+0] = c.R
				out.Pix[i+1] = c.G
				out.Pix[i+2] = c.B
				out.Pix[i+3] = 255
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// PreviewSize fits a w x h image into maxW x maxH keeping its aspect ratio. The width is
// filled first and the height only takes over when the image is too tall.
func PreviewSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	aspect := float64(w) / float64(h)
	width := maxW
	height := int(math.Round(float64(maxW) / aspect))
	if height > maxH {
		height = maxH
		width = int(math.Round(float64(maxH) * aspect))
	}
	return width, height
}

// FitPreview scales img into the preview box. Nearest neighbour keeps the colour bands crisp.
func FitPreview(img image.Image, maxW, maxH int) *image.NRGBA {
	b := img.Bounds()
	w, h := PreviewSize(b.Dx(), b.Dy(), maxW, maxH)
	if w == 0 || h == 0 {
		return nil
	}
	return imaging.Resize(img, w, h, imaging.NearestNeighbor)
}
