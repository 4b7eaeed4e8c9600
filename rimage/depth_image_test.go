package rimage

import (
	"context"
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestRenderDepthTwoByTwo(t *testing.T) {
	values := []float32{0.0, 0.5, 1.0, 0.25}
	dm, err := DecodeDepthBytes(floatBytes(values), 2, 2, DuplicationUseTopHalf)
	test.That(t, err, test.ShouldBeNil)

	img := RenderDepth(context.Background(), dm, DefaultRenderOptions())
	test.That(t, img, test.ShouldNotBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 2))

	// sorted [0, 0.25, 0.5, 1]: lower = sorted[floor(0.4)] = 0, upper = sorted[floor(3.6)] = 1,
	// so every value is its own normalized value.
	test.That(t, img.RGBAAt(0, 0), test.ShouldResemble, color.RGBA{0, 0, 127, 255})
	test.That(t, img.RGBAAt(1, 0), test.ShouldResemble, color.RGBA{123, 255, 123, 255})
	test.That(t, img.RGBAAt(0, 1), test.ShouldResemble, color.RGBA{127, 0, 0, 255})
	test.That(t, img.RGBAAt(1, 1), test.ShouldResemble, color.RGBA{0, 127, 255, 255})

	pn, err := NewPercentileNormalizer(values, DefaultLowerBoundPercentile, DefaultUpperBoundPercentile)
	test.That(t, err, test.ShouldBeNil)
	for i, v := range values {
		test.That(t, img.RGBAAt(i%2, i/2), test.ShouldResemble, ColorFor(JetColorMap, pn.Normalize(v)))
	}
}

func TestRenderDepthDuplicatedValues(t *testing.T) {
	values := []float32{0.0, 0.5, 1.0, 0.25, 9, 9, 9, 9}
	opts := DefaultRenderOptions()

	doubled := RenderDepthValues(context.Background(), values, 2, 2, opts)
	test.That(t, doubled, test.ShouldNotBeNil)
	single := RenderDepthValues(context.Background(), values[:4], 2, 2, opts)
	test.That(t, doubled.Pix, test.ShouldResemble, single.Pix)

	opts.Policy = DuplicationReject
	test.That(t, RenderDepthValues(context.Background(), values, 2, 2, opts), test.ShouldBeNil)
}

func TestRenderDepthFailures(t *testing.T) {
	ctx := context.Background()
	opts := DefaultRenderOptions()

	test.That(t, RenderDepth(ctx, nil, opts), test.ShouldBeNil)
	test.That(t, RenderDepthValues(ctx, sequence(4), 0, 4, opts), test.ShouldBeNil)
	test.That(t, RenderDepthValues(ctx, sequence(4), 2, -2, opts), test.ShouldBeNil)
	test.That(t, RenderDepthValues(ctx, sequence(5), 2, 2, opts), test.ShouldBeNil)
	test.That(t, RenderDepthValues(ctx, nil, 1<<20, 1<<20, opts), test.ShouldBeNil)

	bad := opts
	bad.UpperBoundPercentile = 2
	_, err := RenderDepthImage(ctx, sequence(4), 2, 2, bad)
	test.That(t, err, test.ShouldNotBeNil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = RenderDepthImage(cancelled, sequence(64*64), 64, 64, opts)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

type panickingColorMap struct{}

func (panickingColorMap) At(float64) color.RGBA {
	panic("boom")
}

func TestRenderDepthRecoversPanics(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.ColorMap = panickingColorMap{}
	img, err := RenderDepthImage(context.Background(), sequence(16), 4, 4, opts)
	test.That(t, img, test.ShouldBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "boom")
}

func TestRenderDepthLargeParallel(t *testing.T) {
	const rows, cols = 97, 131
	values := make([]float32, rows*cols)
	for i := range values {
		values[i] = float32(i % cols)
	}
	img := RenderDepthValues(context.Background(), values, rows, cols, DefaultRenderOptions())
	test.That(t, img, test.ShouldNotBeNil)
	for y := 0; y < rows; y++ {
		test.That(t, img.RGBAAt(0, y), test.ShouldResemble, img.RGBAAt(0, 0))
		test.That(t, img.RGBAAt(cols-1, y), test.ShouldResemble, img.RGBAAt(cols-1, 0))
	}
	test.That(t, img.RGBAAt(0, 0), test.ShouldResemble, JetColorMap.At(0))
	test.That(t, img.RGBAAt(cols-1, 0), test.ShouldResemble, JetColorMap.At(1))
}

func TestPreviewSize(t *testing.T) {
	for _, tc := range []struct {
		w, h       int
		expW, expH int
	}{
		{640, 480, 267, 200},
		{640, 320, 300, 150},
		{320, 640, 100, 200},
		{256, 192, 267, 200},
		{0, 10, 0, 0},
	} {
		w, h := PreviewSize(tc.w, tc.h, DefaultPreviewWidth, DefaultPreviewHeight)
		test.That(t, w, test.ShouldEqual, tc.expW)
		test.That(t, h, test.ShouldEqual, tc.expH)
	}

	img := RenderDepthValues(context.Background(), sequence(6*4), 4, 6, DefaultRenderOptions())
	preview := FitPreview(img, DefaultPreviewWidth, DefaultPreviewHeight)
	test.That(t, preview.Bounds().Dx(), test.ShouldEqual, 300)
	test.That(t, preview.Bounds().Dy(), test.ShouldEqual, 200)
	test.That(t, preview.NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{0, 0, 127, 255})
}
