package rimage

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestPercentileBounds(t *testing.T) {
	values := make([]float32, 0, 100)
	for i := 99; i >= 0; i-- {
		values = append(values, float32(i))
	}

	pn, err := NewPercentileNormalizer(values, DefaultLowerBoundPercentile, DefaultUpperBoundPercentile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pn.Lower, test.ShouldEqual, 10.0)
	test.That(t, pn.Upper, test.ShouldEqual, 90.0)
	test.That(t, pn.Normalize(10), test.ShouldEqual, 0.0)
	test.That(t, pn.Normalize(90), test.ShouldEqual, 1.0)
	test.That(t, pn.Normalize(50), test.ShouldEqual, 0.5)
	test.That(t, pn.Normalize(-5), test.ShouldEqual, 0.0)
	test.That(t, pn.Normalize(99), test.ShouldEqual, 1.0)

	// input order is left alone
	test.That(t, values[0], test.ShouldEqual, float32(99))
}

func TestPercentileIndexClamp(t *testing.T) {
	pn, err := NewPercentileNormalizer([]float32{3, 1, 2}, 0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pn.Lower, test.ShouldEqual, 1.0)
	test.That(t, pn.Upper, test.ShouldEqual, 3.0)
}

func TestPercentileDegenerate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		pn, err := NewPercentileNormalizer(nil, DefaultLowerBoundPercentile, DefaultUpperBoundPercentile)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pn.Lower, test.ShouldEqual, 0.0)
		test.That(t, pn.Upper, test.ShouldEqual, 1.0)
		test.That(t, pn.Normalize(0.25), test.ShouldEqual, 0.25)
	})

	t.Run("flat", func(t *testing.T) {
		pn, err := NewPercentileNormalizer([]float32{4, 4, 4, 4}, DefaultLowerBoundPercentile, DefaultUpperBoundPercentile)
		test.That(t, err, test.ShouldBeNil)
		for _, v := range []float32{0, 4, 8} {
			test.That(t, pn.Normalize(v), test.ShouldEqual, 0.0)
		}
	})

	t.Run("non finite samples", func(t *testing.T) {
		nan := float32(math.NaN())
		pn, err := NewPercentileNormalizer([]float32{nan, 2, nan, 1}, 0, 1)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pn.Lower, test.ShouldEqual, 1.0)
		test.That(t, pn.Upper, test.ShouldEqual, 2.0)
		test.That(t, pn.Normalize(nan), test.ShouldEqual, 0.0)

		// infinities take part in the index so n matches the number of orderable samples
		inf := float32(math.Inf(1))
		values := []float32{inf, 5, 1, nan, 3, float32(math.Inf(-1)), 4, 2, inf, 6, 7, 8}
		pn, err = NewPercentileNormalizer(values, 0.1, 0.5)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pn.Lower, test.ShouldEqual, 1.0)
		test.That(t, pn.Upper, test.ShouldEqual, 5.0)

		pn, err = NewPercentileNormalizer(values, 0, 1)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, math.IsInf(pn.Lower, -1), test.ShouldBeTrue)
		test.That(t, math.IsInf(pn.Upper, 1), test.ShouldBeTrue)
		test.That(t, pn.Normalize(3), test.ShouldEqual, 0.0)
		test.That(t, pn.Normalize(inf), test.ShouldEqual, 1.0)
		test.That(t, pn.Normalize(float32(math.Inf(-1))), test.ShouldEqual, 0.0)

		pn = &PercentileNormalizer{Lower: 1, Upper: math.Inf(1)}
		test.That(t, pn.Normalize(3), test.ShouldEqual, 0.0)
		test.That(t, pn.Normalize(inf), test.ShouldEqual, 1.0)
	})

	t.Run("bad percentiles", func(t *testing.T) {
		_, err := NewPercentileNormalizer([]float32{1}, -0.1, 0.9)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = NewPercentileNormalizer([]float32{1}, 0.1, 1.5)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = NewPercentileNormalizer([]float32{1}, math.NaN(), 0.9)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
