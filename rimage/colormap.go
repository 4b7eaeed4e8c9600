package rimage

import (
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// A ColorMap turns a normalized value in [0, 1] into an opaque colour.
type ColorMap interface {
	At(x float64) color.RGBA
}

// Breakpoint is one knot of a piecewise linear colour channel.
type Breakpoint struct {
	Pos float64 `json:"pos"`
	Val float64 `json:"val"`
}

// ColorMapSpec is a colour map made of three piecewise linear channels.
type ColorMapSpec struct {
	Name  string       `json:"name"`
	Red   []Breakpoint `json:"red"`
	Green []Breakpoint `json:"green"`
	Blue  []Breakpoint `json:"blue"`
}

// JetColorMap is the classic blue, green, red, dark red palette.
var JetColorMap = ColorMapSpec{
	Name:  "jet",
	Red:   []Breakpoint{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}},
	Green: []Breakpoint{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}},
	Blue:  []Breakpoint{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}},
}

// At implements ColorMap.
func (spec ColorMapSpec) At(x float64) color.RGBA {
	return ColorFor(spec, x)
}

// Validate checks that every channel starts at 0, has strictly increasing positions and
// values in [0, 1].
func (spec ColorMapSpec) Validate() error {
	for _, ch := range []struct {
		name string
		bps  []Breakpoint
	}{{"red", spec.Red}, {"green", spec.Green}, {"blue", spec.Blue}} {
		if len(ch.bps) == 0 {
			return errors.Errorf("%s channel has no breakpoints", ch.name)
		}
		if ch.bps[0].Pos != 0 {
			return errors.Errorf("%s channel starts at %v, not 0", ch.name, ch.bps[0].Pos)
		}
		for i, bp := range ch.bps {
			if bp.Val < 0 || bp.Val > 1 || math.IsNaN(bp.Val) {
				return errors.Errorf("%s channel value %v at %d is outside [0, 1]", ch.name, bp.Val, i)
			}
			if i > 0 && !(bp.Pos > ch.bps[i-1].Pos) {
				return errors.Errorf("%s channel positions are not increasing at %d", ch.name, i)
			}
		}
	}
	return nil
}

// ColorFor colours x with the three channels of spec. Alpha is always 255.
func ColorFor(spec ColorMapSpec, x float64) color.RGBA {
	return color.RGBA{
		R: InterpolateChannel(spec.Red, x),
		G: InterpolateChannel(spec.Green, x),
		B: InterpolateChannel(spec.Blue, x),
		A: 255,
	}
}

// InterpolateChannel interpolates between the first breakpoint at or after x and the one
// before it, then scales to 0..255 with floor. Past the last breakpoint the last value is
// used, before the first one the first value.
func InterpolateChannel(bps []Breakpoint, x float64) uint8 {
	if len(bps) == 0 {
		return 0
	}
	if x <= bps[0].Pos {
		return channelByte(bps[0].Val)
	}
	for i := 1; i < len(bps); i++ {
		if bps[i].Pos >= x {
			p0, p1 := bps[i-1], bps[i]
			t := (x - p0.Pos) / (p1.Pos - p0.Pos)
			return channelByte(p0.Val + t*(p1.Val-p0.Val))
		}
	}
	return channelByte(bps[len(bps)-1].Val)
}

func channelByte(v float64) uint8 {
	c := math.Floor(v * 255)
	switch {
	case c < 0:
		return 0
	case c > 255:
		return 255
	default:
		return uint8(c)
	}
}

// HueColorMap sweeps the HSV hue circle at full saturation and value.
type HueColorMap struct {
	MinHue float64
	MaxHue float64
}

// DefaultHueColorMap runs from orange (near) to blue (far).
var DefaultHueColorMap = HueColorMap{MinHue: 30, MaxHue: 230}

// At implements ColorMap.
func (h HueColorMap) At(x float64) color.RGBA {
	if math.IsNaN(x) {
		x = 0
	}
	x = math.Max(0, math.Min(1, x))
	r, g, b := colorful.Hsv(h.MinHue+(h.MaxHue-h.MinHue)*x, 1, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ColorMapByName returns "jet" or "hue". The empty name is jet.
func ColorMapByName(name string) (ColorMap, error) {
	switch strings.ToLower(name) {
	case "", JetColorMap.Name:
		return JetColorMap, nil
	case "hue":
		return DefaultHueColorMap, nil
	default:
		return nil, errors.Errorf("unknown colormap %q", name)
	}
}
