// Package colormap maps normalized heights onto display colors.
//
// It is the presentation side of the pipeline: a renderer hands it a height
// together with the field's extrema and a z-scale and gets back an RGB
// triple. Render does this for a whole field view.
package colormap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/cwbudde/algo-surface/heightfield"
)

// ErrUnknown is returned by Parse for an unrecognized colormap name.
var ErrUnknown = errors.New("colormap: unknown name")

// Name identifies a color ramp.
type Name string

const (
	Jet     Name = "jet"
	Viridis Name = "viridis"
	Plasma  Name = "plasma"
	Hot     Name = "hot"
	Cool    Name = "cool"
	Turbo   Name = "turbo"
	// BlueRed blends linearly from pure blue to pure red.
	BlueRed Name = "bluered"
)

var names = []Name{Jet, Viridis, Plasma, Hot, Cool, Turbo, BlueRed}

// Names returns every supported colormap in a stable order.
func Names() []Name {
	return append([]Name(nil), names...)
}

func (n Name) String() string { return string(n) }

// Parse resolves a colormap name case-insensitively.
func Parse(s string) (Name, error) {
	key := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, n := range names {
		if n == key {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, s)
}

// RGB is a color with channels in [0, 1].
type RGB struct {
	R, G, B float64
}

// RGBA converts c to an 8-bit opaque color.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: 0xff}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

// Map returns the color of ramp name at t. t is clamped to [0, 1] and NaN
// is treated as 0. Unknown names fall back to Jet.
func Map(name Name, t float64) RGB {
	if math.IsNaN(t) {
		t = 0
	}
	t = clamp01(t)

	var c RGB
	switch name {
	case Viridis:
		c = poly(t, viridisCoeffs)
	case Plasma:
		c = poly(t, plasmaCoeffs)
	case Turbo:
		c = poly(t, turboCoeffs)
	case Hot:
		c = RGB{3 * t, 3*t - 1, 3*t - 2}
	case Cool:
		c = RGB{t, 1 - t, 1}
	case BlueRed:
		c = RGB{t, 0, 1 - t}
	default:
		c = RGB{
			R: 1.5 - math.Abs(4*t-3),
			G: 1.5 - math.Abs(4*t-2),
			B: 1.5 - math.Abs(4*t-1),
		}
	}
	return RGB{clamp01(c.R), clamp01(c.G), clamp01(c.B)}
}

// Normalize maps a height onto [0, 1] the way the surface shader does:
// clamp((z*zScale - zMin) / (zMax - zMin), 0, 1). A zero or non-finite
// range yields 0.
func Normalize(z, zMin, zMax, zScale float64) float64 {
	span := zMax - zMin
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 0
	}
	t := (z*zScale - zMin) / span
	if math.IsNaN(t) {
		return 0
	}
	return clamp01(t)
}

// Render colors every sample of a field view using that view's extrema.
// Pixel (x, y) corresponds to field column x and row y. A nil or empty
// field renders as an empty image.
func Render(f *heightfield.Field, view heightfield.View, name Name, zScale float64) *image.RGBA {
	if f.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	w, h := f.Width(), f.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	lo, hi := f.Range(view)
	f.Each(view, func(i int, z float64) {
		img.SetRGBA(i%w, i/w, Map(name, Normalize(z, lo, hi, zScale)).RGBA())
	})
	return img
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// poly evaluates per-channel polynomials with coefficients in ascending
// order using Horner's scheme.
func poly(t float64, coeffs [][3]float64) RGB {
	var c [3]float64
	for i := len(coeffs) - 1; i >= 0; i-- {
		for ch := range c {
			c[ch] = c[ch]*t + coeffs[i][ch]
		}
	}
	return RGB{c[0], c[1], c[2]}
}

// Polynomial fits of the matplotlib perceptual ramps and Google's Turbo.
var (
	viridisCoeffs = [][3]float64{
		{0.2777273272234177, 0.005407344544966578, 0.3340998053353061},
		{0.1050930431085774, 1.404613529898575, 1.384590162594685},
		{-0.3308618287255563, 0.214847559468213, 0.09509516302823659},
		{-4.634230498983486, -5.799100973351585, -19.33244095627987},
		{6.228269936347081, 14.17993336680509, 56.69055260068105},
		{4.776384997670288, -13.74514537774601, -65.35303263337234},
		{-5.435455855934631, 4.645852612178535, 26.3124352495832},
	}
	plasmaCoeffs = [][3]float64{
		{0.05873234392399702, 0.02333670892565664, 0.5433401826748754},
		{2.176514634195958, 0.2383834171260182, 0.7539604599784036},
		{-2.689460476458034, -7.455851135738909, 3.110799939717086},
		{6.130348345893603, 42.3461881477227, -28.51885465332158},
		{-11.10743619062271, -82.66631109428045, 60.13984767418263},
		{10.02306557647065, 71.41361770095349, -54.07218655560067},
		{-3.658713842777788, -22.93153465461149, 18.19190778539828},
	}
	turboCoeffs = [][3]float64{
		{0.13572138, 0.09140261, 0.10667330},
		{4.61539260, 2.19418839, 12.64194608},
		{-42.66032258, 4.84296658, -60.58204836},
		{132.13108234, -14.18503333, 110.36276771},
		{-152.94239396, 4.27729857, -89.90310912},
		{59.28637943, 2.82956604, 27.34824973},
	}
)
