// Package histogram bins height samples into a fixed-count histogram
// normalized to its tallest bin, for display and threshold selection.
package histogram

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-surface/heightfield"
)

// DefaultBins is the bin count used when none is requested.
const DefaultBins = 100

// Histogram is a derived summary of a set of samples.
type Histogram struct {
	// Bins holds counts divided by the largest count, in [0, 1].
	Bins []float64
	// Counts holds the raw per-bin sample counts.
	Counts []int

	Min, Max float64
	BinWidth float64

	// Total is the number of finite samples binned.
	Total int
}

// Compute bins the finite values into the given number of bins over their
// own [min, max] range. bins <= 0 selects DefaultBins.
//
// A degenerate range (all finite samples equal) or an input without finite
// samples leaves every bin at zero.
func Compute(values []float64, bins int) Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}

	h := Histogram{
		Bins:   make([]float64, bins),
		Counts: make([]int, bins),
	}

	finite := finiteOnly(values)
	if len(finite) == 0 {
		return h
	}
	h.Min = floats.Min(finite)
	h.Max = floats.Max(finite)
	// Halved so max-min cannot overflow for extreme finite ranges.
	half := h.Max/2 - h.Min/2
	if !(half > 0) {
		return h
	}
	h.BinWidth = 2 * (half / float64(bins))

	for _, v := range finite {
		bin := int(math.Floor((v/2 - h.Min/2) / half * float64(bins)))
		if bin < 0 {
			bin = 0
		} else if bin >= bins {
			bin = bins - 1
		}
		h.Counts[bin]++
	}
	h.Total = len(finite)

	peak := 0
	for _, c := range h.Counts {
		peak = max(peak, c)
	}
	if peak == 0 {
		return h
	}
	for i, c := range h.Counts {
		h.Bins[i] = float64(c) / float64(peak)
	}
	return h
}

// FromField bins one view of a field.
func FromField(f *heightfield.Field, view heightfield.View, bins int) Histogram {
	if f.Empty() {
		return Compute(nil, bins)
	}
	return Compute(f.Values(view), bins)
}

// Edges returns the lower edge of every bin followed by the upper edge of the
// last one.
func (h Histogram) Edges() []float64 {
	edges := make([]float64, len(h.Bins)+1)
	for i := range edges {
		edges[i] = 2 * (h.Min/2 + float64(i)*(h.BinWidth/2))
	}
	return edges
}

// Center returns the midpoint value of bin i.
func (h Histogram) Center(i int) float64 {
	return h.Min + (float64(i)+0.5)*h.BinWidth
}

// Percentile returns the value below which the fraction p of binned samples
// falls, interpolated linearly inside the bin. p is clamped to [0, 1].
func (h Histogram) Percentile(p float64) float64 {
	if h.Total == 0 || h.BinWidth == 0 {
		return h.Min
	}
	p = math.Min(math.Max(p, 0), 1)

	target := p * float64(h.Total)
	var cum float64
	for i, c := range h.Counts {
		next := cum + float64(c)
		if next >= target && c > 0 {
			frac := (target - cum) / float64(c)
			return h.Min + (float64(i)+frac)*h.BinWidth
		}
		cum = next
	}
	return h.Max
}

func finiteOnly(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
