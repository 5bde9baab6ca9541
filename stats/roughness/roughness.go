// Package roughness computes areal surface texture parameters in the
// style of ISO 25178 for a height field view.
package roughness

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-surface/heightfield"
)

// Stats holds height parameters of a surface. All heights are in the units
// of the view they were computed from.
type Stats struct {
	Count int
	Mean  float64

	Sa  float64 // arithmetic mean height (mean |z - mean|)
	Sq  float64 // root mean square height about the mean
	Ssk float64 // skewness, Sq^-3 * mean((z-mean)^3)
	Sku float64 // kurtosis, Sq^-4 * mean((z-mean)^4); 3 for a Gaussian surface
	Sp  float64 // maximum peak height above the mean
	Sv  float64 // maximum pit depth below the mean, positive
	Sz  float64 // Sp + Sv

	Min, Max       float64
	MinPos, MaxPos int // row-major sample index
}

// Calculate computes height parameters over the finite samples of values.
// Moments use Welford's online update. An input without finite samples
// yields zero Stats.
func Calculate(values []float64) Stats {
	finite := make([]float64, 0, len(values))
	index := make([]int, 0, len(values))
	for i, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
			index = append(index, i)
		}
	}
	if len(finite) == 0 {
		return Stats{}
	}

	var mean, m2, m3, m4 float64
	for i, x := range finite {
		ni := float64(i + 1)
		delta := x - mean
		deltaN := delta / ni
		deltaN2 := deltaN * deltaN
		term1 := delta * deltaN * float64(i)

		m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*m2 - 4*deltaN*m3
		m3 += term1*deltaN*(float64(i)-1) - 3*deltaN*m2
		m2 += term1
		mean += deltaN
	}

	var absDev float64
	for _, x := range finite {
		absDev += math.Abs(x - mean)
	}

	nf := float64(len(finite))
	minIdx := floats.MinIdx(finite)
	maxIdx := floats.MaxIdx(finite)

	s := Stats{
		Count:  len(finite),
		Mean:   mean,
		Sa:     absDev / nf,
		Sq:     math.Sqrt(m2 / nf),
		Min:    finite[minIdx],
		Max:    finite[maxIdx],
		MinPos: index[minIdx],
		MaxPos: index[maxIdx],
	}
	s.Sp = s.Max - mean
	s.Sv = mean - s.Min
	s.Sz = s.Sp + s.Sv

	if variance := m2 / nf; variance > 0 {
		s.Ssk = (m3 / nf) / (variance * math.Sqrt(variance))
		s.Sku = (m4 / nf) / (variance * variance)
	}
	return s
}

// FromField computes Stats for one view of f. A nil field yields zero Stats.
func FromField(f *heightfield.Field, view heightfield.View) Stats {
	if f.Empty() {
		return Stats{}
	}
	return Calculate(f.Values(view))
}

// Sdq returns the root mean square gradient of a view using forward
// differences, with samples pixelSize apart. Fields smaller than 2x2 and
// non-positive pixel sizes yield 0.
func Sdq(f *heightfield.Field, view heightfield.View, pixelSize float64) float64 {
	if f.Empty() || f.Width() < 2 || f.Height() < 2 || !(pixelSize > 0) {
		return 0
	}

	w, h := f.Width(), f.Height()
	z := f.Values(view)
	var sum float64
	var n int
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			dx := (z[y*w+x+1] - z[y*w+x]) / pixelSize
			dy := (z[(y+1)*w+x] - z[y*w+x]) / pixelSize
			g := dx*dx + dy*dy
			if math.IsNaN(g) || math.IsInf(g, 0) {
				continue
			}
			sum += g
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
