package spectral

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-surface/heightfield"
)

// Profile is a radially averaged power spectrum.
type Profile struct {
	// Frequency holds the bin centers in cycles per pixel.
	Frequency []float64
	// Power holds the mean |X|^2 / N^2 of the cells falling in each bin.
	Power []float64
	// Cells counts the DFT cells averaged into each bin.
	Cells []int
}

// RadialProfile bins the power spectrum of a field view by radial frequency
// over [0, Nyquist]. Cells beyond Nyquist in radius land in the last bin.
// The DC cell is excluded so the profile describes texture, not mean height.
// Non-finite samples count as 0, as in Bandpass.Apply.
func RadialProfile(f *heightfield.Field, view heightfield.View, bins int) (Profile, error) {
	if f.Empty() {
		return Profile{}, nil
	}
	if bins <= 0 {
		return Profile{}, fmt.Errorf("spectral: profile bins must be > 0: %d", bins)
	}

	w, h := f.Width(), f.Height()
	values := f.Values(view)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = 0
		}
	}
	spec, err := Forward2D(values, w, h)
	if err != nil {
		return Profile{}, err
	}

	re := make([]float64, len(spec))
	im := make([]float64, len(spec))
	for i, c := range spec {
		re[i] = real(c)
		im[i] = imag(c)
	}
	power := make([]float64, len(spec))
	vecmath.Power(power, re, im)

	p := Profile{
		Frequency: make([]float64, bins),
		Power:     make([]float64, bins),
		Cells:     make([]int, bins),
	}
	step := Nyquist / float64(bins)
	for i := range p.Frequency {
		p.Frequency[i] = (float64(i) + 0.5) * step
	}

	norm := float64(len(spec)) * float64(len(spec))
	for y := 0; y < h; y++ {
		fy := WrappedFrequency(y, h)
		for x := 0; x < w; x++ {
			if x == 0 && y == 0 {
				continue
			}
			fx := WrappedFrequency(x, w)
			bin := int(math.Floor(math.Sqrt(fx*fx+fy*fy) / step))
			bin = min(max(bin, 0), bins-1)
			p.Power[bin] += power[y*w+x] / norm
			p.Cells[bin]++
		}
	}
	for i, n := range p.Cells {
		if n > 0 {
			p.Power[i] /= float64(n)
		}
	}
	return p, nil
}
