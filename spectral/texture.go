package spectral

import "math"

// TextureStats summarizes the shape of a radial power spectrum.
// Frequencies are in cycles per pixel.
type TextureStats struct {
	Centroid float64 // energy-weighted mean frequency
	Spread   float64 // energy-weighted standard deviation around Centroid
	Peak     float64 // center of the bin with the highest mean power
	Rolloff  float64 // frequency below which RolloffFraction of the energy lies
	Flatness float64 // geometric over arithmetic mean of bin power, 0..1
}

// RolloffFraction is the energy fraction used for TextureStats.Rolloff.
const RolloffFraction = 0.85

// Texture computes TextureStats from a profile. Bin energy is mean power
// times cell count; empty bins are ignored. A profile without energy
// yields zero stats.
func (p Profile) Texture() TextureStats {
	var total, weighted float64
	peakPower := 0.0
	var s TextureStats
	for i, f := range p.Frequency {
		e := p.energy(i)
		total += e
		weighted += f * e
		if p.Cells[i] > 0 && p.Power[i] > peakPower {
			peakPower = p.Power[i]
			s.Peak = f
		}
	}
	if !(total > 0) {
		return TextureStats{}
	}

	s.Centroid = weighted / total
	var sq float64
	for i, f := range p.Frequency {
		d := f - s.Centroid
		sq += d * d * p.energy(i)
	}
	s.Spread = math.Sqrt(sq / total)

	threshold := RolloffFraction * total
	cum := 0.0
	for i, f := range p.Frequency {
		cum += p.energy(i)
		if cum >= threshold {
			s.Rolloff = f
			break
		}
	}

	s.Flatness = p.flatness()
	return s
}

func (p Profile) energy(i int) float64 {
	return p.Power[i] * float64(p.Cells[i])
}

// flatness is the Wiener entropy over populated bins. Any silent populated
// bin makes the geometric mean, and so the flatness, zero.
func (p Profile) flatness() float64 {
	var sumLin, sumLog float64
	n := 0
	for i, v := range p.Power {
		if p.Cells[i] == 0 {
			continue
		}
		if !(v > 0) {
			return 0
		}
		sumLin += v
		sumLog += math.Log(v)
		n++
	}
	if n == 0 || sumLin == 0 {
		return 0
	}
	return math.Exp(sumLog/float64(n)) / (sumLin / float64(n))
}

// Wavelength converts a frequency in cycles per pixel into a wavelength in
// physical units. Zero frequency maps to +Inf.
func Wavelength(freq, pixelSize float64) float64 {
	if freq == 0 {
		return math.Inf(1)
	}
	return pixelSize / freq
}
