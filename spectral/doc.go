// Package spectral implements a 2D DFT bandpass over the spatial frequencies
// of a height field.
//
// The filter takes the forward transform of the raw heights, converts two
// wavelength cutoffs into cycles per pixel using a physical pixel size,
// zeroes every cell whose radial frequency falls outside the band, and
// takes the normalized inverse transform:
//
//	bp := spectral.NewBandpass(spectral.WithDCPolicy(spectral.DCPreserve))
//	res, err := bp.Apply(field, spectral.Request{LowCutoff: 2, HighCutoff: 5})
//	filtered := res.Field.Filtered()
//
// Cutoffs map to frequencies as pixelSize/cutoff, clamped to [0, Nyquist],
// and are reordered so the smaller one is always the band floor. When no
// explicit pixel size is given, pixelSize = span/max(width, height) with a
// nominal span of [DefaultPhysicalSpan].
//
// Transforms run on gonum's mixed-radix complex FFT, so fields of any size
// are filtered without padding.
package spectral
