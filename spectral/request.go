package spectral

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-surface/heightfield"
)

var (
	// ErrInvalidSize is returned for non-positive transform dimensions.
	ErrInvalidSize = errors.New("spectral: transform size must be > 0")
	// ErrLengthMismatch is returned when a buffer does not match the plan.
	ErrLengthMismatch = errors.New("spectral: buffer length mismatch")
)

const (
	// Nyquist is the highest representable frequency in cycles per pixel.
	Nyquist = 0.5
	// DefaultPhysicalSpan is the nominal physical extent across the longer
	// raster axis, used when a request carries no explicit pixel size.
	DefaultPhysicalSpan = 10.0
)

// DCPolicy decides how the zero-frequency cell is treated by the mask.
type DCPolicy int

const (
	// DCPreserve always keeps the zero-frequency cell, so the mean height
	// survives any band.
	DCPreserve DCPolicy = iota
	// DCMask treats the zero-frequency cell like every other cell: it is
	// zeroed whenever the band floor is above zero.
	DCMask
)

// String returns the config spelling of the policy.
func (p DCPolicy) String() string {
	switch p {
	case DCPreserve:
		return "preserve"
	case DCMask:
		return "mask"
	default:
		return fmt.Sprintf("dcpolicy(%d)", int(p))
	}
}

// ParseDCPolicy maps "preserve" or "mask" to a DCPolicy.
func ParseDCPolicy(s string) (DCPolicy, error) {
	switch s {
	case "preserve":
		return DCPreserve, nil
	case "mask":
		return DCMask, nil
	}
	return DCPreserve, fmt.Errorf("spectral: unknown dc policy %q (want preserve or mask)", s)
}

// Request is an immutable bandpass request.
//
// Cutoffs are wavelengths in the field's raw units and may arrive in either
// order. PixelSize is the physical sample spacing; zero derives it from the
// filter's nominal physical span.
type Request struct {
	LowCutoff  float64
	HighCutoff float64
	PixelSize  float64
}

// Result reports what a bandpass pass did.
type Result struct {
	// Field is the new snapshot, or the input when Skipped.
	Field *heightfield.Field

	// LowFreq and HighFreq are the effective band edges in cycles per pixel
	// after conversion, clamping and ordering.
	LowFreq  float64
	HighFreq float64

	PixelSize float64

	Kept     int
	Rejected int

	// Skipped is set when the field was nil or empty; nothing was filtered.
	Skipped bool
}

// CutoffFrequency converts a cutoff wavelength into cycles per pixel and
// clamps it to [0, Nyquist]. A zero cutoff maps to Nyquist and NaN maps to 0.
func CutoffFrequency(cutoff, pixelSize float64) float64 {
	if math.IsNaN(cutoff) || math.IsNaN(pixelSize) {
		return 0
	}
	if cutoff == 0 {
		return Nyquist
	}
	return clamp(pixelSize/cutoff, 0, Nyquist)
}

// Band returns the ordered pass band edges for a request at pixelSize.
func (r Request) Band(pixelSize float64) (lo, hi float64) {
	lo = CutoffFrequency(r.LowCutoff, pixelSize)
	hi = CutoffFrequency(r.HighCutoff, pixelSize)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
