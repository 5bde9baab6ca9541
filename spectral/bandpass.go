package spectral

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-surface/heightfield"
)

// Option configures a Bandpass.
type Option func(*Bandpass)

// WithPhysicalSpan sets the nominal physical extent across the longer raster
// axis. Non-positive values are ignored.
func WithPhysicalSpan(span float64) Option {
	return func(b *Bandpass) {
		if span > 0 {
			b.span = span
		}
	}
}

// WithDCPolicy selects how the zero-frequency cell is masked.
func WithDCPolicy(p DCPolicy) Option {
	return func(b *Bandpass) {
		b.dc = p
	}
}

// Bandpass keeps the spatial-frequency content of a height field whose
// radial frequency falls inside a requested band and suppresses the rest.
//
// Each Apply derives its output from the raw samples, never from a previous
// filtered array. A Bandpass caches its last transform plan and is not safe
// for concurrent use.
type Bandpass struct {
	span float64
	dc   DCPolicy

	plan *Plan2D
}

// NewBandpass returns a filter with DefaultPhysicalSpan and DCPreserve unless
// overridden.
func NewBandpass(opts ...Option) *Bandpass {
	b := &Bandpass{
		span: DefaultPhysicalSpan,
		dc:   DCPreserve,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DCPolicy returns the configured DC policy.
func (b *Bandpass) DCPolicy() DCPolicy { return b.dc }

// PhysicalSpan returns the nominal physical span.
func (b *Bandpass) PhysicalSpan() float64 { return b.span }

// PixelSize returns the pixel spacing used for a width x height field.
func (b *Bandpass) PixelSize(req Request, width, height int) float64 {
	if req.PixelSize > 0 {
		return req.PixelSize
	}
	return b.span / float64(max(width, height))
}

// Apply filters the raw samples of f and returns a new snapshot whose
// filtered array holds the result. The normalized array is untouched.
//
// A nil or empty field is not an error: the result is marked Skipped and
// carries f unchanged.
func (b *Bandpass) Apply(f *heightfield.Field, req Request) (Result, error) {
	if f.Empty() {
		return Result{Field: f, Skipped: true}, nil
	}

	w, h := f.Width(), f.Height()
	plan, err := b.planFor(w, h)
	if err != nil {
		return Result{}, err
	}

	spec := make([]complex128, w*h)
	f.Each(heightfield.ViewRaw, func(i int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		spec[i] = complex(v, 0)
	})
	if err := plan.Forward(spec, spec); err != nil {
		return Result{}, err
	}

	pixelSize := b.PixelSize(req, w, h)
	lo, hi := req.Band(pixelSize)
	kept, rejected := b.mask(spec, w, h, lo, hi)

	if err := plan.Inverse(spec, spec); err != nil {
		return Result{}, err
	}
	out := realScaled(spec)
	sanitize(out)

	next, err := f.WithFiltered(out)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Field:     next,
		LowFreq:   lo,
		HighFreq:  hi,
		PixelSize: pixelSize,
		Kept:      kept,
		Rejected:  rejected,
	}, nil
}

// mask zeroes every cell whose radial frequency lies strictly outside
// [lo, hi]. A band top at Nyquist is left open so the diagonal cells above
// Nyquist in radius survive a full-band request. A band collapsed onto
// Nyquist keeps nothing but the DC cell, subject to the DC policy.
func (b *Bandpass) mask(spec []complex128, w, h int, lo, hi float64) (kept, rejected int) {
	collapsed := lo >= Nyquist
	openTop := hi >= Nyquist && !collapsed

	for y := 0; y < h; y++ {
		fy := WrappedFrequency(y, h)
		for x := 0; x < w; x++ {
			if x == 0 && y == 0 && b.dc == DCPreserve {
				kept++
				continue
			}

			fx := WrappedFrequency(x, w)
			freq := math.Sqrt(fx*fx + fy*fy)
			if collapsed || freq < lo || (!openTop && freq > hi) {
				spec[y*w+x] = 0
				rejected++
				continue
			}
			kept++
		}
	}
	return kept, rejected
}

func (b *Bandpass) planFor(w, h int) (*Plan2D, error) {
	if b.plan != nil && b.plan.Width() == w && b.plan.Height() == h {
		return b.plan, nil
	}
	plan, err := NewPlan2D(w, h)
	if err != nil {
		return nil, err
	}
	b.plan = plan
	return plan, nil
}

// realScaled extracts real parts and applies the 1/N inverse normalization.
func realScaled(spec []complex128) []float64 {
	re := make([]float64, len(spec))
	for i, c := range spec {
		re[i] = real(c)
	}
	out := make([]float64, len(spec))
	vecmath.ScaleBlock(out, re, 1/float64(len(spec)))
	return out
}

// sanitize maps NaN to 0 and clamps to the float32 range so a result is
// always finite and exportable as a float raster.
func sanitize(values []float64) {
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			values[i] = 0
		case v > math.MaxFloat32:
			values[i] = math.MaxFloat32
		case v < -math.MaxFloat32:
			values[i] = -math.MaxFloat32
		}
	}
}
