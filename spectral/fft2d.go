package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan2D computes separable 2D discrete Fourier transforms of row-major
// complex grids of a fixed width and height.
//
// Any axis length is supported. Inverse is unnormalized: a Forward followed
// by an Inverse scales every sample by width*height.
//
// A Plan2D reuses internal scratch buffers and is not safe for concurrent use.
type Plan2D struct {
	width, height int

	row *fourier.CmplxFFT
	col *fourier.CmplxFFT

	rowIn, rowOut []complex128
	colIn, colOut []complex128
}

// NewPlan2D returns a plan for width x height grids.
func NewPlan2D(width, height int) (*Plan2D, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	p := &Plan2D{
		width:  width,
		height: height,
		row:    fourier.NewCmplxFFT(width),
		rowIn:  make([]complex128, width),
		rowOut: make([]complex128, width),
		colIn:  make([]complex128, height),
		colOut: make([]complex128, height),
	}
	if height == width {
		p.col = p.row
	} else {
		p.col = fourier.NewCmplxFFT(height)
	}
	return p, nil
}

// Width returns the grid width the plan was built for.
func (p *Plan2D) Width() int { return p.width }

// Height returns the grid height the plan was built for.
func (p *Plan2D) Height() int { return p.height }

// Forward computes the forward 2D DFT of src into dst.
// dst and src may be the same slice.
func (p *Plan2D) Forward(dst, src []complex128) error {
	return p.transform(dst, src, false)
}

// Inverse computes the unnormalized inverse 2D DFT of src into dst.
// dst and src may be the same slice.
func (p *Plan2D) Inverse(dst, src []complex128) error {
	return p.transform(dst, src, true)
}

func (p *Plan2D) transform(dst, src []complex128, inverse bool) error {
	n := p.width * p.height
	if len(dst) != n || len(src) != n {
		return fmt.Errorf("%w: dst=%d src=%d, want %d", ErrLengthMismatch, len(dst), len(src), n)
	}
	if &dst[0] != &src[0] {
		copy(dst, src)
	}

	for y := 0; y < p.height; y++ {
		line := dst[y*p.width : (y+1)*p.width]
		copy(p.rowIn, line)
		if inverse {
			p.row.Sequence(p.rowOut, p.rowIn)
		} else {
			p.row.Coefficients(p.rowOut, p.rowIn)
		}
		copy(line, p.rowOut)
	}

	for x := 0; x < p.width; x++ {
		for y := 0; y < p.height; y++ {
			p.colIn[y] = dst[y*p.width+x]
		}
		if inverse {
			p.col.Sequence(p.colOut, p.colIn)
		} else {
			p.col.Coefficients(p.colOut, p.colIn)
		}
		for y := 0; y < p.height; y++ {
			dst[y*p.width+x] = p.colOut[y]
		}
	}

	return nil
}

// Forward2D returns the forward 2D DFT of a row-major real grid.
func Forward2D(values []float64, width, height int) ([]complex128, error) {
	if len(values) != width*height {
		return nil, fmt.Errorf("%w: got %d samples for %dx%d", ErrLengthMismatch, len(values), width, height)
	}

	plan, err := NewPlan2D(width, height)
	if err != nil {
		return nil, err
	}

	spec := make([]complex128, len(values))
	for i, v := range values {
		spec[i] = complex(v, 0)
	}
	if err := plan.Forward(spec, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// Inverse2D returns the real part of the normalized inverse 2D DFT.
func Inverse2D(spec []complex128, width, height int) ([]float64, error) {
	if len(spec) != width*height {
		return nil, fmt.Errorf("%w: got %d bins for %dx%d", ErrLengthMismatch, len(spec), width, height)
	}

	plan, err := NewPlan2D(width, height)
	if err != nil {
		return nil, err
	}

	tmp := make([]complex128, len(spec))
	if err := plan.Inverse(tmp, spec); err != nil {
		return nil, err
	}
	return realScaled(tmp), nil
}

// WrappedFrequency returns the signed normalized frequency (cycles per
// sample) of DFT index i on an axis of length n. Index 0 is always DC.
// Indices up to (n-1)/2 are positive; on odd axes the two middle indices
// map to +-(n-1)/2n, inside Nyquist, and on even axes index n/2 is -0.5.
func WrappedFrequency(i, n int) float64 {
	if i <= (n-1)/2 {
		return float64(i) / float64(n)
	}
	return float64(i-n) / float64(n)
}
