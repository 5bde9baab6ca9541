package heightfield

import (
	"errors"
	"fmt"
	"math"
)

var (
	errNonPositiveSize = errors.New("heightfield: width and height must be > 0")
	errSizeMismatch    = errors.New("heightfield: sample count does not match width*height")
)

// Units describes what the raw samples of a field measure.
type Units int

const (
	// UnitsMicrometers marks physical heights read from float rasters.
	UnitsMicrometers Units = iota
	// UnitsNormalized marks integer rasters mapped into [-1, 1].
	UnitsNormalized
	// UnitsSynthetic marks generated demo data.
	UnitsSynthetic
)

// String returns a short lowercase unit name.
func (u Units) String() string {
	switch u {
	case UnitsMicrometers:
		return "um"
	case UnitsNormalized:
		return "normalized"
	case UnitsSynthetic:
		return "synthetic"
	default:
		return fmt.Sprintf("units(%d)", int(u))
	}
}

// View selects one of the three sample arrays held by a Field.
type View int

const (
	ViewRaw View = iota
	ViewNormalized
	ViewFiltered
)

// String returns the view name.
func (v View) String() string {
	switch v {
	case ViewRaw:
		return "raw"
	case ViewNormalized:
		return "normalized"
	case ViewFiltered:
		return "filtered"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// ParseView maps "raw", "normalized" or "filtered" to a View.
func ParseView(s string) (View, error) {
	switch s {
	case "raw":
		return ViewRaw, nil
	case "normalized", "norm":
		return ViewNormalized, nil
	case "filtered":
		return ViewFiltered, nil
	}
	return ViewRaw, fmt.Errorf("heightfield: unknown view %q", s)
}

// Meta carries where a field came from and how its samples were encoded.
type Meta struct {
	Source        string
	Units         Units
	BitsPerSample int
	SampleFormat  int
}

// Field is an immutable height-field snapshot.
//
// Samples are stored row-major (index = y*Width + x). The normalized array
// is derived from raw at construction; the filtered array starts as a copy
// of raw and is only ever replaced wholesale through WithFiltered, which
// returns a new snapshot. Readers holding a *Field therefore never observe
// partially written data.
type Field struct {
	width, height int
	meta          Meta

	raw        []float64
	normalized []float64
	filtered   []float64

	rawMin, rawMax           float64
	filteredMin, filteredMax float64

	version uint64
}

// New builds a field from row-major raw samples.
// The samples slice is copied.
func New(width, height int, raw []float64, meta Meta) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errNonPositiveSize, width, height)
	}
	if len(raw) != width*height {
		return nil, fmt.Errorf("%w: got %d, want %d", errSizeMismatch, len(raw), width*height)
	}

	owned := make([]float64, len(raw))
	copy(owned, raw)
	return newOwned(width, height, owned, meta), nil
}

// Build lets a producer fill raw samples row by row without an extra copy.
// fill is called once with a zeroed slice of length width*height.
// Extrema are tracked while fill writes through the returned setter.
func Build(width, height int, meta Meta, fill func(set func(x, y int, v float64)) error) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errNonPositiveSize, width, height)
	}

	raw := make([]float64, width*height)
	acc := newExtrema()
	set := func(x, y int, v float64) {
		raw[y*width+x] = v
		acc.add(v)
	}
	if err := fill(set); err != nil {
		return nil, err
	}

	f := &Field{
		width:  width,
		height: height,
		meta:   meta,
		raw:    raw,
	}
	f.rawMin, f.rawMax = acc.bounds()
	f.finish()
	return f, nil
}

func newOwned(width, height int, raw []float64, meta Meta) *Field {
	f := &Field{
		width:  width,
		height: height,
		meta:   meta,
		raw:    raw,
	}
	f.rawMin, f.rawMax = Extrema(raw)
	f.finish()
	return f
}

// finish derives normalized and filtered from raw once extrema are known.
func (f *Field) finish() {
	f.normalized = Normalize(f.raw, f.rawMin, f.rawMax)
	f.filtered = make([]float64, len(f.raw))
	copy(f.filtered, f.raw)
	f.filteredMin, f.filteredMax = f.rawMin, f.rawMax
}

// WithFiltered returns a new snapshot sharing raw and normalized data with f
// and owning filtered. The filtered slice is taken over, not copied; the
// caller must not retain it.
func (f *Field) WithFiltered(filtered []float64) (*Field, error) {
	if len(filtered) != len(f.raw) {
		return nil, fmt.Errorf("%w: got %d, want %d", errSizeMismatch, len(filtered), len(f.raw))
	}

	next := *f
	next.filtered = filtered
	next.filteredMin, next.filteredMax = Extrema(filtered)
	next.version = f.version + 1
	return &next, nil
}

// Width returns the number of columns.
func (f *Field) Width() int { return f.width }

// Height returns the number of rows.
func (f *Field) Height() int { return f.height }

// Len returns Width*Height.
func (f *Field) Len() int { return len(f.raw) }

// Empty reports whether f holds no samples. A nil field is empty.
func (f *Field) Empty() bool {
	return f == nil || f.width == 0 || f.height == 0 || len(f.raw) == 0
}

// Meta returns the field metadata.
func (f *Field) Meta() Meta { return f.meta }

// Version counts how many times the filtered array has been replaced.
func (f *Field) Version() uint64 { return f.version }

// RawRange returns the cached raw extrema.
func (f *Field) RawRange() (lo, hi float64) { return f.rawMin, f.rawMax }

// FilteredRange returns the extrema of the filtered array.
func (f *Field) FilteredRange() (lo, hi float64) { return f.filteredMin, f.filteredMax }

// Range returns the extrema of the selected view.
func (f *Field) Range(v View) (lo, hi float64) {
	switch v {
	case ViewNormalized:
		return Extrema(f.normalized)
	case ViewFiltered:
		return f.filteredMin, f.filteredMax
	default:
		return f.rawMin, f.rawMax
	}
}

// Raw returns a copy of the raw samples.
func (f *Field) Raw() []float64 { return clone(f.raw) }

// Normalized returns a copy of the normalized samples.
func (f *Field) Normalized() []float64 { return clone(f.normalized) }

// Filtered returns a copy of the filtered samples.
func (f *Field) Filtered() []float64 { return clone(f.filtered) }

// Values returns a copy of the selected view.
func (f *Field) Values(v View) []float64 { return clone(f.view(v)) }

// At returns the sample at column x, row y of the selected view.
func (f *Field) At(v View, x, y int) float64 {
	return f.view(v)[y*f.width+x]
}

// Each calls fn for every sample of a view in row-major order without
// copying the underlying array.
func (f *Field) Each(v View, fn func(i int, value float64)) {
	for i, value := range f.view(v) {
		fn(i, value)
	}
}

func (f *Field) view(v View) []float64 {
	switch v {
	case ViewNormalized:
		return f.normalized
	case ViewFiltered:
		return f.filtered
	default:
		return f.raw
	}
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

// Normalize maps values into [-1, 1] using 2*(v-lo)/(hi-lo) - 1.
// A degenerate range (hi <= lo) maps every sample to 0.
func Normalize(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	span := hi - lo
	if !(span > 0) || math.IsInf(span, 0) {
		return out
	}
	for i, v := range values {
		out[i] = 2*(v-lo)/span - 1
	}
	return out
}

// Extrema returns the minimum and maximum finite values.
// It returns 0, 0 when no finite value exists.
func Extrema(values []float64) (lo, hi float64) {
	acc := newExtrema()
	for _, v := range values {
		acc.add(v)
	}
	return acc.bounds()
}

type extrema struct {
	lo, hi float64
	seen   bool
}

func newExtrema() extrema { return extrema{} }

func (e *extrema) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if !e.seen {
		e.lo, e.hi, e.seen = v, v, true
		return
	}
	if v < e.lo {
		e.lo = v
	}
	if v > e.hi {
		e.hi = v
	}
}

func (e *extrema) bounds() (float64, float64) {
	if !e.seen {
		return 0, 0
	}
	return e.lo, e.hi
}
