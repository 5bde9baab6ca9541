// Package heightfield holds the in-memory model of a 2D surface-height
// measurement.
//
// A [Field] keeps three row-major arrays of the same shape:
//
//   - raw: heights as decoded (micrometers for float rasters)
//   - normalized: raw mapped into [-1, 1] from the raw extrema
//   - filtered: a copy of raw, replaced wholesale by spectral filtering
//
// Fields are snapshots. Constructors compute extrema and the normalized
// array in one go, and [Field.WithFiltered] returns a new snapshot instead of
// mutating the receiver, so a reader never sees a half-replaced array.
//
// # Usage
//
//	f, err := heightfield.New(w, h, samples, heightfield.Meta{Source: path})
//	lo, hi := f.RawRange()
//	v := f.At(heightfield.ViewFiltered, x, y)
package heightfield
