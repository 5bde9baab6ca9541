// Package synthetic generates the deterministic demo height field shown when
// no raster is loaded. It doubles as a reproducible test fixture.
package synthetic

import (
	"math"

	"github.com/cwbudde/algo-surface/heightfield"
)

const (
	// DefaultHalf is the logical grid half-width: i, j run over [-50, 50].
	DefaultHalf = 50
	// DefaultStep is the physical step between neighboring grid points.
	DefaultStep = 0.1

	// Source is the Meta.Source value of generated fields.
	Source = "synthetic"
)

// Height returns the demo surface at logical grid point (i, j) with the
// default step:
//
//	z = sin(0.1i)*cos(0.1j) + 0.5*sin(sqrt((0.1i)^2 + (0.1j)^2))
func Height(i, j int) float64 {
	return heightAt(float64(i)*DefaultStep, float64(j)*DefaultStep)
}

func heightAt(x, y float64) float64 {
	return math.Sin(x)*math.Cos(y) + math.Sin(math.Sqrt(x*x+y*y))*0.5
}

// Generate returns the 101x101 demo field.
func Generate() *heightfield.Field {
	return GenerateGrid(DefaultHalf, DefaultStep)
}

// GenerateGrid returns a (2*half+1)-square field sampled at the given step.
// Column x holds i = x-half and row y holds j = y-half. A negative half is
// treated as zero.
func GenerateGrid(half int, step float64) *heightfield.Field {
	half = max(half, 0)
	n := 2*half + 1

	f, err := heightfield.Build(n, n, heightfield.Meta{Source: Source, Units: heightfield.UnitsSynthetic},
		func(set func(x, y int, v float64)) error {
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					set(x, y, heightAt(float64(x-half)*step, float64(y-half)*step))
				}
			}
			return nil
		})
	if err != nil {
		// Dimensions are always positive and fill never fails.
		panic(err)
	}
	return f
}
