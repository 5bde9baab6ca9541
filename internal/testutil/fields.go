package testutil

import (
	"math"
	"math/rand"
)

// ConstantField returns n samples all equal to value.
func ConstantField(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ramp returns a width x height field whose value rises by one per sample
// in row-major order, starting at start.
func Ramp(width, height int, start float64) []float64 {
	out := make([]float64, width*height)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// Wave returns a width x height field holding a single plane wave with kx
// and ky whole cycles across the field, offset by mean.
func Wave(width, height, kx, ky int, amplitude, mean float64) []float64 {
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			phase := 2 * math.Pi * (float64(kx*x)/float64(width) + float64(ky*y)/float64(height))
			out[y*width+x] = mean + amplitude*math.Cos(phase)
		}
	}
	return out
}

// NoiseField returns width*height uniform samples in [-amplitude, amplitude]
// drawn from a fixed seed.
func NoiseField(seed int64, amplitude float64, width, height int) []float64 {
	out := make([]float64, width*height)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Sum adds up all samples.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
