package testutil

import (
	"math"
	"testing"
)

func TestMaxAbsDiff(t *testing.T) {
	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.1, 3})
	if err != nil {
		t.Fatalf("MaxAbsDiff error: %v", err)
	}
	if math.Abs(d-0.1) > 1e-15 {
		t.Fatalf("MaxAbsDiff = %v, want 0.1", d)
	}
}

func TestMaxAbsDiffLengthMismatch(t *testing.T) {
	if _, err := MaxAbsDiff([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestMaxAbsDiffIdentical(t *testing.T) {
	a := Ramp(4, 4, 0)
	d, err := MaxAbsDiff(a, a)
	if err != nil {
		t.Fatalf("MaxAbsDiff error: %v", err)
	}
	if d != 0 {
		t.Fatalf("MaxAbsDiff = %v, want 0 for identical fields", d)
	}
}

func TestRequireHelpersPass(t *testing.T) {
	a := []float64{-1, 0, 1}
	RequireSliceNearlyEqual(t, a, []float64{-1, 1e-13, 1}, 1e-12)
	RequireFinite(t, a)
	RequireInRange(t, a, -1, 1)
}
