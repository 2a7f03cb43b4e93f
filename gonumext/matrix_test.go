package gonumext

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEye(t *testing.T) {
	e := Eye(3, 2)
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			want := 0.
			if i == j {
				want = 1.
			}
			if e.At(i, j) != want {
				t.Errorf("entry (%v,%v): got %v, want %v", i, j, e.At(i, j), want)
			}
		}
	}
}

func TestFull(t *testing.T) {
	f := Full(2, 2, 3.5)
	if f.At(0, 0) != 3.5 || f.At(1, 1) != 3.5 {
		t.Error("Full did not fill with value")
	}
	o := Ones(2, 3)
	if o.At(1, 2) != 1 {
		t.Error("Ones did not fill with ones")
	}
}

func TestHasNaNOrInf(t *testing.T) {
	clean := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if HasNaNOrInf(clean) {
		t.Error("clean matrix flagged")
	}
	dirty := mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4})
	if !HasNaNOrInf(dirty) {
		t.Error("NaN not detected")
	}
	inf := mat.NewVecDense(2, []float64{1, math.Inf(1)})
	if !HasNaNOrInf(inf) {
		t.Error("Inf not detected")
	}
}
