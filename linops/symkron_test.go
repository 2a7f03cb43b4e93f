package linops

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSymmetricKroneckerTrace(t *testing.T) {
	w := mat.NewDense(2, 2, []float64{2, 1, 1, 3})
	op := NewSymmetricKronecker(NewDense(w))

	// tr(W (x)_s W) = (tr(W)^2 + tr(W^2)) / 2 = (25 + 15) / 2
	if tr := op.Trace(); math.Abs(tr-20) > 1e-12 {
		t.Errorf("trace: got %v, want 20", tr)
	}

	// The diagonal of the materialized operator must sum to the same value.
	var diag float64
	e := mat.NewVecDense(4, nil)
	for i := 0; i < 4; i++ {
		e.Zero()
		e.SetVec(i, 1)
		diag += op.MulVec(e).AtVec(i)
	}
	if math.Abs(diag-20) > 1e-12 {
		t.Errorf("diagonal sum: got %v, want 20", diag)
	}

	// Cross-check against the formula evaluated on dense products.
	var ww mat.Dense
	ww.Mul(w, w)
	want := 0.5 * ((w.At(0, 0)+w.At(1, 1))*(w.At(0, 0)+w.At(1, 1)) + ww.At(0, 0) + ww.At(1, 1))
	if tr := op.Trace(); math.Abs(tr-want) > 1e-12 {
		t.Errorf("trace: got %v, want %v", tr, want)
	}
}

func TestSymmetricKroneckerPSD(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	// W symmetric positive definite.
	w := mat.NewDense(3, 3, []float64{4, 1, 0, 1, 3, 1, 0, 1, 2})
	op := NewSymmetricKronecker(NewDense(w))

	for trial := 0; trial < 20; trial++ {
		v := randVec(9, rnd)
		if q := mat.Dot(v, op.MulVec(v)); q < -1e-10 {
			t.Errorf("quadratic form negative: %v", q)
		}
	}
}

func TestComplementProjector(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	s := mat.NewDense(4, 2, nil)
	for j := 0; j < 2; j++ {
		s.SetCol(j, randVec(4, rnd).RawVector().Data)
	}
	p := NewComplementProjector(s)

	v := randVec(4, rnd)
	pv := p.MulVec(v)

	// The projection must be orthogonal to the span of S.
	res := mat.NewVecDense(2, nil)
	res.MulVec(s.T(), pv)
	for i := 0; i < 2; i++ {
		if math.Abs(res.AtVec(i)) > 1e-10 {
			t.Errorf("S^T P v entry %v: got %v, want 0", i, res.AtVec(i))
		}
	}

	// Idempotence: P P v = P v.
	ppv := p.MulVec(pv)
	for i := 0; i < 4; i++ {
		if math.Abs(ppv.AtVec(i)-pv.AtVec(i)) > 1e-10 {
			t.Errorf("P not idempotent at entry %v", i)
		}
	}
}
