package linops

import (
	"gonum.org/v1/gonum/mat"
)

// SymmetricKronecker is the covariance operator W (x)_s W of a matrix-variate
// Gaussian, represented through its factor W alone. It acts on vectorized
// n by n matrices,
//
//	vec(V) -> vec( (W V W^T + W V^T W^T) / 2 ),
//
// which keeps the n^2 by n^2 covariance implicit.
type SymmetricKronecker struct {
	w Operator
	n int
}

// NewSymmetricKronecker returns the symmetric Kronecker product operator
// around the square factor w.
func NewSymmetricKronecker(w Operator) *SymmetricKronecker {
	r, c := w.Dims()
	if r != c {
		panic(mat.ErrShape)
	}
	return &SymmetricKronecker{w: w, n: r}
}

// Factor returns the Kronecker factor W.
func (op *SymmetricKronecker) Factor() Operator { return op.w }

func (op *SymmetricKronecker) Dims() (int, int) { return op.n * op.n, op.n * op.n }

func (op *SymmetricKronecker) T() Operator { return op }

// MulVec applies the covariance to a vectorized (row-major) n by n matrix.
func (op *SymmetricKronecker) MulVec(v mat.Vector) *mat.VecDense {
	n := op.n
	if v.Len() != n*n {
		panic(mat.ErrShape)
	}
	V := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			V.Set(i, j, v.AtVec(i*n+j))
		}
	}
	W := ToDense(op.w)

	// (W V W^T + W V^T W^T) / 2
	var wv, wvw, wvt, wvtw, out mat.Dense
	wv.Mul(W, V)
	wvw.Mul(&wv, W.T())
	wvt.Mul(W, V.T())
	wvtw.Mul(&wvt, W.T())
	out.Add(&wvw, &wvtw)
	out.Scale(0.5, &out)

	res := mat.NewVecDense(n*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			res.SetVec(i*n+j, out.At(i, j))
		}
	}
	return res
}

// Trace returns tr(W (x)_s W) = (tr(W)^2 + tr(W^2)) / 2.
func (op *SymmetricKronecker) Trace() float64 {
	trW := Trace(op.w)
	var trWW float64
	e := mat.NewVecDense(op.n, nil)
	for i := 0; i < op.n; i++ {
		e.Zero()
		e.SetVec(i, 1)
		trWW += op.w.MulVec(op.w.MulVec(e)).AtVec(i)
	}
	return 0.5 * (trW*trW + trWW)
}
