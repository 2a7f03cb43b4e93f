// Package randvar implements the Gaussian beliefs the probabilistic solvers
// operate on: vector-valued normal distributions with lazy covariance
// operators, and matrix-variate normal distributions whose covariance is a
// symmetric Kronecker product represented through its factor.
package randvar

import (
	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
)

// Normal is a Gaussian belief over a vector. The covariance is kept as a
// lazy operator so large posteriors never materialize.
type Normal struct {
	mean *mat.VecDense
	cov  linops.Operator
}

// NewNormal returns the Gaussian belief with the given mean and covariance
// operator. The belief keeps references to both; callers must not mutate
// them afterwards.
func NewNormal(mean *mat.VecDense, cov linops.Operator) *Normal {
	r, c := cov.Dims()
	if r != c || r != mean.Len() {
		panic(mat.ErrShape)
	}
	return &Normal{mean: mean, cov: cov}
}

// Mean returns the mean vector.
func (rv *Normal) Mean() *mat.VecDense { return rv.mean }

// Cov returns the covariance operator.
func (rv *Normal) Cov() linops.Operator { return rv.cov }

// CovTrace returns the trace of the covariance operator.
func (rv *Normal) CovTrace() float64 { return linops.Trace(rv.cov) }

// PushforwardCov returns the covariance of M v for a matrix-variate Gaussian
// M with symmetric Kronecker covariance factor w,
//
//	x -> ( (v^T W v) W x + (W v)(W v)^T x ) / 2.
//
// This is the exact covariance of the image of M under the linear map
// M -> M v.
func PushforwardCov(w linops.Operator, v *mat.VecDense) linops.Operator {
	n := v.Len()
	wv := w.MulVec(v)
	vwv := mat.Dot(v, wv)
	mv := func(x mat.Vector) *mat.VecDense {
		res := w.MulVec(x)
		res.ScaleVec(vwv, res)
		res.AddScaledVec(res, mat.Dot(wv, x), wv)
		res.ScaleVec(0.5, res)
		return res
	}
	return linops.NewFunc(n, n, mv, nil)
}
