package randvar

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
)

// MatrixNormal is a Gaussian belief over a square matrix. Its covariance is
// the symmetric Kronecker product of the covariance factor with itself; only
// the factor is ever stored.
type MatrixNormal struct {
	mean linops.Operator
	cov  *linops.SymmetricKronecker

	// Cached Cholesky factor of the densified covariance factor, built
	// lazily on first sample.
	chol *mat.Cholesky
}

// NewMatrixNormal returns the matrix-variate Gaussian with the given mean
// operator and symmetric Kronecker covariance factor.
func NewMatrixNormal(mean, covFactor linops.Operator) *MatrixNormal {
	rm, cm := mean.Dims()
	rw, cw := covFactor.Dims()
	if rm != cm || rw != cw || rm != rw {
		panic(mat.ErrShape)
	}
	return &MatrixNormal{mean: mean, cov: linops.NewSymmetricKronecker(covFactor)}
}

// Mean returns the mean operator.
func (rv *MatrixNormal) Mean() linops.Operator { return rv.mean }

// Cov returns the symmetric Kronecker covariance operator.
func (rv *MatrixNormal) Cov() *linops.SymmetricKronecker { return rv.cov }

// CovFactor returns the covariance factor W.
func (rv *MatrixNormal) CovFactor() linops.Operator { return rv.cov.Factor() }

// CovTrace returns the trace of the full symmetric Kronecker covariance.
func (rv *MatrixNormal) CovTrace() float64 { return rv.cov.Trace() }

func (rv *MatrixNormal) factorCholesky() *mat.Cholesky {
	if rv.chol != nil {
		return rv.chol
	}
	w := linops.ToDense(rv.CovFactor())
	n, _ := w.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(w.At(i, j)+w.At(j, i)))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		// Jitter the diagonal until the factorization succeeds.
		jitter := 1e-12
		for !chol.Factorize(sym) {
			for i := 0; i < n; i++ {
				sym.SetSym(i, i, sym.At(i, i)+jitter)
			}
			jitter *= 10
		}
	}
	rv.chol = &chol
	return rv.chol
}

// Sample draws one matrix from the belief as mean + (L G L^T + L G^T L^T)/2,
// where L is the Cholesky factor of the covariance factor and G has
// independent standard normal entries. Sampling densifies the covariance
// factor once and caches its factorization.
func (rv *MatrixNormal) Sample(rnd *rand.Rand) *mat.Dense {
	n, _ := rv.mean.Dims()
	chol := rv.factorCholesky()
	var l mat.TriDense
	chol.LTo(&l)

	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			g.Set(i, j, rnd.NormFloat64())
		}
	}

	var lg, lglt, sym mat.Dense
	lg.Mul(&l, g)
	lglt.Mul(&lg, l.T())
	sym.Add(&lglt, lglt.T())
	sym.Scale(0.5, &sym)

	res := linops.ToDense(rv.mean)
	res.Add(res, &sym)
	return res
}

// MulVecSample applies one fresh sample of the belief to v. Each call is an
// independent draw, so repeated calls with the same input do not yield the
// same output.
func (rv *MatrixNormal) MulVecSample(rnd *rand.Rand, v mat.Vector) *mat.VecDense {
	sample := rv.Sample(rnd)
	n, _ := sample.Dims()
	res := mat.NewVecDense(n, nil)
	res.MulVec(sample, v)
	return res
}
