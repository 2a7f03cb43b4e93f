package linsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minCalibrationIters is the smallest iteration count for which the
// Rayleigh-quotient regression has enough points to be meaningful.
const minCalibrationIters = 5

// calibrate builds a regression model of the log-Rayleigh quotient
// log(s'y) - log(s's) over the iteration index and predicts the quotient in
// the dimensions the solver never explored. The returned scales inflate the
// covariance factor of A by phi = mean(R) and of H by psi = mean(1/R) in the
// unexplored subspace.
//
// The series is split into a closed-form linear trend and a detrended
// residual signal; the residual is interpolated by a Gaussian-process
// regression with a unit squared-exponential kernel and extrapolated to the
// remaining indices. ok is false when fewer than minCalibrationIters+1
// iterations ran, when no dimensions remain unexplored, or when a
// non-positive quotient makes the log-model inapplicable.
func calibrate(dirs []*mat.VecDense, sy []float64, n int) (phi, psi float64, ok bool) {
	k := len(sy)
	if k <= minCalibrationIters || k >= n {
		return 0, 0, false
	}

	iters := make([]float64, k)
	logR := make([]float64, k)
	for i := 0; i < k; i++ {
		ss := mat.Dot(dirs[i], dirs[i])
		if sy[i] <= 0 || ss <= 0 {
			return 0, 0, false
		}
		iters[i] = float64(i)
		logR[i] = math.Log(sy[i]) - math.Log(ss)
	}

	// Least-squares linear trend of the log-Rayleigh quotient.
	beta0, beta1 := stat.LinearRegression(iters, logR, nil, false)

	detrended := make([]float64, k)
	for i := range logR {
		detrended[i] = logR[i] - beta0 - beta1*iters[i]
	}

	predict := gpPredictor(iters, detrended)

	// Predicted Rayleigh quotients in the unexplored dimensions.
	rs := make([]float64, n-k)
	invRs := make([]float64, n-k)
	for j := k; j < n; j++ {
		r := math.Exp(predict(float64(j)) + beta0 + beta1*float64(j))
		rs[j-k] = r
		invRs[j-k] = 1 / r
	}
	m := float64(n - k)
	return floats.Sum(rs) / m, floats.Sum(invRs) / m, true
}

// gpPredictor fits a zero-mean Gaussian-process regression with a unit
// squared-exponential kernel to (xs, ys) and returns the posterior mean
// function. A small diagonal jitter keeps the kernel matrix factorizable.
func gpPredictor(xs, ys []float64) func(x float64) float64 {
	k := len(xs)
	gram := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			gram.SetSym(i, j, rbf(xs[i], xs[j]))
		}
		gram.SetSym(i, i, gram.At(i, i)+1e-10)
	}

	alpha := mat.NewVecDense(k, nil)
	y := mat.NewVecDense(k, ys)
	var chol mat.Cholesky
	if chol.Factorize(gram) {
		if err := chol.SolveVecTo(alpha, y); err != nil {
			panic(err)
		}
	} else {
		// Severely ill-conditioned kernel matrix; fall back to a
		// generic dense solve.
		if err := alpha.SolveVec(gram, y); err != nil {
			panic(err)
		}
	}

	return func(x float64) float64 {
		var res float64
		for i := 0; i < k; i++ {
			res += rbf(x, xs[i]) * alpha.AtVec(i)
		}
		return res
	}
}

// rbf is the squared-exponential kernel with unit variance and length-scale.
func rbf(x, y float64) float64 {
	d := x - y
	return math.Exp(-0.5 * d * d)
}
