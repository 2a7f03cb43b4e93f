package linsolve

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
	"github.com/simeoncarstens/probnum/randvar"
)

type priorKind int

const (
	priorNone priorKind = iota
	priorOperator
	priorBelief
)

// Prior is the belief a caller supplies over the system matrix A or its
// inverse H before any observation: absent, a plain operator used as the
// mean, or a full Gaussian belief with mean and covariance factor.
type Prior struct {
	kind      priorKind
	mean      linops.Operator
	covFactor linops.Operator
}

// NoPrior marks a prior as absent. The zero Prior value is equivalent.
func NoPrior() Prior { return Prior{} }

// OperatorPrior uses op as the prior mean. The covariance factor is chosen
// by the solver variant.
func OperatorPrior(op linops.Operator) Prior {
	return Prior{kind: priorOperator, mean: op}
}

// BeliefPrior uses the mean and covariance factor of a full matrix-variate
// Gaussian belief.
func BeliefPrior(rv *randvar.MatrixNormal) Prior {
	return Prior{kind: priorBelief, mean: rv.Mean(), covFactor: rv.CovFactor()}
}

// IterationSnapshot carries the per-iteration quantities handed to a
// Callback. The referenced vectors belong to the solver; callbacks must not
// mutate them. In the noisy variant Residual is nil and StepSize is NaN,
// since neither is a reliable measurement under noise.
type IterationSnapshot struct {
	Iteration   int
	X           *mat.VecDense
	SearchDir   *mat.VecDense
	Observation *mat.VecDense
	StepSize    float64
	Residual    *mat.VecDense
}

// Callback is called synchronously on the solving goroutine after each
// iteration. A non-nil error aborts the solve and is returned to the caller
// unchanged.
type Callback func(IterationSnapshot) error

// Options configures a solve. MaxIter is the hard iteration cap and must be
// set deliberately; MaxIter = 0 returns the prior belief untouched.
type Options struct {
	// MaxIter is the hard cap on the number of iterations.
	MaxIter int

	// Atol and Rtol are the absolute and relative residual tolerances of
	// the noise-free variant. Zero values default to 1e-6.
	Atol float64
	Rtol float64

	// Ctol is the solution-covariance trace tolerance of the noisy
	// variant. A zero value defaults to 1e-6.
	Ctol float64

	// NoiseScale is the assumed observation-noise level of the noisy
	// variant. A zero value defaults to 0.01; negative values are a
	// configuration error.
	NoiseScale float64

	// NoCalibration disables the Rayleigh-quotient uncertainty
	// calibration that otherwise runs after a noise-free solve.
	NoCalibration bool

	// A0 and Ainv0 are optional prior beliefs over A and H = A^-1.
	A0    Prior
	Ainv0 Prior

	// X0 is an optional initial guess for the solution.
	X0 *mat.VecDense

	// Callback, if set, receives the quantities of every iteration.
	Callback Callback

	// Rand is the randomness source used when sampling observations from
	// a belief over A. A nil value uses a fixed-seed source, making the
	// solve reproducible.
	Rand *rand.Rand
}

func (opts Options) withDefaults() Options {
	if opts.Atol == 0 {
		opts.Atol = 1e-6
	}
	if opts.Rtol == 0 {
		opts.Rtol = 1e-6
	}
	if opts.Ctol == 0 {
		opts.Ctol = 1e-6
	}
	if opts.NoiseScale == 0 {
		opts.NoiseScale = 0.01
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	return opts
}

// Info reports how a solve terminated.
type Info struct {
	// Iterations is the number of completed iterations.
	Iterations int
	// MaxIter is the configured iteration cap.
	MaxIter int
	// ResidualNorm is the 2-norm of the final residual (noise-free
	// variant only).
	ResidualNorm float64
	// TraceSolCov is the trace of the posterior solution covariance.
	TraceSolCov float64
	// Criterion names the stopping rule that fired: "maxiter",
	// "resid_atol", "resid_rtol" or "covariance".
	Criterion string
	// RelCond is reserved for a relative condition number estimate and is
	// currently always nil.
	RelCond *float64
	// Warnings collects the advisory conditions of the solve.
	Warnings []Warning
}

// Result bundles the three posterior beliefs and the convergence record of
// one solve.
type Result struct {
	// X is the posterior belief over the solution.
	X *randvar.Normal
	// A is the posterior belief over the system matrix.
	A *randvar.MatrixNormal
	// Ainv is the posterior belief over the inverse H = A^-1.
	Ainv *randvar.MatrixNormal
	// Info reports convergence information.
	Info Info

	residHistory []float64
	rayleigh     []float64
}

// Rayleigh returns the Rayleigh quotients s'y / s's observed at each
// iteration, in order.
func (r *Result) Rayleigh() []float64 { return r.rayleigh }

// ResidualHistory returns the residual 2-norm at the start of each
// iteration, in order. It is empty for the noisy variant.
func (r *Result) ResidualHistory() []float64 { return r.residHistory }
