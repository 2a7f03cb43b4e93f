package linsolve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/gonumext"
	"github.com/simeoncarstens/probnum/linops"
	"github.com/simeoncarstens/probnum/randvar"
)

// noisySolver holds the state of one noisy-symmetric solve.
type noisySolver struct {
	a linops.Operator
	b *mat.VecDense
	n int

	aMean *linops.SymRankTwoSum
	aCov  *linops.RankOneDowndateSum
	hMean *linops.SymRankTwoSum
	hCov  *linops.RankOneDowndateSum

	xMean *mat.VecDense
	// Covariance of the solution, the pushforward of the prior belief
	// over H through H -> H b. A per-iteration refinement from the
	// posterior factor would need a recurrence for the damped noisy
	// updates that is not known; the prior-based value is kept for the
	// whole solve and drives the covariance stopping rule.
	xCov      linops.Operator
	xCovTrace float64

	sy       []float64
	rayleigh []float64

	warns []Warning
	iter  int
}

// SolveNoisy runs the noisy-symmetric probabilistic linear solver on
// A x = b, treating every product with A as an unreliable observation with
// noise level opts.NoiseScale. Convergence is judged by the trace of the
// solution covariance rather than by residuals, which are not meaningful
// measurements under noise.
func SolveNoisy(a linops.Operator, b *mat.VecDense, opts Options) (*Result, error) {
	if opts.NoiseScale < 0 {
		return nil, ErrNegativeNoiseScale
	}
	opts = opts.withDefaults()
	if err := checkSystem(a, b); err != nil {
		return nil, err
	}

	pp, x0, warns, err := resolvePriors(a, b, opts.A0, opts.Ainv0, opts.X0, true)
	if err != nil {
		return nil, err
	}

	damp := 1 / (1 + opts.NoiseScale)
	s := &noisySolver{
		a:     a,
		b:     b,
		n:     b.Len(),
		aMean: linops.NewSymRankTwoSum(pp.aMean, damp),
		aCov:  linops.NewRankOneDowndateSum(pp.aCov),
		hMean: linops.NewSymRankTwoSum(pp.hMean, damp),
		hCov:  linops.NewRankOneDowndateSum(pp.hCov),
		warns: warns,
	}
	if x0 != nil {
		s.xMean = x0
	} else {
		s.xMean = s.hMean.MulVec(b)
	}
	s.xCov = randvar.PushforwardCov(pp.hCov, b)
	s.xCovTrace = linops.Trace(s.xCov)

	return s.run(opts)
}

// SolveNoisyBelief runs the noisy-symmetric solver when the system matrix is
// itself a Gaussian belief. Every matrix-vector query draws a fresh sample
// from the belief, so each observation is stochastic. Sampling uses
// opts.Rand.
func SolveNoisyBelief(a *randvar.MatrixNormal, b *mat.VecDense, opts Options) (*Result, error) {
	if opts.NoiseScale < 0 {
		return nil, ErrNegativeNoiseScale
	}
	opts = opts.withDefaults()
	rnd := opts.Rand

	n, _ := a.Mean().Dims()
	sampling := linops.NewFunc(n, n, func(v mat.Vector) *mat.VecDense {
		return a.MulVecSample(rnd, v)
	}, nil)
	return SolveNoisy(sampling, b, opts)
}

func (s *noisySolver) run(opts Options) (*Result, error) {
	var criterion string
	for {
		v, w := checkCovarianceConvergence(s.iter, opts.MaxIter, s.xCovTrace, opts.Ctol)
		s.warns = append(s.warns, w...)
		if v.converged {
			criterion = v.criterion
			break
		}

		// The residual is recomputed from scratch: with stochastic
		// observations an incremental update would accumulate noise.
		resid := s.a.MulVec(s.xMean)
		resid.SubVec(resid, s.b)

		dir := s.hMean.MulVec(resid)
		dir.ScaleVec(-1, dir)

		obs := s.a.MulVec(dir)
		if gonumext.HasNaNOrInf(dir) || gonumext.HasNaNOrInf(obs) {
			return nil, fmt.Errorf("%w: non-finite direction or observation at iteration %d",
				ErrDegenerateDirection, s.iter)
		}

		sy := mat.Dot(dir, obs)
		if err := checkDenominator(sy, mat.Norm(dir, 2)*mat.Norm(obs, 2), "s'y", s.iter); err != nil {
			return nil, err
		}
		step := -mat.Dot(dir, resid) / sy

		s.xMean.AddScaledVec(s.xMean, step, dir)

		if err := s.update(dir, obs); err != nil {
			return nil, err
		}

		s.sy = append(s.sy, sy)
		s.rayleigh = append(s.rayleigh, sy/mat.Dot(dir, dir))
		s.iter++

		if opts.Callback != nil {
			err := opts.Callback(IterationSnapshot{
				Iteration:   s.iter,
				X:           s.xMean,
				SearchDir:   dir,
				Observation: obs,
				StepSize:    math.NaN(),
				Residual:    nil,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	x, av, hv := assemblePosterior(s.b, s.xMean, s.aMean, s.hMean, s.aCov, s.hCov,
		nil, nil, 0, 0, false, s.xCov)

	return &Result{
		X:    x,
		A:    av,
		Ainv: hv,
		Info: Info{
			Iterations:  s.iter,
			MaxIter:     opts.MaxIter,
			TraceSolCov: s.xCovTrace,
			Criterion:   criterion,
			Warnings:    s.warns,
		},
		rayleigh: s.rayleigh,
	}, nil
}

// update conditions both matrix beliefs on the noisy observation pair. The
// rank-2 mean updates are damped by 1/(1+noise_scale) through the
// accumulators to down-weight unreliable observations; the covariance
// downdates are not damped.
func (s *noisySolver) update(dir, obs *mat.VecDense) error {
	uA, vA, vs, err := rankTwoVectors(s.aMean, s.aCov, dir, obs, "s'(W^A)s", s.iter)
	if err != nil {
		return err
	}
	uH, vH, wy, err := rankTwoVectors(s.hMean, s.hCov, obs, dir, "y'(W^H)y", s.iter)
	if err != nil {
		return err
	}

	s.aMean.Append(uA, vA)
	s.aCov.Append(uA, vs)
	s.hMean.Append(uH, vH)
	s.hCov.Append(uH, wy)
	return nil
}
