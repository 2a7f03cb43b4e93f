package linsolve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/gonumext"
	"github.com/simeoncarstens/probnum/linops"
)

// degenTol is the relative floor below which an inner product is treated as
// a degenerate denominator.
const degenTol = 1e-14

// symmetricSolver holds the state of one noise-free solve. The state is
// exclusively owned by the run; independent solves share nothing mutable.
type symmetricSolver struct {
	a linops.Operator
	b *mat.VecDense
	n int

	// Beliefs over A and H, kept as flattened low-rank accumulators.
	aMean *linops.SymRankTwoSum
	aCov  *linops.RankOneDowndateSum
	hMean *linops.SymRankTwoSum
	hCov  *linops.RankOneDowndateSum

	// Current solution estimate.
	x *mat.VecDense

	// Iteration history, append-only.
	dirs       []*mat.VecDense
	obs        []*mat.VecDense
	sy         []float64
	rayleigh   []float64
	residNorms []float64

	warns []Warning
	iter  int
}

// Solve runs the symmetric matrix-based probabilistic linear solver on
// A x = b with noise-free observations. It returns posterior beliefs over
// the solution, the system matrix and its inverse, together with a
// convergence record. Reaching opts.MaxIter is not an error; it is reported
// through Info.Criterion and a warning.
func Solve(a linops.Operator, b *mat.VecDense, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := checkSystem(a, b); err != nil {
		return nil, err
	}

	pp, x0, warns, err := resolvePriors(a, b, opts.A0, opts.Ainv0, opts.X0, false)
	if err != nil {
		return nil, err
	}

	s := &symmetricSolver{
		a:     a,
		b:     b,
		n:     b.Len(),
		aMean: linops.NewSymRankTwoSum(pp.aMean, 1),
		aCov:  linops.NewRankOneDowndateSum(pp.aCov),
		hMean: linops.NewSymRankTwoSum(pp.hMean, 1),
		hCov:  linops.NewRankOneDowndateSum(pp.hCov),
		warns: warns,
	}
	if x0 != nil {
		s.x = x0
	} else {
		s.x = s.hMean.MulVec(b)
	}
	return s.run(opts)
}

func (s *symmetricSolver) run(opts Options) (*Result, error) {
	bNorm := mat.Norm(s.b, 2)

	// r = A x - b, maintained incrementally after the first iteration.
	resid := s.a.MulVec(s.x)
	resid.SubVec(resid, s.b)

	var criterion string
	var residNorm float64
	for {
		rn := mat.Norm(resid, 2)
		v, w := checkResidualConvergence(s.iter, opts.MaxIter, rn, bNorm, opts.Atol, opts.Rtol)
		s.warns = append(s.warns, w...)
		if v.converged {
			criterion = v.criterion
			residNorm = rn
			break
		}
		s.residNorms = append(s.residNorms, rn)

		// Steepest descent under the current inverse estimate.
		dir := s.hMean.MulVec(resid)
		dir.ScaleVec(-1, dir)

		// The one permitted measurement of A this round.
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

		s.x.AddScaledVec(s.x, step, dir)
		resid.AddScaledVec(resid, step, obs)

		if err := s.update(dir, obs); err != nil {
			return nil, err
		}

		s.dirs = append(s.dirs, dir)
		s.obs = append(s.obs, obs)
		s.sy = append(s.sy, sy)
		s.rayleigh = append(s.rayleigh, sy/mat.Dot(dir, dir))
		s.iter++

		if opts.Callback != nil {
			err := opts.Callback(IterationSnapshot{
				Iteration:   s.iter,
				X:           s.x,
				SearchDir:   dir,
				Observation: obs,
				StepSize:    step,
				Residual:    resid,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	var phi, psi float64
	var calibrated bool
	if !opts.NoCalibration {
		phi, psi, calibrated = calibrate(s.dirs, s.sy, s.n)
	}

	x, av, hv := assemblePosterior(s.b, s.x, s.aMean, s.hMean, s.aCov, s.hCov,
		s.dirs, s.obs, phi, psi, calibrated, nil)

	return &Result{
		X:    x,
		A:    av,
		Ainv: hv,
		Info: Info{
			Iterations:   s.iter,
			MaxIter:      opts.MaxIter,
			ResidualNorm: residNorm,
			TraceSolCov:  x.CovTrace(),
			Criterion:    criterion,
			Warnings:     s.warns,
		},
		residHistory: s.residNorms,
		rayleigh:     s.rayleigh,
	}, nil
}

// update conditions both matrix beliefs on the observation pair. The same
// symmetric rank-2 rule applies twice, with the roles of direction and
// observation swapped between A and H.
func (s *symmetricSolver) update(dir, obs *mat.VecDense) error {
	// Belief over A, conditioned on y = A s.
	uA, vA, vs, err := rankTwoVectors(s.aMean, s.aCov, dir, obs, "s'(W^A)s", s.iter)
	if err != nil {
		return err
	}
	// Belief over H, conditioned on s = H y.
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

// rankTwoVectors computes the vectors of the symmetric rank-2 belief update
// for the observation pair (p, q):
//
//	u = W p / (p' W p)
//	v = (q - M p) - (p'(q - M p))/2 u
//
// The updated mean M + u v' + v u' then satisfies the observation exactly
// while its covariance factor W - u (W p)' stays symmetric.
func rankTwoVectors(mean, cov linops.Operator, p, q *mat.VecDense, name string, iter int) (u, v, wp *mat.VecDense, err error) {
	wp = cov.MulVec(p)
	pwp := mat.Dot(p, wp)
	if err := checkDenominator(pwp, mat.Norm(p, 2)*mat.Norm(wp, 2), name, iter); err != nil {
		return nil, nil, nil, err
	}

	u = mat.NewVecDense(p.Len(), nil)
	u.ScaleVec(1/pwp, wp)

	// delta = q - M p
	v = mean.MulVec(p)
	v.SubVec(q, v)
	v.AddScaledVec(v, -0.5*mat.Dot(p, v), u)
	return u, v, wp, nil
}

// checkDenominator guards a division. The value is degenerate when it is
// non-finite or vanishes relative to the scale of its factors; a degenerate
// denominator means the current direction carries no new information and the
// solve aborts rather than silently producing NaN.
func checkDenominator(val, scale float64, name string, iter int) error {
	if math.IsNaN(val) || math.IsInf(val, 0) || math.Abs(val) <= degenTol*scale || val == 0 {
		return fmt.Errorf("%w: %s = %g at iteration %d", ErrDegenerateDirection, name, val, iter)
	}
	return nil
}

// checkSystem validates the shapes of the linear system.
func checkSystem(a linops.Operator, b *mat.VecDense) error {
	r, c := a.Dims()
	if r != c {
		return fmt.Errorf("%w: A is %dx%d, expected square", ErrShapeMismatch, r, c)
	}
	if c != b.Len() {
		return fmt.Errorf("%w: A has %d columns, b has %d rows", ErrShapeMismatch, c, b.Len())
	}
	return nil
}
