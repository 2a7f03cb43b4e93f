package linsolve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
)

// priorParams is the consistent quadruple every solve starts from: prior
// means for A and H = A^-1 and the factors W^A, W^H of their symmetric
// Kronecker covariances.
type priorParams struct {
	aMean linops.Operator
	aCov  linops.Operator
	hMean linops.Operator
	hCov  linops.Operator
}

// resolvePriors derives the prior quadruple from the supplied beliefs and
// the optional initial guess. The system operator a enters twice: rule 2
// probes it when b'x0 = 0, and in the noise-free variant it doubles as the
// covariance factor of A (symmetric posterior correspondence). The returned
// vector is the possibly adjusted copy of x0 the iteration must start from.
//
// The cases are checked in a fixed priority order; combinations not covered
// fail with ErrUnsupportedPrior.
func resolvePriors(a linops.Operator, b *mat.VecDense, a0, ainv0 Prior, x0 *mat.VecDense, noisy bool) (priorParams, *mat.VecDense, []Warning, error) {
	n := b.Len()
	var warns []Warning

	aCovDefault := func() linops.Operator {
		// The noise-free symmetric solver uses A itself as the
		// covariance factor of A, which enforces the symmetric
		// posterior correspondence. Under noisy observations that
		// correspondence does not hold and a standard normal prior is
		// used instead.
		if noisy {
			return linops.NewIdentity(n)
		}
		return a
	}

	// No matrix priors specified.
	if a0.kind == priorNone && ainv0.kind == priorNone {
		if x0 == nil {
			return priorParams{
				aMean: linops.NewIdentity(n),
				aCov:  aCovDefault(),
				hMean: linops.NewIdentity(n),
				hCov:  linops.NewIdentity(n),
			}, nil, warns, nil
		}
		// Construct matrix priors from the initial guess.
		aMean, hMean, adjusted := priorMeansFromGuess(a, b, x0)
		return priorParams{
			aMean: aMean,
			aCov:  aCovDefault(),
			hMean: hMean,
			hCov:  hMean,
		}, adjusted, warns, nil
	}

	// Prior on Ainv specified (A at most as a plain operator).
	if a0.kind != priorBelief && ainv0.kind != priorNone {
		var p priorParams
		switch ainv0.kind {
		case priorBelief:
			p.hMean = ainv0.mean
			p.hCov = ainv0.covFactor
		default:
			p.hMean = ainv0.mean
			if noisy {
				p.hCov = linops.NewIdentity(n)
			} else {
				// Symmetric posterior correspondence.
				p.hCov = ainv0.mean
			}
		}
		if a0.kind == priorOperator {
			p.aMean = a0.mean
		} else {
			var w []Warning
			p.aMean, w = invertPriorMean(p.hMean, "Ainv")
			warns = append(warns, w...)
		}
		p.aCov = aCovDefault()
		return p, cloneVec(x0), warns, nil
	}

	// Prior on A specified (Ainv at most as a plain operator).
	if a0.kind != priorNone && ainv0.kind != priorBelief {
		var p priorParams
		switch a0.kind {
		case priorBelief:
			p.aMean = a0.mean
			p.aCov = a0.covFactor
		default:
			p.aMean = a0.mean
			if noisy {
				p.aCov = linops.NewIdentity(n)
			} else {
				// Symmetric posterior correspondence.
				p.aCov = a0.mean
			}
		}
		if ainv0.kind == priorOperator {
			p.hMean = ainv0.mean
		} else {
			var w []Warning
			p.hMean, w = invertPriorMean(p.aMean, "A")
			warns = append(warns, w...)
		}
		if noisy {
			p.hCov = linops.NewIdentity(n)
		} else {
			// Symmetric posterior correspondence.
			p.hCov = p.hMean
		}
		return p, cloneVec(x0), warns, nil
	}

	// Both priors given as full beliefs.
	if a0.kind == priorBelief && ainv0.kind == priorBelief {
		return priorParams{
			aMean: a0.mean,
			aCov:  a0.covFactor,
			hMean: ainv0.mean,
			hCov:  ainv0.covFactor,
		}, cloneVec(x0), warns, nil
	}

	return priorParams{}, nil, nil, ErrUnsupportedPrior
}

// priorMeansFromGuess constructs prior means for A and H from an initial
// solution guess such that H0 b = x0, H0 is symmetric positive definite and
// A0 = H0^-1. Both means are rank-1 perturbations of scaled identities and
// stay lazy.
//
// If b'x0 < 0 the guess is negated; if b'x0 = 0 the guess is replaced by
// (b'b / b'Ab) b to avoid a degenerate direction. The adjusted copy is
// returned.
func priorMeansFromGuess(a linops.Operator, b, x0 *mat.VecDense) (aMean, hMean linops.Operator, adjusted *mat.VecDense) {
	n := b.Len()
	x := cloneVec(x0)

	bx0 := mat.Dot(b, x)
	bb := mat.Dot(b, b)
	if bx0 < 0 {
		x.ScaleVec(-1, x)
		bx0 = -bx0
	} else if bx0 == 0 {
		bAb := mat.Dot(b, a.MulVec(b))
		x.ScaleVec(bb/bAb, b)
		bx0 = bb * bb / bAb
	}

	alpha := 0.5 * bx0 / bb

	// d = x0 - alpha b
	d := mat.NewVecDense(n, nil)
	d.AddScaledVec(x, -alpha, b)

	// H0 = alpha I + 2/(b'x0) d d'
	hMean = linops.Add(
		linops.NewScalar(alpha, n),
		linops.Scale(2/bx0, linops.NewRankOne(d, d)),
	)
	// A0 = 1/alpha I - 1/(alpha d'x0) d d'
	aMean = linops.Sub(
		linops.NewScalar(1/alpha, n),
		linops.Scale(1/(alpha*mat.Dot(d, x)), linops.NewRankOne(d, d)),
	)
	return aMean, hMean, x
}

// invertPriorMean inverts a prior mean to obtain the mean of the
// complementary belief. Operators with a cheap inverse are inverted
// directly; everything else is materialized and inverted at O(n^3) with a
// cost warning. If that fails the identity is used instead and a fallback
// warning is recorded. The which argument names the belief the caller gave.
func invertPriorMean(op linops.Operator, which string) (linops.Operator, []Warning) {
	if inv, ok := op.(linops.Inverser); ok {
		if res, err := inv.Inv(); err == nil {
			return res, nil
		}
	}

	n, _ := op.Dims()
	var invDense mat.Dense
	if err := invDense.Inverse(linops.ToDense(op)); err != nil {
		return linops.NewIdentity(n), []Warning{{
			Code: WarnInversionFallback,
			Message: fmt.Sprintf("prior specified only for %s: prior mean inversion failed, "+
				"falling back to standard normal prior", which),
		}}
	}
	return linops.NewDense(&invDense), []Warning{{
		Code: WarnCostlyInversion,
		Message: fmt.Sprintf("prior specified only for %s: inverting prior mean naively; "+
			"this operation is computationally costly, specify an inverse prior mean instead", which),
	}}
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	if v == nil {
		return nil
	}
	res := mat.NewVecDense(v.Len(), nil)
	res.CloneFromVec(v)
	return res
}
