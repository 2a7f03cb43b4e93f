package linsolve

// Names of the stopping criteria reported in Info.Criterion.
const (
	CriterionMaxIter   = "maxiter"
	CriterionResidAtol = "resid_atol"
	CriterionResidRtol = "resid_rtol"
	CriterionCov       = "covariance"
)

type verdict struct {
	converged bool
	criterion string
}

func maxIterWarning() Warning {
	return Warning{
		Code:    WarnMaxIter,
		Message: "iteration terminated: solver reached the maximum number of iterations",
	}
}

// checkResidualConvergence evaluates the stopping criteria of the noise-free
// variant in order: iteration cap, absolute residual tolerance, relative
// residual tolerance. The first match wins.
func checkResidualConvergence(iter, maxiter int, residNorm, bNorm, atol, rtol float64) (verdict, []Warning) {
	if iter >= maxiter {
		return verdict{converged: true, criterion: CriterionMaxIter}, []Warning{maxIterWarning()}
	}
	if residNorm <= atol {
		return verdict{converged: true, criterion: CriterionResidAtol}, nil
	}
	if residNorm <= rtol*bNorm {
		return verdict{converged: true, criterion: CriterionResidRtol}, nil
	}
	return verdict{}, nil
}

// checkCovarianceConvergence evaluates the stopping criteria of the noisy
// variant: iteration cap, then the trace of the solution covariance, which
// remains meaningful when residuals are not.
func checkCovarianceConvergence(iter, maxiter int, traceCov, ctol float64) (verdict, []Warning) {
	if iter >= maxiter {
		return verdict{converged: true, criterion: CriterionMaxIter}, []Warning{maxIterWarning()}
	}
	if traceCov <= ctol {
		return verdict{converged: true, criterion: CriterionCov}, nil
	}
	return verdict{}, nil
}
