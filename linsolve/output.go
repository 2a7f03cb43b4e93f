package linsolve

import (
	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
	"github.com/simeoncarstens/probnum/randvar"
)

// assemblePosterior builds the three posterior beliefs from the final solver
// state. When calibration scales are present, the covariance factors are
// inflated in the orthogonal complement of the explored subspaces: the span
// of the search directions for A and of the observations for H, via
// P (phi I) P with P the complement projector.
//
// The belief over x is the pushforward of H's belief through H -> H b:
// mean x, covariance v -> ((b'Wb) W v + (W b)(W b)' v) / 2 with W the
// (possibly inflated) covariance factor of H. A non-nil xCov overrides that
// construction; the noisy variant passes its covariance computed from the
// prior.
func assemblePosterior(b, x *mat.VecDense, aMean, hMean, aCov, hCov linops.Operator,
	dirs, obs []*mat.VecDense, phi, psi float64, calibrated bool, xCov linops.Operator,
) (*randvar.Normal, *randvar.MatrixNormal, *randvar.MatrixNormal) {
	n := b.Len()

	if calibrated {
		ps := linops.NewComplementProjector(columns(dirs))
		aCov = linops.Add(aCov, linops.Compose(ps, linops.Compose(linops.NewScalar(phi, n), ps)))

		py := linops.NewComplementProjector(columns(obs))
		hCov = linops.Add(hCov, linops.Compose(py, linops.Compose(linops.NewScalar(psi, n), py)))
	}

	av := randvar.NewMatrixNormal(aMean, aCov)
	hv := randvar.NewMatrixNormal(hMean, hCov)

	if xCov == nil {
		xCov = randvar.PushforwardCov(hCov, b)
	}
	xv := randvar.NewNormal(x, xCov)
	return xv, av, hv
}

// columns stacks the history vectors as the columns of a dense matrix.
func columns(vs []*mat.VecDense) *mat.Dense {
	n := vs[0].Len()
	res := mat.NewDense(n, len(vs), nil)
	for j, v := range vs {
		res.SetCol(j, v.RawVector().Data)
	}
	return res
}
