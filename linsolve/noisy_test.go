package linsolve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
	"github.com/simeoncarstens/probnum/randvar"
)

func TestSolveNoisyNegativeNoiseScale(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	called := false
	_, err := SolveNoisy(a, b, Options{
		MaxIter:    10,
		NoiseScale: -0.1,
		Callback: func(IterationSnapshot) error {
			called = true
			return nil
		},
	})
	assert.ErrorIs(t, err, ErrNegativeNoiseScale)
	assert.False(t, called, "no iteration may run on a configuration error")
}

func TestSolveNoisyApproachesSolution(t *testing.T) {
	a := mat.NewDense(4, 4, []float64{
		2, 0, 0, 0,
		0, 2.2, 0, 0,
		0, 0, 2.5, 0,
		0, 0, 0, 3,
	})
	b := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	// Deterministic operator, so the only deviation from the noise-free
	// variant is the damping of the mean updates. After n iterations the
	// explored subspace is exhausted, so the cap equals the dimension.
	res, err := SolveNoisy(linops.NewDense(a), b, Options{MaxIter: 4, Ctol: 1e-14, NoiseScale: 0.001})
	require.NoError(t, err)

	want := solveDense(a, b)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, want.AtVec(i), res.X.Mean().AtVec(i), 0.02)
	}
	assert.Equal(t, CriterionMaxIter, res.Info.Criterion)
	assert.Greater(t, res.Info.TraceSolCov, 0.0)
}

func TestSolveNoisyCovarianceCriterion(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	// The prior solution covariance trace for W^H = I is
	// (n b'b + b'b) / 2; any larger tolerance stops immediately.
	res, err := SolveNoisy(a, b, Options{MaxIter: 10, Ctol: 1e3})
	require.NoError(t, err)
	assert.Equal(t, CriterionCov, res.Info.Criterion)
	assert.Equal(t, 0, res.Info.Iterations)
	assert.Empty(t, res.Info.Warnings)
}

func TestSolveNoisyBelief(t *testing.T) {
	mean := mat.NewDense(3, 3, []float64{2, 0, 0, 0, 2.5, 0, 0, 0, 3})
	belief := randvar.NewMatrixNormal(linops.NewDense(mean), linops.NewScalar(1e-6, 3))
	b := mat.NewVecDense(3, []float64{1, 2, 3})

	res, err := SolveNoisyBelief(belief, b, Options{
		MaxIter:    3,
		Ctol:       1e-14,
		NoiseScale: 0.05,
		Rand:       rand.New(rand.NewSource(17)),
	})
	require.NoError(t, err)

	// Observations are noisy draws, so only loose agreement is expected.
	want := solveDense(mean, b)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want.AtVec(i), res.X.Mean().AtVec(i), 0.05)
	}
}

func TestSolveNoisyCallbackWithholdsResidual(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	var snaps int
	cb := func(snap IterationSnapshot) error {
		snaps++
		assert.Nil(t, snap.Residual)
		assert.True(t, math.IsNaN(snap.StepSize))
		return nil
	}
	res, err := SolveNoisy(a, b, Options{MaxIter: 2, Ctol: 1e-14, Callback: cb})
	require.NoError(t, err)
	assert.Equal(t, res.Info.Iterations, snaps)
}

func TestSolveNoisyDefaultsReproducible(t *testing.T) {
	mean := mat.NewDense(3, 3, []float64{2, 0, 0, 0, 2.5, 0, 0, 0, 3})
	b := mat.NewVecDense(3, []float64{1, -1, 2})

	run := func() *mat.VecDense {
		belief := randvar.NewMatrixNormal(linops.NewDense(mean), linops.NewScalar(1e-6, 3))
		res, err := SolveNoisyBelief(belief, b, Options{MaxIter: 3, Ctol: 1e-14})
		require.NoError(t, err)
		return res.X.Mean()
	}

	first, second := run(), run()
	assert.True(t, mat.EqualApprox(first, second, 0),
		"nil Rand must make the solve reproducible")
}
