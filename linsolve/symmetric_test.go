package linsolve

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/simeoncarstens/probnum/linops"
)

// randomSPD returns a well-conditioned symmetric positive definite matrix.
func randomSPD(n int, rnd *rand.Rand) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, rnd.NormFloat64())
		}
	}
	var spd mat.Dense
	spd.Mul(m.T(), m)
	for i := 0; i < n; i++ {
		spd.Set(i, i, spd.At(i, i)+float64(n))
	}
	return &spd
}

func solveDense(a mat.Matrix, b *mat.VecDense) *mat.VecDense {
	n := b.Len()
	x := mat.NewVecDense(n, nil)
	if err := x.SolveVec(a, b); err != nil {
		panic(err)
	}
	return x
}

func TestSolveDiagonalSystem(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	res, err := Solve(a, b, Options{MaxIter: 10, Atol: 1e-10})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.X.Mean().AtVec(0), 1e-8)
	assert.InDelta(t, 1.0, res.X.Mean().AtVec(1), 1e-8)
	assert.Equal(t, CriterionResidAtol, res.Info.Criterion)
	assert.LessOrEqual(t, res.Info.Iterations, 2)
	assert.Empty(t, res.Info.Warnings)
}

func TestSolveRecoversExactSolution(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	n := 8
	a := randomSPD(n, rnd)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.NormFloat64())
	}

	res, err := Solve(linops.NewDense(a), b, Options{MaxIter: 3 * n, Atol: 1e-10, Rtol: 1e-10})
	require.NoError(t, err)

	want := solveDense(a, b)
	for i := 0; i < n; i++ {
		assert.InDelta(t, want.AtVec(i), res.X.Mean().AtVec(i), 1e-6)
	}

	// The posterior mean of H maps b near the solution as well.
	hb := res.Ainv.Mean().MulVec(b)
	for i := 0; i < n; i++ {
		assert.InDelta(t, want.AtVec(i), hb.AtVec(i), 1e-4)
	}
}

func TestSolveTerminatesWithinNIterations(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	n := 6
	a := randomSPD(n, rnd)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.NormFloat64())
	}

	res, err := Solve(linops.NewDense(a), b, Options{MaxIter: 2 * n, Atol: 1e-8, Rtol: 1e-12})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Info.Iterations, n)
	assert.NotEqual(t, CriterionMaxIter, res.Info.Criterion)
}

func TestSearchDirectionsAConjugate(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	n := 6
	a := randomSPD(n, rnd)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.NormFloat64())
	}

	var dirs []*mat.VecDense
	cb := func(snap IterationSnapshot) error {
		d := mat.NewVecDense(n, nil)
		d.CloneFromVec(snap.SearchDir)
		dirs = append(dirs, d)
		return nil
	}

	_, err := Solve(linops.NewDense(a), b, Options{MaxIter: n, Atol: 1e-12, Rtol: 1e-12, Callback: cb})
	require.NoError(t, err)
	require.Greater(t, len(dirs), 1)

	// Under identity priors the Gram matrix S^T A S must be diagonal.
	for i := range dirs {
		adi := mat.NewVecDense(n, nil)
		adi.MulVec(a, dirs[i])
		sii := mat.Dot(dirs[i], adi)
		for j := range dirs {
			if i == j {
				continue
			}
			adj := mat.NewVecDense(n, nil)
			adj.MulVec(a, dirs[j])
			sjj := mat.Dot(dirs[j], adj)
			cross := mat.Dot(dirs[i], adj)
			assert.InDelta(t, 0, cross/math.Sqrt(sii*sjj), 1e-6,
				"directions %d and %d not A-conjugate", i, j)
		}
	}
}

func TestResidualNonIncreasing(t *testing.T) {
	// Mildly conditioned diagonal system; monotonicity holds up to
	// floating-point roundoff, so the comparison uses a generous factor.
	a := linops.NewDense(mat.NewDense(4, 4, []float64{
		2, 0, 0, 0,
		0, 2.5, 0, 0,
		0, 0, 3, 0,
		0, 0, 0, 3.5,
	}))
	b := mat.NewVecDense(4, []float64{1, -2, 3, -4})

	res, err := Solve(a, b, Options{MaxIter: 10, Atol: 1e-12, Rtol: 1e-12})
	require.NoError(t, err)

	hist := res.ResidualHistory()
	for i := 1; i < len(hist); i++ {
		assert.LessOrEqual(t, hist[i], hist[i-1]*(1+1e-8),
			"residual increased at iteration %d", i)
	}
}

func TestSolveMaxIterZero(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})
	x0 := mat.NewVecDense(2, []float64{5, 7})

	res, err := Solve(a, b, Options{MaxIter: 0, X0: x0})
	require.NoError(t, err)

	assert.Equal(t, CriterionMaxIter, res.Info.Criterion)
	assert.Equal(t, 0, res.Info.Iterations)
	assert.InDelta(t, 5.0, res.X.Mean().AtVec(0), 1e-15)
	assert.InDelta(t, 7.0, res.X.Mean().AtVec(1), 1e-15)

	require.NotEmpty(t, res.Info.Warnings)
	assert.Equal(t, WarnMaxIter, res.Info.Warnings[0].Code)
}

func TestSolveShapeMismatch(t *testing.T) {
	rect := linops.NewDense(mat.NewDense(2, 3, nil))
	b2 := mat.NewVecDense(2, []float64{1, 2})
	_, err := Solve(rect, b2, Options{MaxIter: 1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	square := linops.NewDense(mat.NewDense(3, 3, nil))
	_, err = Solve(square, b2, Options{MaxIter: 1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSolveCallbackAborts(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	boom := errors.New("stop")
	_, err := Solve(a, b, Options{MaxIter: 10, Callback: func(IterationSnapshot) error {
		return boom
	}})
	assert.ErrorIs(t, err, boom)
}

func TestSolveCallbackSnapshots(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	var count int
	cb := func(snap IterationSnapshot) error {
		count++
		assert.Equal(t, count, snap.Iteration)
		assert.False(t, math.IsNaN(snap.StepSize))
		require.NotNil(t, snap.Residual)
		require.NotNil(t, snap.SearchDir)
		require.NotNil(t, snap.Observation)
		return nil
	}
	res, err := Solve(a, b, Options{MaxIter: 10, Atol: 1e-10, Callback: cb})
	require.NoError(t, err)
	assert.Equal(t, res.Info.Iterations, count)
}

func TestSolvePosteriorCovariancePSD(t *testing.T) {
	rnd := rand.New(rand.NewSource(13))
	n := 4
	a := randomSPD(n, rnd)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rnd.NormFloat64())
	}

	// Stop early so the posterior keeps nontrivial uncertainty.
	res, err := Solve(linops.NewDense(a), b, Options{MaxIter: 2, Atol: 1e-14, Rtol: 1e-14})
	require.NoError(t, err)

	for trial := 0; trial < 10; trial++ {
		v := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			v.SetVec(i, rnd.NormFloat64())
		}
		q := mat.Dot(v, res.X.Cov().MulVec(v))
		assert.GreaterOrEqual(t, q, -1e-8, "solution covariance not PSD")

		vv := mat.NewVecDense(n*n, nil)
		for i := 0; i < n*n; i++ {
			vv.SetVec(i, rnd.NormFloat64())
		}
		qa := mat.Dot(vv, res.Ainv.Cov().MulVec(vv))
		assert.GreaterOrEqual(t, qa, -1e-8, "H covariance not PSD")
	}
}

func TestSolveResidualNormReported(t *testing.T) {
	a := linops.NewDense(mat.NewDense(2, 2, []float64{2, 0, 0, 3}))
	b := mat.NewVecDense(2, []float64{2, 3})

	res, err := Solve(a, b, Options{MaxIter: 10, Atol: 1e-10})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Info.ResidualNorm, 1e-10)
	assert.Equal(t, 10, res.Info.MaxIter)
	assert.Nil(t, res.Info.RelCond)
	assert.Len(t, res.Rayleigh(), res.Info.Iterations)
}
