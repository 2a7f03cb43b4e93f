package linops

import (
	"gonum.org/v1/gonum/mat"
)

// complementProjector is the orthogonal projector onto the complement of the
// column span of S,
//
//	x -> x - S (S^T S)^{-1} S^T x.
type complementProjector struct {
	s    *mat.Dense
	gram *mat.Dense
}

// NewComplementProjector returns the projector onto the orthogonal
// complement of the span of the columns of s.
func NewComplementProjector(s *mat.Dense) Operator {
	_, k := s.Dims()
	gram := mat.NewDense(k, k, nil)
	gram.Mul(s.T(), s)
	return complementProjector{s: s, gram: gram}
}

func (op complementProjector) Dims() (int, int) {
	n, _ := op.s.Dims()
	return n, n
}

func (op complementProjector) T() Operator { return op }

func (op complementProjector) MulVec(v mat.Vector) *mat.VecDense {
	n, k := op.s.Dims()

	// rhs = S^T v
	rhs := mat.NewVecDense(k, nil)
	rhs.MulVec(op.s.T(), v)

	// c = (S^T S)^{-1} S^T v
	c := mat.NewVecDense(k, nil)
	if err := c.SolveVec(op.gram, rhs); err != nil {
		panic(err)
	}

	res := mat.NewVecDense(n, nil)
	res.MulVec(op.s, c)
	res.SubVec(denseVec(v, n), res)
	return res
}

func denseVec(v mat.Vector, n int) *mat.VecDense {
	if vd, ok := v.(*mat.VecDense); ok {
		return vd
	}
	res := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		res.SetVec(i, v.AtVec(i))
	}
	return res
}
