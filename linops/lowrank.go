package linops

import (
	"gonum.org/v1/gonum/mat"
)

// SymRankTwoSum accumulates symmetric rank-2 perturbations of a base
// operator,
//
//	base + damp * sum_k (u_k v_k^T + v_k u_k^T).
//
// The pairs are stored as flat column histories instead of nested operator
// sums, so the evaluation depth stays constant no matter how many updates
// have been appended. The base operator is assumed symmetric; the
// accumulated perturbations are symmetric by construction.
type SymRankTwoSum struct {
	base Operator
	damp float64
	u, v []*mat.VecDense
}

// NewSymRankTwoSum returns an accumulator around base. Every appended rank-2
// term is scaled by damp; use damp = 1 for undamped updates.
func NewSymRankTwoSum(base Operator, damp float64) *SymRankTwoSum {
	r, c := base.Dims()
	if r != c {
		panic(mat.ErrShape)
	}
	return &SymRankTwoSum{base: base, damp: damp}
}

// Append adds the symmetric rank-2 term u v^T + v u^T. The accumulator keeps
// references to u and v; the caller must not mutate them afterwards.
func (op *SymRankTwoSum) Append(u, v *mat.VecDense) {
	op.u = append(op.u, u)
	op.v = append(op.v, v)
}

// Len returns the number of appended rank-2 terms.
func (op *SymRankTwoSum) Len() int { return len(op.u) }

func (op *SymRankTwoSum) Dims() (int, int) { return op.base.Dims() }

func (op *SymRankTwoSum) T() Operator { return op }

func (op *SymRankTwoSum) MulVec(x mat.Vector) *mat.VecDense {
	res := op.base.MulVec(x)
	for k := range op.u {
		res.AddScaledVec(res, op.damp*mat.Dot(op.v[k], x), op.u[k])
		res.AddScaledVec(res, op.damp*mat.Dot(op.u[k], x), op.v[k])
	}
	return res
}

func (op *SymRankTwoSum) Trace() float64 {
	tr := Trace(op.base)
	for k := range op.u {
		tr += 2 * op.damp * mat.Dot(op.u[k], op.v[k])
	}
	return tr
}

// RankOneDowndateSum accumulates rank-1 downdates of a base operator,
//
//	base - sum_k u_k w_k^T,
//
// with the same flat column-history storage as SymRankTwoSum. In the solver
// each pair satisfies u_k = w_k / (p_k . w_k), making every downdate
// symmetric, so the adjoint is the operator itself.
type RankOneDowndateSum struct {
	base Operator
	u, w []*mat.VecDense
}

// NewRankOneDowndateSum returns a downdate accumulator around base.
func NewRankOneDowndateSum(base Operator) *RankOneDowndateSum {
	r, c := base.Dims()
	if r != c {
		panic(mat.ErrShape)
	}
	return &RankOneDowndateSum{base: base}
}

// Append subtracts the rank-1 term u w^T. The accumulator keeps references
// to u and w; the caller must not mutate them afterwards.
func (op *RankOneDowndateSum) Append(u, w *mat.VecDense) {
	op.u = append(op.u, u)
	op.w = append(op.w, w)
}

// Len returns the number of appended downdates.
func (op *RankOneDowndateSum) Len() int { return len(op.u) }

func (op *RankOneDowndateSum) Dims() (int, int) { return op.base.Dims() }

func (op *RankOneDowndateSum) T() Operator { return op }

func (op *RankOneDowndateSum) MulVec(x mat.Vector) *mat.VecDense {
	res := op.base.MulVec(x)
	for k := range op.u {
		res.AddScaledVec(res, -mat.Dot(op.w[k], x), op.u[k])
	}
	return res
}

func (op *RankOneDowndateSum) Trace() float64 {
	tr := Trace(op.base)
	for k := range op.u {
		tr -= mat.Dot(op.u[k], op.w[k])
	}
	return tr
}
