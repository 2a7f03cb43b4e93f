// Package linops implements lazily evaluated linear operators: linear maps
// represented by their action on vectors rather than by a materialized
// array. Operators compose additively and multiplicatively; each composite
// owns references to its operands, so composition always forms a directed
// acyclic graph wrapping previous operators.
package linops

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Operator is a real linear map represented by its action on vectors.
type Operator interface {
	// Dims returns the number of rows and columns of the operator.
	Dims() (r, c int)
	// MulVec returns the operator applied to v as a new vector.
	MulVec(v mat.Vector) *mat.VecDense
	// T returns the adjoint of the operator.
	T() Operator
}

// Tracer is an Operator that can compute its trace directly.
type Tracer interface {
	Trace() float64
}

// Inverser is an Operator with a cheap inverse.
type Inverser interface {
	Inv() (Operator, error)
}

// ErrSingular is returned when an operator cannot be inverted.
var ErrSingular = errors.New("linops: operator is singular")

// identity is the n by n identity map.
type identity struct {
	n int
}

// NewIdentity returns the identity operator of dimension n.
func NewIdentity(n int) Operator {
	return identity{n: n}
}

func (op identity) Dims() (int, int) { return op.n, op.n }

func (op identity) T() Operator { return op }

func (op identity) MulVec(v mat.Vector) *mat.VecDense {
	res := mat.NewVecDense(op.n, nil)
	res.CloneFromVec(v)
	return res
}

func (op identity) Trace() float64 { return float64(op.n) }

func (op identity) Inv() (Operator, error) { return op, nil }

// scalar is the map v -> alpha*v, a scaled identity.
type scalar struct {
	alpha float64
	n     int
}

// NewScalar returns the operator alpha*I of dimension n.
func NewScalar(alpha float64, n int) Operator {
	return scalar{alpha: alpha, n: n}
}

func (op scalar) Dims() (int, int) { return op.n, op.n }

func (op scalar) T() Operator { return op }

func (op scalar) MulVec(v mat.Vector) *mat.VecDense {
	res := mat.NewVecDense(op.n, nil)
	res.ScaleVec(op.alpha, v)
	return res
}

func (op scalar) Trace() float64 { return op.alpha * float64(op.n) }

func (op scalar) Inv() (Operator, error) {
	if op.alpha == 0 {
		return nil, ErrSingular
	}
	return scalar{alpha: 1 / op.alpha, n: op.n}, nil
}

// dense wraps a materialized matrix as an operator.
type dense struct {
	m mat.Matrix
}

// NewDense wraps a materialized matrix as an operator. The operator keeps a
// reference to m; the caller must not mutate it afterwards.
func NewDense(m mat.Matrix) Operator {
	return dense{m: m}
}

func (op dense) Dims() (int, int) { return op.m.Dims() }

func (op dense) T() Operator { return dense{m: op.m.T()} }

func (op dense) MulVec(v mat.Vector) *mat.VecDense {
	r, _ := op.m.Dims()
	res := mat.NewVecDense(r, nil)
	res.MulVec(op.m, v)
	return res
}

func (op dense) Trace() float64 {
	r, c := op.m.Dims()
	if r != c {
		panic("linops: trace of non-square operator")
	}
	var tr float64
	for i := 0; i < r; i++ {
		tr += op.m.At(i, i)
	}
	return tr
}

// rankOne is the map v -> u (w . v), i.e. the outer product u w^T.
type rankOne struct {
	u, w *mat.VecDense
}

// NewRankOne returns the outer product operator u w^T.
func NewRankOne(u, w *mat.VecDense) Operator {
	return rankOne{u: u, w: w}
}

func (op rankOne) Dims() (int, int) { return op.u.Len(), op.w.Len() }

func (op rankOne) T() Operator { return rankOne{u: op.w, w: op.u} }

func (op rankOne) MulVec(v mat.Vector) *mat.VecDense {
	res := mat.NewVecDense(op.u.Len(), nil)
	res.ScaleVec(mat.Dot(op.w, v), op.u)
	return res
}

func (op rankOne) Trace() float64 {
	if op.u.Len() != op.w.Len() {
		panic("linops: trace of non-square operator")
	}
	return mat.Dot(op.u, op.w)
}

// funcOp is a closure-backed operator.
type funcOp struct {
	r, c int
	mv   func(v mat.Vector) *mat.VecDense
	mvT  func(v mat.Vector) *mat.VecDense
}

// NewFunc returns an operator backed by the given apply closure. The adjoint
// closure may be nil for symmetric maps, in which case T returns the
// operator itself.
func NewFunc(r, c int, mv, mvT func(v mat.Vector) *mat.VecDense) Operator {
	return funcOp{r: r, c: c, mv: mv, mvT: mvT}
}

func (op funcOp) Dims() (int, int) { return op.r, op.c }

func (op funcOp) T() Operator {
	if op.mvT == nil {
		return op
	}
	return funcOp{r: op.c, c: op.r, mv: op.mvT, mvT: op.mv}
}

func (op funcOp) MulVec(v mat.Vector) *mat.VecDense { return op.mv(v) }

// MulMat applies op to every column of m and returns the result.
func MulMat(op Operator, m mat.Matrix) *mat.Dense {
	rm, cm := m.Dims()
	r, c := op.Dims()
	if c != rm {
		panic(mat.ErrShape)
	}
	res := mat.NewDense(r, cm, nil)
	col := mat.NewVecDense(rm, nil)
	for j := 0; j < cm; j++ {
		for i := 0; i < rm; i++ {
			col.SetVec(i, m.At(i, j))
		}
		res.SetCol(j, op.MulVec(col).RawVector().Data)
	}
	return res
}

// ToDense materializes the operator by applying it to the standard basis.
func ToDense(op Operator) *mat.Dense {
	r, c := op.Dims()
	res := mat.NewDense(r, c, nil)
	e := mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		e.Zero()
		e.SetVec(j, 1)
		res.SetCol(j, op.MulVec(e).RawVector().Data)
	}
	return res
}

// Trace computes the trace of a square operator, using the operator's own
// Trace method when available and basis application otherwise.
func Trace(op Operator) float64 {
	if t, ok := op.(Tracer); ok {
		return t.Trace()
	}
	r, c := op.Dims()
	if r != c {
		panic("linops: trace of non-square operator")
	}
	var tr float64
	e := mat.NewVecDense(c, nil)
	for i := 0; i < c; i++ {
		e.Zero()
		e.SetVec(i, 1)
		tr += op.MulVec(e).AtVec(i)
	}
	return tr
}
