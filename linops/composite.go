package linops

import (
	"gonum.org/v1/gonum/mat"
)

// sum is the operator a + b. It owns references to both operands.
type sum struct {
	a, b Operator
}

// Add returns the lazy sum of two operators of equal dimensions.
func Add(a, b Operator) Operator {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		panic(mat.ErrShape)
	}
	return sum{a: a, b: b}
}

// Sub returns the lazy difference a - b.
func Sub(a, b Operator) Operator {
	return Add(a, Scale(-1, b))
}

func (op sum) Dims() (int, int) { return op.a.Dims() }

func (op sum) T() Operator { return sum{a: op.a.T(), b: op.b.T()} }

func (op sum) MulVec(v mat.Vector) *mat.VecDense {
	res := op.a.MulVec(v)
	res.AddVec(res, op.b.MulVec(v))
	return res
}

func (op sum) Trace() float64 { return Trace(op.a) + Trace(op.b) }

// scaled is the operator alpha * a.
type scaled struct {
	alpha float64
	a     Operator
}

// Scale returns the operator alpha * a.
func Scale(alpha float64, a Operator) Operator {
	return scaled{alpha: alpha, a: a}
}

func (op scaled) Dims() (int, int) { return op.a.Dims() }

func (op scaled) T() Operator { return scaled{alpha: op.alpha, a: op.a.T()} }

func (op scaled) MulVec(v mat.Vector) *mat.VecDense {
	res := op.a.MulVec(v)
	res.ScaleVec(op.alpha, res)
	return res
}

func (op scaled) Trace() float64 { return op.alpha * Trace(op.a) }

// product is the operator a * b, applied right to left.
type product struct {
	a, b Operator
}

// Compose returns the lazy product a * b.
func Compose(a, b Operator) Operator {
	_, ca := a.Dims()
	rb, _ := b.Dims()
	if ca != rb {
		panic(mat.ErrShape)
	}
	return product{a: a, b: b}
}

func (op product) Dims() (int, int) {
	ra, _ := op.a.Dims()
	_, cb := op.b.Dims()
	return ra, cb
}

func (op product) T() Operator { return product{a: op.b.T(), b: op.a.T()} }

func (op product) MulVec(v mat.Vector) *mat.VecDense {
	return op.a.MulVec(op.b.MulVec(v))
}
