// Package gonumext collects small dense-matrix helpers shared by the solver
// packages and their tests.
package gonumext

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Ones returns a (m by n) matrix filled with ones.
func Ones(m, n int) mat.Matrix {
	return Full(m, n, 1.)
}

// Full returns a (m by n) matrix filled with value.
func Full(m, n int, value float64) mat.Matrix {
	data := make([]float64, m*n)
	for index := range data {
		data[index] = value
	}
	return mat.NewDense(m, n, data)
}

// Eye returns the (m by n) identity as a rectangular diagonal matrix.
func Eye(m, n int) mat.Matrix {
	data := make([]float64, int(math.Min(float64(m), float64(n))))
	for entry := range data {
		data[entry] = 1
	}
	return mat.NewDiagonalRect(m, n, data)
}

// HasNaNOrInf reports whether any entry of matrix is NaN or infinite.
// Vectors implement mat.Matrix and can be passed directly.
func HasNaNOrInf(matrix mat.Matrix) bool {
	m, n := matrix.Dims()
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			if math.IsNaN(matrix.At(row, col)) || math.IsInf(matrix.At(row, col), 0) {
				return true
			}
		}
	}
	return false
}
