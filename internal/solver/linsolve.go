package solver

import (
	"errors"
	"math"
)

// ErrSingular indicates a linear system with no unique solution.
var ErrSingular = errors.New("solver: singular linear system")

// SolveDense solves a*x = b in place by Gaussian elimination with partial
// pivoting. The problem sizes here are a handful of coupled variables, so
// a dense direct solve is the right tool.
func SolveDense(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for i := range a {
		if len(a[i]) != n {
			return nil, errors.New("solver: non-square system")
		}
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-14 {
			return nil, ErrSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= f * a[col][k]
			}
			b[row] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for k := i + 1; k < n; k++ {
			sum -= a[i][k] * x[k]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}
