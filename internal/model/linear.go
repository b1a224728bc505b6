package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept. The fit uses
// an SVD so rank-deficient designs resolve to the minimum-norm solution.
type LinearRegression struct {
	Intercept float64
	Coef      []float64

	fitted bool
}

// NewLinear returns an unfitted OLS model.
func NewLinear() *LinearRegression { return &LinearRegression{} }

// Fit solves min ||[1 X]b - y||.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n != len(y) {
		return fmt.Errorf("fit linear: %d rows but %d targets: %w", n, len(y), ErrDimension)
	}
	if n == 0 {
		return fmt.Errorf("fit linear: %w", ErrInsufficientData)
	}
	d := len(X[0])
	design := mat.NewDense(n, d+1, nil)
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("fit linear: row %d has %d columns, want %d: %w", i, len(row), d, ErrDimension)
		}
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return fmt.Errorf("fit linear: SVD did not converge")
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		return fmt.Errorf("fit linear: design matrix has rank 0: %w", ErrInsufficientData)
	}
	var beta mat.VecDense
	svd.SolveVecTo(&beta, mat.NewVecDense(n, append([]float64(nil), y...)), rank)

	m.Intercept = beta.AtVec(0)
	m.Coef = make([]float64, d)
	for j := range m.Coef {
		m.Coef[j] = beta.AtVec(j + 1)
	}
	m.fitted = true
	return nil
}

// Predict evaluates the fitted plane for each row.
func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("predict linear: %w", ErrNotFitted)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(m.Coef) {
			return nil, fmt.Errorf("predict linear: row %d has %d columns, want %d: %w", i, len(row), len(m.Coef), ErrDimension)
		}
		v := m.Intercept
		for j, x := range row {
			v += m.Coef[j] * x
		}
		out[i] = v
	}
	return out, nil
}
