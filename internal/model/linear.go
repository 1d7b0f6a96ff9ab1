package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the relative singular value cutoff used to decide the
// numerical rank of the centered design matrix.
const rankTolerance = 1e-10

// LinearRegression is ordinary least squares with an intercept.
type LinearRegression struct {
	Coef      []float64
	Intercept float64
}

// Fit solves min ||Xc·b - yc|| on centered data through an SVD and takes
// the minimum-norm solution, so collinear one-hot blocks do not fail the fit.
func (lr *LinearRegression) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return ErrNoRows
	}
	if len(y) != n {
		return fmt.Errorf("linear regression: %d targets for %d rows", len(y), n)
	}
	xMean := make([]float64, p)
	for j := 0; j < p; j++ {
		xMean[j] = floats.Sum(mat.Col(nil, j, X)) / float64(n)
	}
	yMean := floats.Sum(y) / float64(n)

	xc := mat.NewDense(n, p, nil)
	xc.Apply(func(i, j int, v float64) float64 { return v - xMean[j] }, X)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}

	coef := make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(xc, mat.SVDThin) {
		return errors.New("linear regression: SVD factorization failed")
	}
	if rank := svd.Rank(rankTolerance); rank > 0 {
		var beta mat.Dense
		svd.SolveTo(&beta, mat.NewDense(n, 1, yc), rank)
		coef = mat.Col(nil, 0, &beta)
	}
	lr.Coef = coef
	lr.Intercept = yMean - floats.Dot(xMean, coef)
	return nil
}

// Predict evaluates the fitted hyperplane at x.
func (lr *LinearRegression) Predict(x []float64) float64 {
	return lr.Intercept + floats.Dot(lr.Coef, x)
}
