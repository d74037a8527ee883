package estimator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// KindLinearRegression identifies the ordinary least squares regressor.
const KindLinearRegression = "linear_regression"

// LinearRegression is an ordinary least squares regressor with intercept.
// The fit is solved as a dense least squares problem, so it needs at least
// one more row than it has feature columns.
type LinearRegression struct {
	Weights   []float64 `json:"weights"`   // One coefficient per feature column
	Intercept float64   `json:"intercept"` // Bias term
}

// NewLinearRegression returns an unfitted regressor.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Kind returns the model family identifier.
func (l *LinearRegression) Kind() string {
	return KindLinearRegression
}

// Fit solves min ||Xw - y||^2 over the intercept-augmented design matrix.
func (l *LinearRegression) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("empty design matrix (%dx%d)", rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("target length %d does not match %d design rows", len(y), rows)
	}
	if rows < cols+1 {
		return fmt.Errorf("need at least %d rows to fit %d features with intercept, got %d", cols+1, cols, rows)
	}

	// Prepend a column of ones so the intercept is solved with the weights.
	aug := mat.NewDense(rows, cols+1, nil)
	for i := 0; i < rows; i++ {
		aug.Set(i, 0, 1)
		for j := 0; j < cols; j++ {
			aug.Set(i, j+1, X.At(i, j))
		}
	}
	target := mat.NewDense(rows, 1, append([]float64(nil), y...))

	var beta mat.Dense
	if err := beta.Solve(aug, target); err != nil {
		return fmt.Errorf("least squares solve failed: %w", err)
	}

	weights := make([]float64, cols)
	for j := 0; j < cols; j++ {
		weights[j] = beta.At(j+1, 0)
	}
	l.Intercept = beta.At(0, 0)
	l.Weights = weights
	return nil
}

// Predict returns Xw + intercept for each row of X.
func (l *LinearRegression) Predict(X *mat.Dense) ([]float64, error) {
	if l.Weights == nil {
		return nil, errors.New("linear regression is not fitted")
	}
	rows, cols := X.Dims()
	if cols != len(l.Weights) {
		return nil, fmt.Errorf("design matrix has %d columns, model was fitted on %d", cols, len(l.Weights))
	}

	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := l.Intercept
		for j := 0; j < cols; j++ {
			v += l.Weights[j] * X.At(i, j)
		}
		out[i] = v
	}
	return out, nil
}

var _ Estimator = (*LinearRegression)(nil)
