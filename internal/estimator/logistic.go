package estimator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KindLogisticRegression identifies the binary logistic classifier.
const KindLogisticRegression = "logistic_regression"

const (
	defaultLearningRate = 0.1
	defaultIterations   = 1000
)

// LogisticRegression is a binary classifier trained with full-batch gradient
// descent. Features are standardized before fitting for stable convergence;
// the learned means and deviations travel with the model so prediction sees
// the same scaling. Labels must be 0 or 1.
type LogisticRegression struct {
	Weights []float64 `json:"weights"` // Coefficients in standardized feature space
	Bias    float64   `json:"bias"`
	Means   []float64 `json:"means"` // Per-column means captured at fit time
	Stds    []float64 `json:"stds"`  // Per-column deviations, constant columns held at 1

	// Hyperparameters, applied at fit time. Non-positive values fall back
	// to the package defaults.
	LearningRate float64 `json:"learning_rate"`
	Iterations   int     `json:"iterations"`
}

// NewLogisticRegression returns an unfitted classifier with default
// hyperparameters.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		LearningRate: defaultLearningRate,
		Iterations:   defaultIterations,
	}
}

// Kind returns the model family identifier.
func (l *LogisticRegression) Kind() string {
	return KindLogisticRegression
}

// Fit minimizes the logistic loss over X and binary labels y.
func (l *LogisticRegression) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("empty design matrix (%dx%d)", rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("target length %d does not match %d design rows", len(y), rows)
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("label at row %d is %v, want 0 or 1", i, v)
		}
	}

	learningRate := l.LearningRate
	if learningRate <= 0 {
		learningRate = defaultLearningRate
	}
	iterations := l.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}

	means := make([]float64, cols)
	stds := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		means[j] = stat.Mean(col, nil)
		sd := stat.StdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		stds[j] = sd
	}

	z := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			z.Set(i, j, (X.At(i, j)-means[j])/stds[j])
		}
	}

	weights := make([]float64, cols)
	bias := 0.0
	grad := make([]float64, cols)
	for it := 0; it < iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		biasGrad := 0.0
		for i := 0; i < rows; i++ {
			margin := bias
			for j := 0; j < cols; j++ {
				margin += weights[j] * z.At(i, j)
			}
			diff := sigmoid(margin) - y[i]
			for j := 0; j < cols; j++ {
				grad[j] += diff * z.At(i, j)
			}
			biasGrad += diff
		}
		step := learningRate / float64(rows)
		for j := 0; j < cols; j++ {
			weights[j] -= step * grad[j]
		}
		bias -= step * biasGrad
	}

	l.Weights = weights
	l.Bias = bias
	l.Means = means
	l.Stds = stds
	return nil
}

// PredictProba returns the probability of the positive class per row of X.
func (l *LogisticRegression) PredictProba(X *mat.Dense) ([]float64, error) {
	if l.Weights == nil {
		return nil, errors.New("logistic regression is not fitted")
	}
	rows, cols := X.Dims()
	if cols != len(l.Weights) {
		return nil, fmt.Errorf("design matrix has %d columns, model was fitted on %d", cols, len(l.Weights))
	}

	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		margin := l.Bias
		for j := 0; j < cols; j++ {
			margin += l.Weights[j] * (X.At(i, j) - l.Means[j]) / l.Stds[j]
		}
		out[i] = sigmoid(margin)
	}
	return out, nil
}

// Predict returns the class label per row, thresholding probabilities at 0.5.
func (l *LogisticRegression) Predict(X *mat.Dense) ([]float64, error) {
	probs, err := l.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

var _ ProbabilityEstimator = (*LogisticRegression)(nil)
