// Package estimator defines the capability contract the training pipeline is
// polymorphic over, plus the built-in model implementations.
//
// An estimator only has to fit against a design matrix and predict from one.
// Class probabilities, needed by threshold-free metrics, are an optional
// capability expressed through ProbabilityEstimator rather than a wider base
// interface.
package estimator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Estimator is a trainable model.
type Estimator interface {
	// Kind identifies the model family, e.g. "linear_regression".
	Kind() string
	// Fit learns from the design matrix X and target vector y.
	Fit(X *mat.Dense, y []float64) error
	// Predict returns one prediction per row of X.
	Predict(X *mat.Dense) ([]float64, error)
}

// ProbabilityEstimator is an Estimator that can score class membership.
type ProbabilityEstimator interface {
	Estimator
	// PredictProba returns the probability of the positive class per row of X.
	PredictProba(X *mat.Dense) ([]float64, error)
}

// Factory produces a fresh, untrained estimator.
type Factory func() Estimator

var factories = map[string]Factory{
	KindLinearRegression:   func() Estimator { return NewLinearRegression() },
	KindLogisticRegression: func() Estimator { return NewLogisticRegression() },
}

// Register makes a factory available under kind, replacing any existing one.
func Register(kind string, factory Factory) {
	factories[kind] = factory
}

// FactoryFor returns the factory registered for kind.
func FactoryFor(kind string) (Factory, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown estimator kind %q (known: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return factory, nil
}

// Kinds lists the registered estimator kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Encode serializes an estimator's learned state for persistence.
func Encode(e Estimator) (json.RawMessage, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s state: %w", e.Kind(), err)
	}
	return raw, nil
}

// Decode reconstructs an estimator of the given kind from its encoded state.
func Decode(kind string, raw json.RawMessage) (Estimator, error) {
	factory, err := FactoryFor(kind)
	if err != nil {
		return nil, err
	}
	e := factory()
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s state: %w", kind, err)
	}
	return e, nil
}
