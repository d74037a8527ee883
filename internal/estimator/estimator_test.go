package estimator

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func buildMatrix(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

// ─────────────────────────────────────────────
// LinearRegression
// ─────────────────────────────────────────────

func TestLinearRegressionRecoversPlane(t *testing.T) {
	// Noise-free data on the plane y = 3 + 2*x1 - x2, so the least squares
	// solution is exact and predictions must match the targets.
	X := buildMatrix([][]float64{
		{1, 1},
		{2, 0},
		{3, 2},
		{4, 1},
		{5, 3},
	})
	y := []float64{4, 7, 7, 10, 10}

	l := NewLinearRegression()
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() returned error: %v", err)
	}

	if math.Abs(l.Intercept-3) > 1e-8 {
		t.Errorf("Intercept = %v, want 3", l.Intercept)
	}
	wantWeights := []float64{2, -1}
	for j, w := range wantWeights {
		if math.Abs(l.Weights[j]-w) > 1e-8 {
			t.Errorf("Weights[%d] = %v, want %v", j, l.Weights[j], w)
		}
	}

	preds, err := l.Predict(X)
	if err != nil {
		t.Fatalf("Predict() returned error: %v", err)
	}
	for i, want := range y {
		if math.Abs(preds[i]-want) > 1e-8 {
			t.Errorf("prediction %d = %v, want %v", i, preds[i], want)
		}
	}
}

func TestLinearRegressionPredictBeforeFit(t *testing.T) {
	l := NewLinearRegression()
	if _, err := l.Predict(buildMatrix([][]float64{{1, 2}})); err == nil {
		t.Error("Predict() on an unfitted model did not return an error")
	}
}

func TestLinearRegressionFitErrors(t *testing.T) {
	tests := []struct {
		name string
		X    *mat.Dense
		y    []float64
	}{
		{
			name: "fewer rows than parameters",
			X:    buildMatrix([][]float64{{1, 2}, {3, 4}}),
			y:    []float64{1, 2},
		},
		{
			name: "target length mismatch",
			X:    buildMatrix([][]float64{{1}, {2}, {3}}),
			y:    []float64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewLinearRegression().Fit(tt.X, tt.y); err == nil {
				t.Error("Fit() did not return an error")
			}
		})
	}
}

func TestLinearRegressionDimensionMismatch(t *testing.T) {
	X := buildMatrix([][]float64{{1}, {2}, {3}})
	l := NewLinearRegression()
	if err := l.Fit(X, []float64{2, 4, 6}); err != nil {
		t.Fatalf("Fit() returned error: %v", err)
	}
	if _, err := l.Predict(buildMatrix([][]float64{{1, 2}})); err == nil {
		t.Error("Predict() with the wrong column count did not return an error")
	}
}

// ─────────────────────────────────────────────
// LogisticRegression
// ─────────────────────────────────────────────

func TestLogisticRegressionSeparatesClasses(t *testing.T) {
	// One separable feature: negatives are class 0, positives class 1.
	X := buildMatrix([][]float64{
		{-2}, {-1.5}, {-1}, {-0.5},
		{0.5}, {1}, {1.5}, {2},
	})
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	l := NewLogisticRegression()
	l.LearningRate = 0.5
	l.Iterations = 2000
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() returned error: %v", err)
	}

	preds, err := l.Predict(X)
	if err != nil {
		t.Fatalf("Predict() returned error: %v", err)
	}
	for i, want := range y {
		if preds[i] != want {
			t.Errorf("prediction %d = %v, want %v", i, preds[i], want)
		}
	}

	probs, err := l.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() returned error: %v", err)
	}
	if probs[0] > 0.2 {
		t.Errorf("P(high | x=-2) = %v, want it below 0.2", probs[0])
	}
	if probs[len(probs)-1] < 0.8 {
		t.Errorf("P(high | x=2) = %v, want it above 0.8", probs[len(probs)-1])
	}
	for i, p := range probs {
		if p < 0 || p > 1 {
			t.Errorf("probability %d = %v, want it within [0, 1]", i, p)
		}
	}
}

func TestLogisticRegressionRejectsNonBinaryLabels(t *testing.T) {
	X := buildMatrix([][]float64{{1}, {2}, {3}})
	err := NewLogisticRegression().Fit(X, []float64{0, 0.5, 1})
	if err == nil {
		t.Error("Fit() accepted a label that is neither 0 nor 1")
	}
}

func TestLogisticRegressionPredictBeforeFit(t *testing.T) {
	l := NewLogisticRegression()
	if _, err := l.PredictProba(buildMatrix([][]float64{{1}})); err == nil {
		t.Error("PredictProba() on an unfitted model did not return an error")
	}
}

func TestLogisticRegressionConstantColumn(t *testing.T) {
	// The second column never varies; standardization must not divide by zero.
	X := buildMatrix([][]float64{
		{-1, 5}, {-2, 5}, {1, 5}, {2, 5},
	})
	y := []float64{0, 0, 1, 1}

	l := NewLogisticRegression()
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() returned error: %v", err)
	}
	probs, err := l.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() returned error: %v", err)
	}
	for i, p := range probs {
		if math.IsNaN(p) {
			t.Errorf("probability %d is NaN", i)
		}
	}
}

// ─────────────────────────────────────────────
// Capability and registry
// ─────────────────────────────────────────────

func TestLinearRegressionHasNoProbabilities(t *testing.T) {
	var e Estimator = NewLinearRegression()
	if _, ok := e.(ProbabilityEstimator); ok {
		t.Error("LinearRegression claims to produce class probabilities")
	}
}

func TestFactoryFor(t *testing.T) {
	for _, kind := range []string{KindLinearRegression, KindLogisticRegression} {
		factory, err := FactoryFor(kind)
		if err != nil {
			t.Fatalf("FactoryFor(%s) returned error: %v", kind, err)
		}
		e := factory()
		if e.Kind() != kind {
			t.Errorf("factory for %s produced kind %s", kind, e.Kind())
		}
	}

	if _, err := FactoryFor("gradient_boosting"); err == nil {
		t.Error("FactoryFor() did not reject an unknown kind")
	}

	kinds := Kinds()
	if !reflect.DeepEqual(kinds, []string{KindLinearRegression, KindLogisticRegression}) {
		t.Errorf("Kinds() = %v", kinds)
	}
}

// ─────────────────────────────────────────────
// State round trip
// ─────────────────────────────────────────────

func TestEncodeDecodeLinear(t *testing.T) {
	X := buildMatrix([][]float64{{1, 1}, {2, 0}, {3, 2}, {4, 1}, {5, 3}})
	y := []float64{4, 7, 7, 10, 10}

	l := NewLinearRegression()
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() returned error: %v", err)
	}

	raw, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}
	decoded, err := Decode(KindLinearRegression, raw)
	if err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}

	// JSON uses the shortest round-trippable float form, so the restored
	// model must predict identically, not merely approximately.
	want, _ := l.Predict(X)
	got, err := decoded.Predict(X)
	if err != nil {
		t.Fatalf("Predict() on decoded model returned error: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prediction %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEncodeDecodeLogistic(t *testing.T) {
	X := buildMatrix([][]float64{{-2}, {-1}, {1}, {2}})
	y := []float64{0, 0, 1, 1}

	l := NewLogisticRegression()
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() returned error: %v", err)
	}

	raw, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}
	decoded, err := Decode(KindLogisticRegression, raw)
	if err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}

	prob, ok := decoded.(ProbabilityEstimator)
	if !ok {
		t.Fatal("decoded logistic regression lost its probability capability")
	}
	want, _ := l.PredictProba(X)
	got, err := prob.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() on decoded model returned error: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("probability %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode("gradient_boosting", []byte(`{}`)); err == nil {
		t.Error("Decode() did not reject an unknown kind")
	}
}

func TestDecodeMalformedState(t *testing.T) {
	if _, err := Decode(KindLinearRegression, []byte(`{"weights": "broken"`)); err == nil {
		t.Error("Decode() did not reject malformed state")
	}
}
