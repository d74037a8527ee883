package training

import (
	"math"
	"testing"
)

func TestMeanAbsoluteError(t *testing.T) {
	// |1-2| + |2-2| + |3-5| = 3, over 3 rows.
	got := MeanAbsoluteError([]float64{1, 2, 3}, []float64{2, 2, 5})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("MeanAbsoluteError() = %v, want 1", got)
	}
}

func TestMedianAbsoluteError(t *testing.T) {
	// Absolute errors 1, 2, 10: the middle one is 2, unmoved by the outlier.
	got := MedianAbsoluteError([]float64{1, 2, 10}, []float64{0, 0, 0})
	if math.Abs(got-2) > 1e-12 {
		t.Errorf("MedianAbsoluteError() = %v, want 2", got)
	}
}

func TestMeanSquaredError(t *testing.T) {
	// (1-2)^2 + (3-5)^2 = 5, over 2 rows.
	got := MeanSquaredError([]float64{1, 3}, []float64{2, 5})
	if math.Abs(got-2.5) > 1e-12 {
		t.Errorf("MeanSquaredError() = %v, want 2.5", got)
	}

	rmse := RootMeanSquaredError([]float64{1, 3}, []float64{2, 5})
	if math.Abs(rmse-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("RootMeanSquaredError() = %v, want sqrt(2.5)", rmse)
	}
}

func TestRSquared(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	if got := RSquared([]float64{1, 2, 3, 4}, actual); math.Abs(got-1) > 1e-12 {
		t.Errorf("RSquared(perfect) = %v, want 1", got)
	}

	// Predicting the mean everywhere explains none of the variance.
	mean := []float64{2.5, 2.5, 2.5, 2.5}
	if got := RSquared(mean, actual); math.Abs(got) > 1e-12 {
		t.Errorf("RSquared(mean) = %v, want 0", got)
	}
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		scores []float64
		want   float64
	}{
		{
			name:   "perfect ranking",
			labels: []float64{0, 0, 1, 1},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   1,
		},
		{
			name:   "inverted ranking",
			labels: []float64{1, 1, 0, 0},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   0,
		},
		{
			// Ascending by score: 0.1(neg), 0.35(pos), 0.4(neg), 0.8(pos).
			// Positive ranks 2 and 4, so AUC = (6 - 3) / (2*2) = 0.75.
			name:   "one inversion",
			labels: []float64{0, 0, 1, 1},
			scores: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.75,
		},
		{
			// The tied pair at 0.5 spans both classes and counts as half a
			// win: AUC = (3 + 0.5) / 4 = 0.875.
			name:   "tied scores",
			labels: []float64{1, 0, 0, 1},
			scores: []float64{0.5, 0.5, 0.2, 0.8},
			want:   0.875,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ROCAUC(tt.labels, tt.scores)
			if err != nil {
				t.Fatalf("ROCAUC() returned error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ROCAUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestROCAUCErrors(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		scores []float64
	}{
		{name: "single class", labels: []float64{1, 1}, scores: []float64{0.4, 0.6}},
		{name: "non-binary label", labels: []float64{0, 0.5}, scores: []float64{0.4, 0.6}},
		{name: "length mismatch", labels: []float64{0, 1}, scores: []float64{0.4}},
		{name: "empty", labels: nil, scores: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ROCAUC(tt.labels, tt.scores); err == nil {
				t.Error("ROCAUC() did not return an error")
			}
		})
	}
}
