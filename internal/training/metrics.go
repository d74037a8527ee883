package training

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// The metric functions below assume predicted and actual have the same
// non-zero length; Evaluate guarantees that before calling them.

// MeanAbsoluteError returns the mean of |predicted - actual|.
func MeanAbsoluteError(predicted, actual []float64) float64 {
	return stat.Mean(absoluteErrors(predicted, actual), nil)
}

// MedianAbsoluteError returns the empirical median of |predicted - actual|.
func MedianAbsoluteError(predicted, actual []float64) float64 {
	diffs := absoluteErrors(predicted, actual)
	sort.Float64s(diffs)
	return stat.Quantile(0.5, stat.Empirical, diffs, nil)
}

// MeanSquaredError returns the mean of (predicted - actual)^2.
func MeanSquaredError(predicted, actual []float64) float64 {
	var sum float64
	for i := range predicted {
		d := predicted[i] - actual[i]
		sum += d * d
	}
	return sum / float64(len(predicted))
}

// RootMeanSquaredError returns sqrt(MeanSquaredError).
func RootMeanSquaredError(predicted, actual []float64) float64 {
	return math.Sqrt(MeanSquaredError(predicted, actual))
}

// RSquared returns the coefficient of determination, 1 - SSres/SStot.
func RSquared(predicted, actual []float64) float64 {
	return stat.RSquaredFrom(predicted, actual, nil)
}

func absoluteErrors(predicted, actual []float64) []float64 {
	diffs := make([]float64, len(predicted))
	for i := range predicted {
		diffs[i] = math.Abs(predicted[i] - actual[i])
	}
	return diffs
}

// ROCAUC returns the area under the ROC curve computed as the rank statistic
//
//	AUC = (R+ - n+(n+1)/2) / (n+ * n-)
//
// where R+ is the rank sum of the positive labels under ascending score
// order and tied scores share their average rank. Labels must be 0 or 1,
// and both classes must be present or the area is undefined.
func ROCAUC(labels, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("labels length %d does not match scores length %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return 0, errors.New("no rows to score")
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	// Ranks are 1-based; a run of equal scores at positions i..j shares the
	// average rank (i+1 + j+1)/2.
	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var positives, rankSum float64
	for i, label := range labels {
		switch label {
		case 1:
			positives++
			rankSum += ranks[i]
		case 0:
		default:
			return 0, fmt.Errorf("label at row %d is %v, want 0 or 1", i, label)
		}
	}
	negatives := float64(len(labels)) - positives
	if positives == 0 || negatives == 0 {
		return 0, errors.New("roc_auc_score is undefined when the target holds a single class")
	}

	return (rankSum - positives*(positives+1)/2) / (positives * negatives), nil
}
