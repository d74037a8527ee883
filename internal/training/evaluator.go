package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/tripworks/tipcast/internal/estimator"
	"github.com/tripworks/tipcast/internal/models"
)

// Metric names an evaluation statistic.
type Metric string

// Supported evaluation metrics.
const (
	MetricMeanAbsoluteError    Metric = "mean_absolute_error"
	MetricMedianAbsoluteError  Metric = "median_absolute_error"
	MetricMeanSquaredError     Metric = "mean_squared_error"
	MetricRootMeanSquaredError Metric = "root_mean_squared_error"
	MetricR2                   Metric = "r2_score"
	MetricROCAUC               Metric = "roc_auc_score"
)

// ParseMetric maps a configured metric name onto a Metric.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricMeanAbsoluteError, MetricMedianAbsoluteError, MetricMeanSquaredError,
		MetricRootMeanSquaredError, MetricR2, MetricROCAUC:
		return Metric(name), nil
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

// Evaluation is the scalar outcome of scoring an artifact on a hold-out batch.
type Evaluation struct {
	Metric      Metric    `json:"metric"`
	Value       float64   `json:"value"`
	RowCount    int       `json:"row_count"`    // Hold-out rows the score was computed over
	EvaluatedAt time.Time `json:"evaluated_at"` // When the evaluation ran
}

// Evaluate scores the artifact's predictions on a held-out batch.
//
// The batch must carry every feature column the artifact was trained on plus
// its target column; anything missing is a SchemaMismatchError, extra columns
// are ignored. roc_auc_score needs class probabilities and is an
// UnsupportedMetricError against estimators that cannot produce them.
func Evaluate(a *Artifact, batch *models.FeatureBatch, metric Metric) (*Evaluation, error) {
	if a == nil || a.Estimator == nil {
		return nil, errors.New("nil artifact")
	}
	if batch == nil || len(batch.Rows) == 0 {
		return nil, errors.New("empty feature batch: nothing to evaluate")
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}

	needed := append(append([]string(nil), a.FeatureColumns...), a.TargetColumn)
	var missing []string
	for _, c := range needed {
		if _, ok := batch.ColumnIndex(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, SchemaMismatchError{Missing: missing}
	}

	X, err := designMatrix(batch, a.FeatureColumns)
	if err != nil {
		return nil, err
	}
	targetIdx, _ := batch.ColumnIndex(a.TargetColumn)
	actual := make([]float64, len(batch.Rows))
	for i, row := range batch.Rows {
		actual[i] = row[targetIdx]
	}

	var value float64
	if metric == MetricROCAUC {
		prob, ok := a.Estimator.(estimator.ProbabilityEstimator)
		if !ok {
			return nil, UnsupportedMetricError{Metric: metric, Kind: a.EstimatorKind}
		}
		scores, err := prob.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("probability prediction failed: %w", err)
		}
		value, err = ROCAUC(actual, scores)
		if err != nil {
			return nil, err
		}
	} else {
		predicted, err := a.Estimator.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("prediction failed: %w", err)
		}
		switch metric {
		case MetricMeanAbsoluteError:
			value = MeanAbsoluteError(predicted, actual)
		case MetricMedianAbsoluteError:
			value = MedianAbsoluteError(predicted, actual)
		case MetricMeanSquaredError:
			value = MeanSquaredError(predicted, actual)
		case MetricRootMeanSquaredError:
			value = RootMeanSquaredError(predicted, actual)
		case MetricR2:
			value = RSquared(predicted, actual)
		}
	}

	return &Evaluation{
		Metric:      metric,
		Value:       value,
		RowCount:    len(batch.Rows),
		EvaluatedAt: time.Now(),
	}, nil
}
