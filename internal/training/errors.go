package training

import (
	"fmt"
	"strings"
)

// EmptyTrainingSetError reports a fit attempt over zero feature rows,
// typically because every raw record was dropped during feature building.
type EmptyTrainingSetError struct {
	Target string // Target column the fit was asked to learn
}

func (e EmptyTrainingSetError) Error() string {
	return fmt.Sprintf("empty training set for target %q: no rows survived preparation", e.Target)
}

// TrainingFailure wraps an error raised inside an estimator's fit.
type TrainingFailure struct {
	Kind string // Estimator kind that failed
	Err  error  // Underlying estimator error
}

func (e TrainingFailure) Error() string {
	return fmt.Sprintf("%s fit failed: %v", e.Kind, e.Err)
}

func (e TrainingFailure) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports a batch that lacks columns a fitted artifact
// needs for prediction or evaluation.
type SchemaMismatchError struct {
	Missing []string // Artifact columns absent from the batch
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("batch is missing artifact columns: %s", strings.Join(e.Missing, ", "))
}

// UnsupportedMetricError reports a metric the artifact's estimator cannot
// serve, e.g. roc_auc_score against a model without class probabilities.
type UnsupportedMetricError struct {
	Metric Metric // Requested metric
	Kind   string // Estimator kind that cannot serve it
}

func (e UnsupportedMetricError) Error() string {
	return fmt.Sprintf("metric %s requires class probabilities, which estimator %s does not expose", e.Metric, e.Kind)
}
