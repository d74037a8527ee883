// Package training fits estimators on prepared feature batches and scores
// fitted artifacts against held-out batches.
//
// Fit and Evaluate are pure given their inputs: neither performs I/O. An
// artifact captures the feature schema in force at fit time, and every later
// batch is projected into that column order before it reaches the estimator,
// so column arrangement in the caller's data cannot silently skew
// predictions.
package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/tripworks/tipcast/internal/estimator"
	"github.com/tripworks/tipcast/internal/models"
)

// Artifact is a fitted estimator together with the schema it was trained
// against and its fit metadata. Treat it as immutable once created.
type Artifact struct {
	ID             string              // Unique artifact identifier
	EstimatorKind  string              // Model family, e.g. "linear_regression"
	Estimator      estimator.Estimator // The fitted model
	FeatureColumns []string            // Feature schema captured at fit time, in design order
	TargetColumn   string              // Column the model predicts
	RowCount       int                 // Rows the model was fitted on
	FitDuration    time.Duration       // Wall time spent inside the estimator's fit
	TrainedAt      time.Time           // When the fit completed
}

// Fit trains a fresh estimator from factory on the batch's target column.
//
// The batch is checked for rows before the factory is invoked, so an empty
// batch never constructs an estimator: it returns EmptyTrainingSetError
// instead. Estimator-internal failures come back wrapped in TrainingFailure.
func Fit(batch *models.FeatureBatch, targetColumn string, factory estimator.Factory) (*Artifact, error) {
	if batch == nil || len(batch.Rows) == 0 {
		return nil, EmptyTrainingSetError{Target: targetColumn}
	}
	targetIdx, ok := batch.ColumnIndex(targetColumn)
	if !ok {
		return nil, fmt.Errorf("target column %q not in batch", targetColumn)
	}

	featureColumns := make([]string, 0, len(batch.Columns)-1)
	for _, c := range batch.Columns {
		if c != targetColumn {
			featureColumns = append(featureColumns, c)
		}
	}
	if len(featureColumns) == 0 {
		return nil, fmt.Errorf("batch holds no feature columns besides target %q", targetColumn)
	}

	X, err := designMatrix(batch, featureColumns)
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(batch.Rows))
	for i, row := range batch.Rows {
		y[i] = row[targetIdx]
	}

	model := factory()
	start := time.Now()
	if err := model.Fit(X, y); err != nil {
		return nil, TrainingFailure{Kind: model.Kind(), Err: err}
	}

	return &Artifact{
		ID:             uuid.New().String(),
		EstimatorKind:  model.Kind(),
		Estimator:      model,
		FeatureColumns: featureColumns,
		TargetColumn:   targetColumn,
		RowCount:       len(batch.Rows),
		FitDuration:    time.Since(start),
		TrainedAt:      time.Now(),
	}, nil
}

// Predict projects the batch into the artifact's feature column order and
// runs the fitted estimator over it. Extra batch columns are ignored;
// missing ones make the projection fail with SchemaMismatchError.
func Predict(a *Artifact, batch *models.FeatureBatch) ([]float64, error) {
	if a == nil || a.Estimator == nil {
		return nil, errors.New("nil artifact")
	}
	if batch == nil || len(batch.Rows) == 0 {
		return nil, errors.New("empty feature batch: nothing to predict")
	}
	X, err := designMatrix(batch, a.FeatureColumns)
	if err != nil {
		return nil, err
	}
	return a.Estimator.Predict(X)
}

// designMatrix copies the named columns of the batch, in order, into a dense
// matrix. Columns absent from the batch produce a SchemaMismatchError.
func designMatrix(batch *models.FeatureBatch, columns []string) (*mat.Dense, error) {
	indices := make([]int, 0, len(columns))
	var missing []string
	for _, c := range columns {
		i, ok := batch.ColumnIndex(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		indices = append(indices, i)
	}
	if len(missing) > 0 {
		return nil, SchemaMismatchError{Missing: missing}
	}

	X := mat.NewDense(len(batch.Rows), len(columns), nil)
	for i, row := range batch.Rows {
		for j, idx := range indices {
			X.Set(i, j, row[idx])
		}
	}
	return X, nil
}
