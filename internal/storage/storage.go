// Package storage persists fitted model artifacts as versioned JSON
// envelopes on local disk.
//
// Saves are atomic from a reader's perspective: the envelope is written to a
// temporary file next to the destination and renamed into place, so a crash
// mid-write never leaves a corrupt artifact where a good one stood. Loads
// clean up stale temporary files such crashes leave behind.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tripworks/tipcast/internal/estimator"
	"github.com/tripworks/tipcast/internal/training"
)

const (
	// envelopeVersion is the format written by Save.
	envelopeVersion = "2.0"
	// legacyVersion stored the target as the last element of
	// feature_columns and had no target_column field.
	legacyVersion = "1.0"
)

// Envelope is the on-disk artifact format.
type Envelope struct {
	Version        string          `json:"version"`
	SavedAt        time.Time       `json:"saved_at"`
	ArtifactID     string          `json:"artifact_id"`
	EstimatorKind  string          `json:"estimator_kind"`
	Estimator      json.RawMessage `json:"estimator"` // Learned state, owned by the estimator package
	FeatureColumns []string        `json:"feature_columns"`
	TargetColumn   string          `json:"target_column,omitempty"`
	RowCount       int             `json:"row_count"`
	FitDuration    time.Duration   `json:"fit_duration"`
	TrainedAt      time.Time       `json:"trained_at"`
}

// NotFoundError reports a load from a location holding no artifact.
type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("artifact not found: %s", e.Path)
}

// DecodeError reports stored bytes that do not decode to a valid artifact.
type DecodeError struct {
	Path string
	Err  error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("cannot decode artifact %s: %v", e.Path, e.Err)
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// Save writes the artifact to path atomically.
func Save(a *training.Artifact, path string) error {
	if a == nil || a.Estimator == nil {
		return errors.New("nil artifact")
	}
	if path == "" {
		return errors.New("empty artifact path")
	}

	state, err := estimator.Encode(a.Estimator)
	if err != nil {
		return err
	}
	envelope := Envelope{
		Version:        envelopeVersion,
		SavedAt:        time.Now(),
		ArtifactID:     a.ID,
		EstimatorKind:  a.EstimatorKind,
		Estimator:      state,
		FeatureColumns: a.FeatureColumns,
		TargetColumn:   a.TargetColumn,
		RowCount:       a.RowCount,
		FitDuration:    a.FitDuration,
		TrainedAt:      a.TrainedAt,
	}

	jsonData, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	// Create the artifact directory if needed
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	// Write to temporary file first (atomic write)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	// Rename temp file to actual file
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename artifact: %w", err)
	}

	return nil
}

// Load reads the envelope at path and reconstructs the artifact, migrating
// older envelope versions on the way in.
func Load(path string) (*training.Artifact, error) {
	// Clean up any stale temp files from previous crashes
	tempPath := path + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	jsonData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(jsonData, &envelope); err != nil {
		return nil, DecodeError{Path: path, Err: err}
	}

	switch envelope.Version {
	case envelopeVersion:
	case legacyVersion:
		migrateLegacyEnvelope(&envelope)
	default:
		return nil, DecodeError{Path: path, Err: fmt.Errorf("unknown envelope version %q", envelope.Version)}
	}

	if err := validateEnvelope(&envelope); err != nil {
		return nil, DecodeError{Path: path, Err: err}
	}

	model, err := estimator.Decode(envelope.EstimatorKind, envelope.Estimator)
	if err != nil {
		return nil, DecodeError{Path: path, Err: err}
	}

	return &training.Artifact{
		ID:             envelope.ArtifactID,
		EstimatorKind:  envelope.EstimatorKind,
		Estimator:      model,
		FeatureColumns: envelope.FeatureColumns,
		TargetColumn:   envelope.TargetColumn,
		RowCount:       envelope.RowCount,
		FitDuration:    envelope.FitDuration,
		TrainedAt:      envelope.TrainedAt,
	}, nil
}

// migrateLegacyEnvelope upgrades a v1.0 envelope in place.
func migrateLegacyEnvelope(envelope *Envelope) {
	if envelope.TargetColumn != "" || len(envelope.FeatureColumns) == 0 {
		return
	}
	last := len(envelope.FeatureColumns) - 1
	envelope.TargetColumn = envelope.FeatureColumns[last]
	envelope.FeatureColumns = envelope.FeatureColumns[:last]
}

func validateEnvelope(envelope *Envelope) error {
	if envelope.ArtifactID == "" {
		return errors.New("missing artifact_id")
	}
	if envelope.EstimatorKind == "" {
		return errors.New("missing estimator_kind")
	}
	if len(envelope.Estimator) == 0 {
		return errors.New("missing estimator state")
	}
	if len(envelope.FeatureColumns) == 0 {
		return errors.New("missing feature_columns")
	}
	if envelope.TargetColumn == "" {
		return errors.New("missing target_column")
	}
	return nil
}
