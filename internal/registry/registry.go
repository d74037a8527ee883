// Package registry keeps a durable ledger of training and evaluation runs in
// a local SQLite database, so past runs stay comparable across process
// restarts.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run kinds recorded in the ledger.
const (
	KindTraining   = "training"
	KindEvaluation = "evaluation"
)

// createdAtLayout is RFC 3339 with fixed-width fractional seconds, so the
// stored strings sort lexically in chronological order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one ledger row: a single training or evaluation execution.
type Run struct {
	ID            string        // Run identifier; training runs reuse the artifact ID
	Kind          string        // KindTraining or KindEvaluation
	EstimatorKind string        // Model family the run used
	Target        string        // Target column
	Metric        string        // Evaluation metric, empty for training runs
	MetricValue   float64       // Meaningful only when Metric is set
	RowCount      int           // Rows the run processed
	Duration      time.Duration // Wall time of the run
	ArtifactPath  string        // Where the artifact was written or read from
	CreatedAt     time.Time     // When the run was recorded
}

// Validate checks that all run fields are valid.
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("run ID must not be empty")
	}
	if r.Kind != KindTraining && r.Kind != KindEvaluation {
		return errors.New("run kind must be 'training' or 'evaluation'")
	}
	if r.EstimatorKind == "" {
		return errors.New("estimator kind must not be empty")
	}
	if r.Target == "" {
		return errors.New("target must not be empty")
	}
	if r.RowCount < 0 {
		return errors.New("row count must not be negative")
	}
	if r.Kind == KindEvaluation && r.Metric == "" {
		return errors.New("evaluation runs must carry a metric")
	}
	return nil
}

// Registry is a handle on the runs database.
type Registry struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	estimator     TEXT NOT NULL,
	target        TEXT NOT NULL,
	metric        TEXT NOT NULL DEFAULT '',
	metric_value  REAL NOT NULL DEFAULT 0,
	row_count     INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	artifact_path TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);
`

// Open opens the runs database at path, creating it and its schema when
// needed. Pass ":memory:" for an ephemeral registry.
func Open(path string) (*Registry, error) {
	if path == "" {
		return nil, errors.New("registry path must not be empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create registry directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize registry schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close releases the database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Record validates and inserts a run into the ledger.
func (r *Registry) Record(run *Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, kind, estimator, target, metric, metric_value, row_count, duration_ms, artifact_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.EstimatorKind, run.Target, run.Metric, run.MetricValue,
		run.RowCount, run.Duration.Milliseconds(), run.ArtifactPath,
		createdAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *Registry) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		return []Run{}, nil
	}

	rows, err := r.db.Query(
		`SELECT id, kind, estimator, target, metric, metric_value, row_count, duration_ms, artifact_path, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		var durationMS int64
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Kind, &run.EstimatorKind, &run.Target, &run.Metric,
			&run.MetricValue, &run.RowCount, &durationMS, &run.ArtifactPath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		ts, err := time.Parse(createdAtLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
		}
		run.CreatedAt = ts
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
