// Package models defines the tabular batch types passed between pipeline stages.
//
// Terminology:
//   - Raw batch: a bounded batch of trip records exactly as delivered by a
//     record source. Cells are strings; the empty string marks a missing value.
//   - Feature batch: the model-ready table derived from a raw batch. All cells
//     are numeric and every row is positionally aligned with the column list.
package models

import (
	"errors"
	"fmt"
)

// RawBatch is an ordered batch of raw trip records under a named column list.
type RawBatch struct {
	Columns []string   `json:"columns"` // Column names, one per cell position
	Rows    [][]string `json:"rows"`    // Records, each aligned with Columns
}

// ColumnIndex returns the position of the named column.
func (b *RawBatch) ColumnIndex(name string) (int, bool) {
	for i, c := range b.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Validate checks that all batch fields are structurally valid.
func (b *RawBatch) Validate() error {
	if err := validateColumns(b.Columns); err != nil {
		return err
	}
	for i, row := range b.Rows {
		if len(row) != len(b.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(b.Columns))
		}
	}
	return nil
}

// FeatureBatch is a numeric table of engineered features, optionally carrying
// a target column alongside them.
type FeatureBatch struct {
	Columns []string    `json:"columns"` // Column names, one per cell position
	Rows    [][]float64 `json:"rows"`    // Feature rows, each aligned with Columns
}

// ColumnIndex returns the position of the named column.
func (b *FeatureBatch) ColumnIndex(name string) (int, bool) {
	for i, c := range b.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns a copy of the named column's values.
func (b *FeatureBatch) Column(name string) ([]float64, error) {
	idx, ok := b.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q not in batch", name)
	}
	values := make([]float64, len(b.Rows))
	for i, row := range b.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Validate checks that all batch fields are structurally valid.
func (b *FeatureBatch) Validate() error {
	if err := validateColumns(b.Columns); err != nil {
		return err
	}
	for i, row := range b.Rows {
		if len(row) != len(b.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(b.Columns))
		}
	}
	return nil
}

func validateColumns(columns []string) error {
	if len(columns) == 0 {
		return errors.New("batch must have at least one column")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return errors.New("column names must not be empty")
		}
		if seen[c] {
			return fmt.Errorf("duplicate column name %q", c)
		}
		seen[c] = true
	}
	return nil
}
