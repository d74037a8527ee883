// Package source delivers bounded batches of raw trip records to the
// pipeline. Implementations own file or connection handling; consumers only
// ever see a materialized batch.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tripworks/tipcast/internal/models"
)

// RecordSource yields one bounded, fully materialized batch of raw trip
// records per call.
type RecordSource interface {
	Fetch(ctx context.Context) (*models.RawBatch, error)
}

// CSV reads trip records from a local CSV extract with a header row.
type CSV struct {
	path  string
	limit int
}

// NewCSV returns a source reading from path. A positive limit caps the
// number of records fetched; zero or negative reads the whole file.
func NewCSV(path string, limit int) *CSV {
	return &CSV{path: path, limit: limit}
}

var _ RecordSource = (*CSV)(nil)

// Fetch reads the file into a raw batch. The header row becomes the column
// list; every following record becomes a row. Cancellation is checked
// between chunks of rows so a shutdown does not wait on a large extract.
func (c *CSV) Fetch(ctx context.Context) (*models.RawBatch, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trips file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("trips file %s has no header row", c.path)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	var rows [][]string
	for {
		if c.limit > 0 && len(rows) >= c.limit {
			break
		}
		if len(rows)%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		rows = append(rows, record)
	}

	batch := &models.RawBatch{Columns: columns, Rows: rows}
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trips file %s: %w", c.path, err)
	}
	return batch, nil
}
