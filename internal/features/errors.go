package features

import (
	"fmt"
	"strings"
)

// SchemaError reports required raw columns missing from an input batch.
type SchemaError struct {
	Missing []string // Required column names absent from the batch
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("raw batch is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// CoercionError reports a cell whose value could not be coerced to a number.
// Genuinely missing cells (empty strings) are not coercion errors; they map
// to the missing-value sentinel instead.
type CoercionError struct {
	Column string // Column the cell belongs to
	Row    int    // Zero-based row index within the input batch
	Value  string // The offending cell value
	Err    error  // Underlying parse error
}

func (e CoercionError) Error() string {
	return fmt.Sprintf("column %s, row %d: cannot coerce %q to a number: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e CoercionError) Unwrap() error {
	return e.Err
}
