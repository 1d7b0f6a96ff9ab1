package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTable is returned by aggregate operations over a table with no rows.
var ErrEmptyTable = errors.New("table has no rows")

// SchemaError describes an input file whose columns do not match the expected schema.
type SchemaError struct {
	File      string
	Missing   []string
	Unknown   []string
	Duplicate []string
	// Mismatch is set when the file is valid on its own but differs from
	// the column set of the first file in the batch.
	Mismatch string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown columns: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate columns: "+strings.Join(e.Duplicate, ", "))
	}
	if e.Mismatch != "" {
		parts = append(parts, e.Mismatch)
	}
	return fmt.Sprintf("schema mismatch in %s: %s", e.File, strings.Join(parts, "; "))
}

// CellError describes a numeric column cell that is neither a number nor a
// missing marker. Row counts data rows from 1, excluding the header.
type CellError struct {
	File   string
	Row    int
	Column string
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("parse %s: row %d, column %s: %q is not a number", e.File, e.Row, e.Column, e.Value)
}
