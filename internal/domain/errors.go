package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection marks a failure to reach the warehouse. It aborts the whole batch.
	ErrConnection = errors.New("warehouse connection failed")

	// ErrParse is wrapped by every TransformError.
	ErrParse = errors.New("value cannot be coerced")

	// ErrNoActiveJob is reported when a job is ended without having been started.
	ErrNoActiveJob = errors.New("no active job")

	// ErrTableMissing is returned when a load targets a table that was never created.
	ErrTableMissing = errors.New("target table does not exist")

	// ErrTableNotEmpty is returned by LoadModeFail when the target already holds rows.
	ErrTableNotEmpty = errors.New("target table is not empty")
)

// TransformError reports a cell that could not be coerced to its column type.
type TransformError struct {
	Kind   Kind
	Column string
	Row    int // zero-based data row
	Value  string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: column %q row %d: cannot coerce %q: %v", e.Kind, e.Column, e.Row, e.Value, e.Err)
}

// Unwrap exposes ErrParse and the underlying parse error.
func (e *TransformError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// SchemaError reports a source file whose header does not match the descriptor.
type SchemaError struct {
	Kind    Kind
	Missing []string
	Extra   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch for %s: missing=%v extra=%v", e.Kind, e.Missing, e.Extra)
}
