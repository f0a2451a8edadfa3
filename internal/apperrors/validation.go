package apperrors

import (
	"fmt"
	"strings"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"path"`
	Message string `json:"message"`
}

// String renders the error as "field: message".
func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// FieldErrors is an ordered list of field failures.
type FieldErrors []FieldError

// Add appends a failure for field.
func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// Has reports whether field already has at least one failure.
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Strings renders every failure as "field: message", preserving order.
func (fe FieldErrors) Strings() []string {
	out := make([]string, 0, len(fe))
	for _, e := range fe {
		out = append(out, e.String())
	}
	return out
}

// ValidationError carries every field failure found for one record.
type ValidationError struct {
	Fields FieldErrors
}

// NewValidationError wraps fields. It returns nil when fields is empty.
func NewValidationError(fields FieldErrors) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(e.Fields.Strings(), "; "))
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RowError reports the failures of one rejected import row.
type RowError struct {
	Row    int               `json:"row"`
	Data   map[string]string `json:"data"`
	Errors []string          `json:"errors"`
}

// ImportRejectedError means the batch was refused before any row was persisted,
// either because of its size or because at least one row is invalid.
type ImportRejectedError struct {
	Reason     string
	Invalid    []RowError
	ValidCount int
}

// Error implements the error interface.
func (e *ImportRejectedError) Error() string {
	if len(e.Invalid) == 0 {
		return fmt.Sprintf("%v: %s", ErrBatchRejected, e.Reason)
	}
	return fmt.Sprintf("%v: %s (%d invalid, %d valid rows discarded)", ErrBatchRejected, e.Reason, len(e.Invalid), e.ValidCount)
}

// Unwrap matches ErrBatchRejected, and ErrValidation when rows failed validation.
func (e *ImportRejectedError) Unwrap() []error {
	if len(e.Invalid) > 0 {
		return []error{ErrBatchRejected, ErrValidation}
	}
	return []error{ErrBatchRejected}
}

// ImportAbortedError means persistence failed partway through a batch. Rows
// persisted before the failure are kept.
type ImportAbortedError struct {
	Row      int
	Imported int
	Err      error
}

// Error implements the error interface.
func (e *ImportAbortedError) Error() string {
	return fmt.Sprintf("import aborted at row %d after %d rows persisted: %v", e.Row, e.Imported, e.Err)
}

// Unwrap returns the persistence failure.
func (e *ImportAbortedError) Unwrap() error {
	return e.Err
}
