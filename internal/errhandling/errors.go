// Package errhandling provides error types and classification for the
// tripwash runtime. It distinguishes the single fatal data condition
// (a required column absent from a row) from the expected, filterable
// conditions that route rows to the dropped set, and from environmental
// failures (configuration, file I/O).
package errhandling

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the type/category of an error.
// Categories determine whether a run aborts or continues.
type ErrorCategory string

// Error categories for classification.
const (
	// CategorySchema represents a structural defect in the input dataset
	// (required column missing from a row). Schema errors are fatal:
	// the whole run fails with no partial result.
	CategorySchema ErrorCategory = "schema"

	// CategoryConfig represents an invalid job configuration
	// (parse or schema-validation failure). Fatal before execution starts.
	CategoryConfig ErrorCategory = "config"

	// CategoryIO represents a file read/write failure on the dataset or
	// the output destinations. Fatal for the current run.
	CategoryIO ErrorCategory = "io"

	// CategoryRule represents a custom-rule evaluation failure. Whether
	// it is fatal depends on the rule's onError mode.
	CategoryRule ErrorCategory = "rule"

	// CategoryUnknown represents unclassified errors. Treated as fatal.
	CategoryUnknown ErrorCategory = "unknown"
)

// Error codes used across the runtime.
const (
	CodeSchemaMissingField = "SCHEMA_MISSING_FIELD"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeInputFailed        = "INPUT_FAILED"
	CodeCleanFailed        = "CLEAN_FAILED"
	CodeOutputFailed       = "OUTPUT_FAILED"
	CodeRuleEvalFailed     = "RULE_EVAL_FAILED"
)

// SchemaError reports a required column missing from an input row.
// This is the only fatal condition attributable to the data itself;
// malformed values are handled by the drop rules instead.
type SchemaError struct {
	// Field is the missing required column name.
	Field string

	// RecordIndex is the zero-based index of the offending row.
	RecordIndex int
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("record %d: required field %q is missing", e.RecordIndex, e.Field)
}

// NewSchemaError creates a SchemaError for the given row and column.
func NewSchemaError(recordIdx int, field string) *SchemaError {
	return &SchemaError{Field: field, RecordIndex: recordIdx}
}

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Fatal indicates whether the error aborts the run.
	Fatal bool

	// Code is the machine-readable error code.
	Code string

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// Classify wraps err with category metadata.
//
// Classification rules:
//   - *SchemaError: CategorySchema, fatal
//   - already classified errors are returned unchanged
//   - everything else: the supplied fallback category, fatal
func Classify(err error, fallback ErrorCategory, code string) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return &ClassifiedError{
			Category:    CategorySchema,
			Fatal:       true,
			Code:        CodeSchemaMissingField,
			Message:     schemaErr.Error(),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    fallback,
		Fatal:       true,
		Code:        code,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
