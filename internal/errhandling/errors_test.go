package errhandling

import (
	"errors"
	"fmt"
	"testing"
)

func TestSchemaErrorMessage(t *testing.T) {
	err := NewSchemaError(42, "fare_amount")
	want := `record 42: required field "fare_amount" is missing`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestClassifySchemaError(t *testing.T) {
	underlying := NewSchemaError(0, "pickup_datetime")
	wrapped := fmt.Errorf("reading dataset: %w", underlying)

	classified := Classify(wrapped, CategoryUnknown, "")
	if classified.Category != CategorySchema {
		t.Errorf("Category = %v, want %v", classified.Category, CategorySchema)
	}
	if !classified.Fatal {
		t.Error("schema errors must be fatal")
	}
	if classified.Code != CodeSchemaMissingField {
		t.Errorf("Code = %q, want %q", classified.Code, CodeSchemaMissingField)
	}

	// errors.As must still reach the original SchemaError
	var schemaErr *SchemaError
	if !errors.As(classified, &schemaErr) {
		t.Error("errors.As failed to unwrap to *SchemaError")
	}
}

func TestClassifyFallbackCategory(t *testing.T) {
	err := errors.New("open trips.csv: no such file or directory")
	classified := Classify(err, CategoryIO, CodeInputFailed)

	if classified.Category != CategoryIO {
		t.Errorf("Category = %v, want %v", classified.Category, CategoryIO)
	}
	if classified.Code != CodeInputFailed {
		t.Errorf("Code = %q, want %q", classified.Code, CodeInputFailed)
	}
	if !errors.Is(classified, err) {
		t.Error("classified error lost the original in its chain")
	}
}

func TestClassifyAlreadyClassified(t *testing.T) {
	original := &ClassifiedError{
		Category: CategoryRule,
		Fatal:    false,
		Code:     CodeRuleEvalFailed,
		Message:  "bad expression",
	}
	got := Classify(fmt.Errorf("wrapped: %w", original), CategoryUnknown, "")
	if got != original {
		t.Error("Classify should return an already classified error unchanged")
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil, CategoryUnknown, ""); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestIsSchemaError(t *testing.T) {
	if !IsSchemaError(NewSchemaError(1, "x")) {
		t.Error("IsSchemaError should detect a direct SchemaError")
	}
	if IsSchemaError(errors.New("not schema")) {
		t.Error("IsSchemaError should reject unrelated errors")
	}
}
