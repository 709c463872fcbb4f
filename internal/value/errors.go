package value

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes conversion errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates the stored variant does not match the target.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeRange indicates a numeric value outside the target's range.
	ErrCodeRange ErrorCode = "RANGE_ERROR"
)

// ConversionError is returned when a Value cannot be converted to or from a
// Go type. Path names the field (and nested fields) where it happened.
type ConversionError struct {
	Code     ErrorCode
	Expected string
	Actual   string
	Path     string
}

func (e *ConversionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: expected %s but received %s", e.Path, e.Expected, e.Actual)
	}
	return fmt.Sprintf("expected %s but received %s", e.Expected, e.Actual)
}

// TypeMismatch creates a ConversionError for a variant disagreement.
func TypeMismatch(expected, actual string) *ConversionError {
	return &ConversionError{Code: ErrCodeTypeMismatch, Expected: expected, Actual: actual}
}

// RangeError creates a ConversionError for an unrepresentable number.
func RangeError(expected, actual string) *ConversionError {
	return &ConversionError{Code: ErrCodeRange, Expected: expected, Actual: actual}
}

// AtPath prefixes the path of a ConversionError with segment.
// Other errors are wrapped with the segment as context.
func AtPath(segment string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		out := *ce
		if out.Path == "" {
			out.Path = segment
		} else if out.Path[0] == '[' {
			out.Path = segment + out.Path
		} else {
			out.Path = segment + "." + out.Path
		}
		return &out
	}
	return fmt.Errorf("%s: %w", segment, err)
}

// IsTypeMismatch returns true if err is a type mismatch conversion error.
// Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeTypeMismatch
	}
	return false
}

// IsRangeError returns true if err is a numeric range conversion error.
func IsRangeError(err error) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeRange
	}
	return false
}
