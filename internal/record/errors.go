package record

import (
	"errors"
	"fmt"
)

// ContractViolation reports a store response that breaks the statement
// result contract. These are fatal for the operation: the runtime never
// guesses which row is authoritative and never retries.
type ContractViolation struct {
	// Code identifies the breach.
	Code ContractCode

	// Op is the runtime operation that observed it ("fetch", "save").
	Op string

	// Table is the table the statement addressed.
	Table string

	// Message is a human-readable description.
	Message string
}

// ContractCode categorizes contract violations.
type ContractCode string

const (
	// ErrCodeMultipleRows indicates a point statement returned more than one row.
	ErrCodeMultipleRows ContractCode = "MULTIPLE_ROWS"

	// ErrCodeMissingRow indicates an insert asked to return its row returned none.
	ErrCodeMissingRow ContractCode = "MISSING_ROW"

	// ErrCodeMissingIdentity indicates a returned row carried no usable "id" Ref.
	ErrCodeMissingIdentity ContractCode = "MISSING_IDENTITY"
)

// Error implements the error interface.
func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", e.Code, e.Op, e.Table, e.Message)
}

// IsContractViolation returns true if err is any store contract violation.
// Uses errors.As to handle wrapped errors.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// IsMultipleRows returns true if a point statement produced several rows.
func IsMultipleRows(err error) bool {
	return hasCode(err, ErrCodeMultipleRows)
}

// IsMissingRow returns true if an insert produced no row.
func IsMissingRow(err error) bool {
	return hasCode(err, ErrCodeMissingRow)
}

// IsMissingIdentity returns true if a returned row had no usable identity.
func IsMissingIdentity(err error) bool {
	return hasCode(err, ErrCodeMissingIdentity)
}

func hasCode(err error, code ContractCode) bool {
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return cv.Code == code
	}
	return false
}

func newMultipleRows(op, table string, n int) *ContractViolation {
	return &ContractViolation{
		Code:    ErrCodeMultipleRows,
		Op:      op,
		Table:   table,
		Message: fmt.Sprintf("expected at most one row, store returned %d", n),
	}
}

func newMissingRow(table string) *ContractViolation {
	return &ContractViolation{
		Code:    ErrCodeMissingRow,
		Op:      "save",
		Table:   table,
		Message: "insert returned no row",
	}
}

func newMissingIdentity(table, detail string) *ContractViolation {
	return &ContractViolation{
		Code:    ErrCodeMissingIdentity,
		Op:      "save",
		Table:   table,
		Message: detail,
	}
}
