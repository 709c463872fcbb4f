package statement

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/docrow/internal/value"
)

// identifierPattern is the shape of table and field names. Stores quote
// identifiers, but only names of this shape are ever quoted.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidStatement is wrapped by every ValidationError.
var ErrInvalidStatement = errors.New("invalid statement")

// ValidationError describes why a statement cannot be submitted.
type ValidationError struct {
	Op      string
	Table   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Table, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidStatement
}

// IsIdentifier reports whether name is a valid table or field name.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks that stmt is well formed: identifiers have the allowed
// shape, ids are present and field names are unique.
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) error {
	s := Deref(stmt)
	if s == nil {
		return &ValidationError{Op: "statement", Message: "nil statement"}
	}

	op := Op(s)
	fail := func(format string, args ...any) error {
		return &ValidationError{Op: op, Table: s.Target(), Message: fmt.Sprintf(format, args...)}
	}

	if !IsIdentifier(s.Target()) {
		return fail("invalid table name %q", s.Target())
	}

	switch s := s.(type) {
	case Lookup:
		if s.ID == nil {
			return fail("missing record id")
		}
	case Delete:
		if s.ID == nil {
			return fail("missing record id")
		}
	case Insert:
		if s.Data == nil {
			return fail("missing document")
		}
		if s.Output != OutputNone && s.Output != OutputAfter {
			return fail("unknown output mode %d", s.Output)
		}
		if id, ok := s.Data["id"]; ok {
			if err := validateExplicitID(s.Table, id); err != nil {
				return fail("%v", err)
			}
		}
	case DefineTable:
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if !IsIdentifier(f.Name) {
				return fail("invalid field name %q", f.Name)
			}
			if seen[f.Name] {
				return fail("duplicate field %q", f.Name)
			}
			if f.Kind < value.KindNone || f.Kind > value.KindAny {
				return fail("field %s: unknown kind %d", f.Name, f.Kind)
			}
			seen[f.Name] = true
		}
	default:
		return fail("unknown statement type %T", s)
	}
	return nil
}

// validateExplicitID accepts the forms an insert may carry under "id".
func validateExplicitID(table string, id value.Value) error {
	switch x := id.(type) {
	case value.None:
		return nil
	case value.Int:
		if x < 1 {
			return fmt.Errorf("explicit id must be positive, got %d", x)
		}
		return nil
	case value.Ref:
		if x.Table != table {
			return fmt.Errorf("id %s belongs to another table", x)
		}
		if x.ID == nil {
			return fmt.Errorf("id %s has no identifier", x)
		}
		return nil
	}
	return fmt.Errorf("id must be an int or a record, got %s", id)
}

// ExplicitID extracts the caller-chosen identifier from an insert document.
// ok is false when the store should assign one.
func ExplicitID(data value.Object) (id value.ID, ok bool) {
	switch x := data["id"].(type) {
	case value.Int:
		if x > 0 {
			return value.NumberID(uint64(x)), true
		}
	case value.Ref:
		if x.ID != nil {
			return x.ID, true
		}
	}
	return nil, false
}
