package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", event.Seq, event.Op, event.Table)
			if event.ID != nil {
				fmt.Fprintf(&buf, " %s", event.ID)
			}
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%q", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. Record assertions read the store through exec.
func EvaluateAssertions(ctx context.Context, exec record.Executor, result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(ctx, exec, result.Trace, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(ctx context.Context, exec record.Executor, trace []TraceEvent, a Assertion) error {
	switch a.Type {
	case AssertRecordExists:
		_, found, err := lookup(ctx, exec, a)
		if err != nil {
			return err
		}
		if !found {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("record %s:%v to exist", a.Table, a.ID),
				Actual:   "not found",
				Trace:    trace,
			}
		}

	case AssertRecordAbsent:
		doc, found, err := lookup(ctx, exec, a)
		if err != nil {
			return err
		}
		if found {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("record %s:%v to be absent", a.Table, a.ID),
				Actual:   fmt.Sprintf("found %s", doc),
				Trace:    trace,
			}
		}

	case AssertRecordMatches:
		doc, found, err := lookup(ctx, exec, a)
		if err != nil {
			return err
		}
		if !found {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("record %s:%v matching %v", a.Table, a.ID, a.Expect),
				Actual:   "not found",
				Trace:    trace,
			}
		}
		if err := matchDoc(a.Expect, doc); err != nil {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("record %s:%v matching %v", a.Table, a.ID, a.Expect),
				Actual:   err.Error(),
				Trace:    trace,
			}
		}

	case AssertOpCount:
		count := 0
		for _, e := range trace {
			if e.Op == a.Op && (a.Table == "" || e.Table == a.Table) {
				count++
			}
		}
		if count != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d %s steps", a.Count, a.Op),
				Actual:   fmt.Sprintf("%d %s steps", count, a.Op),
				Trace:    trace,
			}
		}

	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func lookup(ctx context.Context, exec record.Executor, a Assertion) (value.Value, bool, error) {
	id, err := idFromYAML(a.ID)
	if err != nil {
		return nil, false, err
	}
	return record.SingleRow(ctx, exec, statement.Lookup{Table: a.Table, ID: id})
}

// matchDoc checks that every key of expected is present in actual with an
// equal value. Keys of actual not named in expected are ignored.
func matchDoc(expected map[string]any, actual value.Value) error {
	obj, ok := actual.(value.Object)
	if !ok {
		return fmt.Errorf("expected a document, got %s", describe(actual))
	}
	for _, key := range slices.Sorted(maps.Keys(expected)) {
		want, err := value.FromAny(expected[key])
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		got, exists := obj[key]
		if !exists {
			return fmt.Errorf("field %q: missing", key)
		}
		if !value.Equal(want, got) {
			return fmt.Errorf("field %q: expected %s, got %s", key, want, got)
		}
	}
	return nil
}

func describe(v value.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}
