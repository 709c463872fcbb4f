package record

import (
	"context"

	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// Executor is the store-access capability: it submits one statement and
// returns the resulting document rows.
//
// Implementations decide how statements reach the engine and how ctx
// cancellation is honoured. Point statements should produce at most one
// row; the runtime treats more as a contract violation.
type Executor interface {
	Execute(ctx context.Context, stmt statement.Statement) ([]value.Value, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, stmt statement.Statement) ([]value.Value, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, stmt statement.Statement) ([]value.Value, error) {
	return f(ctx, stmt)
}

// SingleRow submits stmt and enforces the zero-or-one row contract.
// found is false when the store returned no rows. More than one row is a
// ContractViolation; store errors are returned unchanged.
func SingleRow(ctx context.Context, exec Executor, stmt statement.Statement) (row value.Value, found bool, err error) {
	rows, err := exec.Execute(ctx, stmt)
	if err != nil {
		return nil, false, err
	}
	switch len(rows) {
	case 0:
		return nil, false, nil
	case 1:
		if rows[0] == nil {
			return nil, false, nil
		}
		return rows[0], true, nil
	default:
		return nil, false, newMultipleRows(statement.Op(stmt), stmt.Target(), len(rows))
	}
}
