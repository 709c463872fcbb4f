package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// ErrScriptExhausted is returned when a ScriptedExecutor receives more
// statements than it has responses for.
var ErrScriptExhausted = errors.New("scripted executor: no response left")

// Response is one scripted reply.
type Response struct {
	Rows []value.Value
	Err  error
}

// Rows scripts a successful reply with the given rows.
func Rows(rows ...value.Value) Response {
	return Response{Rows: rows}
}

// Fail scripts a failed reply.
func Fail(err error) Response {
	return Response{Err: err}
}

// ScriptedExecutor replies to statements from a fixed script and records
// every statement it receives. It is used to drive the record runtime into
// store behaviour a real store never produces, such as duplicate rows.
//
// Thread-safety: safe for concurrent use; responses are consumed in arrival
// order.
type ScriptedExecutor struct {
	mu        sync.Mutex
	responses []Response
	calls     []statement.Statement
}

// NewScriptedExecutor creates an executor that replies with responses in
// order.
func NewScriptedExecutor(responses ...Response) *ScriptedExecutor {
	return &ScriptedExecutor{responses: responses}
}

// Execute records stmt and returns the next scripted response.
func (e *ScriptedExecutor) Execute(ctx context.Context, stmt statement.Statement) ([]value.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, stmt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(e.responses) == 0 {
		return nil, fmt.Errorf("%w (statement %d: %s)", ErrScriptExhausted, len(e.calls), statement.Render(stmt))
	}
	r := e.responses[0]
	e.responses = e.responses[1:]
	return r.Rows, r.Err
}

// Calls returns the statements received so far.
func (e *ScriptedExecutor) Calls() []statement.Statement {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]statement.Statement, len(e.calls))
	copy(out, e.calls)
	return out
}

// Remaining returns how many scripted responses are unused.
func (e *ScriptedExecutor) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.responses)
}
