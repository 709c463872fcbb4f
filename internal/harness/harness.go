package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/instrument"
	"github.com/roach88/docrow/internal/memstore"
	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/schema"
	"github.com/roach88/docrow/internal/store"
	"github.com/roach88/docrow/internal/testutil"
	"github.com/roach88/docrow/internal/value"
)

// Harness executes one scenario against a fresh store.
type Harness struct {
	exec     record.Executor
	logger   *slog.Logger
	opIDs    *testutil.Sequence
	seq      int64
	bindings map[string]*binding.Binding[value.Object]
	tables   map[string]*record.Table[value.Object]
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh store for isolation, with deterministic op
// ids, so traces are identical across runs. A non-nil error means the
// scenario could not be executed at all; failed expectations are reported
// in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	exec, closeStore, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		exec:     instrument.Logged(exec, logger),
		logger:   logger,
		opIDs:    testutil.NewSequence(scenario.Name),
		bindings: make(map[string]*binding.Binding[value.Object]),
		tables:   make(map[string]*record.Table[value.Object]),
	}

	if scenario.Schema != "" {
		if err := h.defineSchema(ctx, scenario.Schema); err != nil {
			return nil, fmt.Errorf("failed to define schema: %w", err)
		}
	}

	result := NewResult(scenario.Name)
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h.exec, result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// RunAll executes scenarios concurrently, at most limit at a time (no limit
// when limit <= 0). Results are returned in input order. The first
// execution error cancels the remaining scenarios.
func RunAll(ctx context.Context, scenarios []*Scenario, limit int) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		g.Go(func() error {
			r, err := Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func openBackend(name string) (record.Executor, func(), error) {
	switch name {
	case "", BackendMemory:
		return memstore.New(), func() {}, nil
	case BackendSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return st, func() { st.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", name)
}

func (h *Harness) defineSchema(ctx context.Context, dir string) error {
	defs, err := schema.Load(dir)
	if err != nil {
		return err
	}
	for _, def := range defs {
		b, err := schema.Binding(def)
		if err != nil {
			return err
		}
		h.bindings[def.Table] = b
		if err := h.table(def.Table).Define(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) table(name string) *record.Table[value.Object] {
	if t, ok := h.tables[name]; ok {
		return t
	}
	t := record.NewTable[value.Object](h.exec, record.NewDocuments(name, h.bindings[name]),
		record.WithLogger(h.logger),
		record.WithOpIDs(h.opIDs.OpID),
	)
	h.tables[name] = t
	return t
}

// executeStep runs one step, appends its trace event and checks its
// expectations. Only malformed steps return an error.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	h.seq++
	event := TraceEvent{Seq: h.seq, Op: step.Op, Table: step.Table}

	var id value.ID
	if step.ID != nil {
		var err error
		if id, err = idFromYAML(step.ID); err != nil {
			return err
		}
		event.ID = id
	}

	tbl := h.table(step.Table)
	var opErr error

	switch step.Op {
	case OpPut:
		v, err := value.FromAny(step.Doc)
		if err != nil {
			return fmt.Errorf("doc: %w", err)
		}
		doc, ok := v.(value.Object)
		if !ok {
			return fmt.Errorf("doc must be an object, got %s", v.Kind())
		}
		if id != nil {
			doc["id"] = value.NewRef(step.Table, id)
		}
		row, err := tbl.Save(ctx, doc)
		if err == nil {
			event.Doc = row.Value()
			event.Record = row.Identity().String()
		}
		opErr = err

	case OpGet:
		row, found, err := tbl.Fetch(ctx, id)
		if err == nil {
			event.Found = &found
			if found {
				event.Doc = row.Value()
				event.Record = row.Identity().String()
			}
		}
		opErr = err

	case OpDelete:
		opErr = tbl.DeleteErr(ctx, id)
	}

	if opErr != nil {
		event.Error = opErr.Error()
	}
	result.Trace = append(result.Trace, event)

	for _, msg := range checkExpect(step, event, opErr) {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, step.Op, step.Table, msg))
	}

	h.logger.Info("step completed",
		"step", i,
		"op", step.Op,
		"table", step.Table,
		"error", opErr,
	)
	return nil
}

func checkExpect(step Step, event TraceEvent, opErr error) []string {
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	if exp.Error != "" {
		if opErr == nil {
			return []string{fmt.Sprintf("expected error containing %q, got success", exp.Error)}
		}
		if !strings.Contains(opErr.Error(), exp.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", exp.Error, opErr.Error())}
		}
		return nil
	}
	if opErr != nil {
		return []string{fmt.Sprintf("unexpected error: %v", opErr)}
	}

	var msgs []string
	if exp.Found != nil && event.Found != nil && *exp.Found != *event.Found {
		msgs = append(msgs, fmt.Sprintf("expected found=%t, got found=%t", *exp.Found, *event.Found))
	}
	if exp.Doc != nil {
		if err := matchDoc(exp.Doc, event.Doc); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// idFromYAML converts a YAML id (integer or string) to a record id.
func idFromYAML(raw any) (value.ID, error) {
	switch x := raw.(type) {
	case int:
		if x < 0 {
			return nil, fmt.Errorf("id must be non-negative, got %d", x)
		}
		return value.NumberID(uint64(x)), nil
	case uint64:
		return value.NumberID(x), nil
	case string:
		return value.ParseID(x), nil
	}
	return nil, fmt.Errorf("id must be an integer or string, got %T", raw)
}

