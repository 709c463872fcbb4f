package record

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// Convertible converts T to and from stored documents.
// *binding.Binding[T] implements it.
type Convertible[T any] interface {
	Encode(v T) (value.Object, error)
	Decode(v value.Value) (T, error)
}

// Mapping is a Convertible that also knows its table and field list.
// *binding.Binding[T] implements it.
type Mapping[T any] interface {
	Convertible[T]
	Table() string
	Fields() []binding.FieldInfo
}

// Persistable is the CRUD surface for records of T.
// *Table[T] implements it.
type Persistable[T any] interface {
	Fetch(ctx context.Context, id value.ID) (Row[T], bool, error)
	Save(ctx context.Context, v T) (Row[T], error)
	Delete(ctx context.Context, id value.ID) bool
	Define(ctx context.Context) error
}

var (
	_ Mapping[struct{}]     = (*binding.Binding[struct{}])(nil)
	_ Persistable[struct{}] = (*Table[struct{}])(nil)
	_ HasIdentity           = Row[struct{}]{}
)

// Option configures a Table.
type Option func(*options)

type options struct {
	logger *slog.Logger
	opIDs  func() string
}

// WithLogger sets the logger used for operation records.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOpIDs sets the generator for the operation ids attached to log
// records. Defaults to time-ordered UUIDv7 strings.
func WithOpIDs(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.opIDs = gen
		}
	}
}

func newUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Table runs CRUD operations for T against an Executor.
//
// Table holds no mutable state and is safe for concurrent use; any
// serialization is the Executor's business.
type Table[T any] struct {
	exec    Executor
	mapping Mapping[T]
	logger  *slog.Logger
	opIDs   func() string
}

// NewTable creates a Table for m's table backed by exec.
func NewTable[T any](exec Executor, m Mapping[T], opts ...Option) *Table[T] {
	o := options{logger: slog.Default(), opIDs: newUUIDv7}
	for _, opt := range opts {
		opt(&o)
	}
	return &Table[T]{exec: exec, mapping: m, logger: o.logger, opIDs: o.opIDs}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.mapping.Table()
}

// Fetch reads the record (table, id).
//
// A missing record is reported as found == false with a nil error. A
// present record is decoded into T; its Row carries the requested identity.
func (t *Table[T]) Fetch(ctx context.Context, id value.ID) (Row[T], bool, error) {
	table := t.mapping.Table()
	ident := NewIdentity(table, id)
	op := t.opIDs()

	stmt := statement.Lookup{Table: table, ID: id}
	if err := statement.Validate(stmt); err != nil {
		return Row[T]{}, false, err
	}

	raw, found, err := SingleRow(ctx, t.exec, stmt)
	if err != nil {
		t.logger.ErrorContext(ctx, "fetch failed", "op", op, "record", ident.String(), "error", err)
		return Row[T]{}, false, fmt.Errorf("fetch %s: %w", ident, err)
	}
	if !found {
		t.logger.DebugContext(ctx, "record not found", "op", op, "record", ident.String())
		return Row[T]{}, false, nil
	}

	payload, err := t.mapping.Decode(raw)
	if err != nil {
		return Row[T]{}, false, fmt.Errorf("fetch %s: decode: %w", ident, err)
	}

	t.logger.DebugContext(ctx, "record fetched", "op", op, "record", ident.String())
	return newRow(ident, payload), true, nil
}

// Save inserts v and returns it as stored, with the identity the store
// assigned.
func (t *Table[T]) Save(ctx context.Context, v T) (Row[T], error) {
	table := t.mapping.Table()
	op := t.opIDs()

	data, err := t.mapping.Encode(v)
	if err != nil {
		return Row[T]{}, fmt.Errorf("save %s: encode: %w", table, err)
	}

	stmt := statement.Insert{Table: table, Data: data, Output: statement.OutputAfter}
	if err := statement.Validate(stmt); err != nil {
		return Row[T]{}, err
	}

	raw, found, err := SingleRow(ctx, t.exec, stmt)
	if err != nil {
		t.logger.ErrorContext(ctx, "save failed", "op", op, "table", table, "error", err)
		return Row[T]{}, fmt.Errorf("save %s: %w", table, err)
	}
	if !found {
		return Row[T]{}, newMissingRow(table)
	}

	ident, err := identityOf(table, raw)
	if err != nil {
		return Row[T]{}, newMissingIdentity(table, err.Error())
	}

	payload, err := t.mapping.Decode(raw)
	if err != nil {
		return Row[T]{}, fmt.Errorf("save %s: decode: %w", ident, err)
	}

	t.logger.DebugContext(ctx, "record saved", "op", op, "record", ident.String())
	return newRow(ident, payload), nil
}

// Delete removes the record (table, id). It reports whether the store
// accepted the statement; deleting a record that does not exist succeeds.
// Use DeleteErr to see why a delete failed.
func (t *Table[T]) Delete(ctx context.Context, id value.ID) bool {
	return t.DeleteErr(ctx, id) == nil
}

// DeleteErr is Delete returning the store error.
func (t *Table[T]) DeleteErr(ctx context.Context, id value.ID) error {
	table := t.mapping.Table()
	ident := NewIdentity(table, id)
	op := t.opIDs()

	stmt := statement.Delete{Table: table, ID: id}
	if err := statement.Validate(stmt); err != nil {
		return err
	}

	if _, err := t.exec.Execute(ctx, stmt); err != nil {
		t.logger.WarnContext(ctx, "delete failed", "op", op, "record", ident.String(), "error", err)
		return fmt.Errorf("delete %s: %w", ident, err)
	}

	t.logger.DebugContext(ctx, "record deleted", "op", op, "record", ident.String())
	return nil
}

// Define declares the table and every bound field with its kind.
//
// Run Define before data operations on the table; it is not safe to race
// with inserts.
func (t *Table[T]) Define(ctx context.Context) error {
	infos := t.mapping.Fields()
	fields := make([]statement.FieldDef, len(infos))
	for i, f := range infos {
		fields[i] = statement.FieldDef{Name: f.Name, Kind: f.Kind, Optional: f.Optional}
	}
	if err := DefineTable(ctx, t.exec, t.mapping.Table(), fields); err != nil {
		return err
	}
	t.logger.DebugContext(ctx, "table defined", "op", t.opIDs(), "table", t.mapping.Table(), "fields", len(fields))
	return nil
}

// DefineTable declares table with fields against exec without a typed
// binding.
func DefineTable(ctx context.Context, exec Executor, table string, fields []statement.FieldDef) error {
	stmt := statement.DefineTable{Table: table, Fields: fields}
	if err := statement.Validate(stmt); err != nil {
		return err
	}
	if _, err := exec.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("define %s: %w", table, err)
	}
	return nil
}
