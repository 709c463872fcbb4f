package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/schema"
	"github.com/roach88/docrow/internal/value"
)

// TableOutput describes one defined table.
type TableOutput struct {
	Table  string   `json:"table"`
	Fields []string `json:"fields"`
}

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	SchemaDir string
}

// session is the store and logger a record command runs against.
type session struct {
	exec   record.Executor
	logger *slog.Logger
	out    *OutputFormatter
}

func (s *session) table(name string, b *binding.Binding[value.Object]) *record.Table[value.Object] {
	return record.NewTable[value.Object](s.exec, record.NewDocuments(name, b), record.WithLogger(s.logger))
}

// withSession opens the configured store for the duration of fn.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	logger := newLogger(opts.Config, cmd.ErrOrStderr())

	exec, closeFn, err := openExecutor(ctx, opts.Config, logger)
	if err != nil {
		return out.Fail(ExitCommandError, CodeStore, "failed to open store", err)
	}
	defer closeFn()

	return fn(ctx, &session{exec: exec, logger: logger, out: out})
}

// NewDefineCommand creates the define command.
func NewDefineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "define <schema-dir>",
		Short: "Define tables from CUE declarations",
		Long: `Load the CUE table declarations in a directory and define each table
in the store, recording its fields and kinds.

Example:
  docrow define ./schema
  docrow define ./schema --backend postgres --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runDefine(ctx, s, args[0])
			})
		},
	}
}

func runDefine(ctx context.Context, s *session, dir string) error {
	defs, err := schema.Load(dir)
	if err != nil {
		return s.out.Fail(ExitCommandError, CodeSchema, "failed to load schema", err)
	}

	tables := make([]TableOutput, 0, len(defs))
	var text strings.Builder
	for _, def := range defs {
		if err := record.DefineTable(ctx, s.exec, def.Table, def.Fields); err != nil {
			return s.out.Fail(ExitFailure, CodeStore, fmt.Sprintf("failed to define %s", def.Table), err)
		}

		fields := make([]string, len(def.Fields))
		for i, f := range def.Fields {
			fields[i] = f.Name + ": " + f.TypeName()
		}
		tables = append(tables, TableOutput{Table: def.Table, Fields: fields})
		fmt.Fprintf(&text, "✓ %s (%d fields)\n", def.Table, len(def.Fields))
	}
	fmt.Fprintf(&text, "Defined %d table(s)", len(defs))

	return s.out.Success(tables, text.String())
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Fetch a record",
		Long: `Fetch the record (table, id) and print its document.

Exit codes:
  0 - Record found
  1 - Record not found or store failure
  2 - Command error

Example:
  docrow get person 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runGet(ctx, s, args[0], args[1])
			})
		},
	}
}

func runGet(ctx context.Context, s *session, table, rawID string) error {
	id := value.ParseID(rawID)
	row, found, err := s.table(table, nil).Fetch(ctx, id)
	if err != nil {
		return s.out.Fail(ExitFailure, CodeStore, "fetch failed", err)
	}
	if !found {
		return s.out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("record %s not found", record.NewIdentity(table, id)), nil)
	}
	return s.out.Record(row)
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <table> <json>",
		Short: "Save a document as a new record",
		Long: `Insert a JSON document into a table and print the stored record.

An integer "id" key requests an explicit identity. With --schema the
document is validated against the table's declared fields first.

Example:
  docrow put person '{"name": "Ada", "age": 36}'
  docrow put book '{"title": "Dune"}' --schema ./schema`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runPut(ctx, s, opts, args[0], args[1])
			})
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "CUE schema directory to validate against")

	return cmd
}

func runPut(ctx context.Context, s *session, opts *PutOptions, table, raw string) error {
	v, err := value.Unmarshal([]byte(raw))
	if err != nil {
		return s.out.Fail(ExitCommandError, CodeInvalidArgs, "invalid JSON document", err)
	}
	doc, ok := v.(value.Object)
	if !ok {
		return s.out.Fail(ExitCommandError, CodeInvalidArgs, fmt.Sprintf("document must be a JSON object, got %s", v.Kind()), nil)
	}

	var b *binding.Binding[value.Object]
	if opts.SchemaDir != "" {
		if b, err = tableBinding(opts.SchemaDir, table); err != nil {
			return s.out.Fail(ExitCommandError, CodeSchema, "failed to load schema", err)
		}
	}

	row, err := s.table(table, b).Save(ctx, doc)
	if err != nil {
		if value.IsTypeMismatch(err) || value.IsRangeError(err) {
			return s.out.Fail(ExitFailure, CodeSchema, "document does not match schema", err)
		}
		return s.out.Fail(ExitFailure, CodeStore, "save failed", err)
	}
	return s.out.Record(row)
}

// tableBinding loads dir and returns the binding for table.
func tableBinding(dir, table string) (*binding.Binding[value.Object], error) {
	defs, err := schema.Load(dir)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if def.Table == table {
			return schema.Binding(def)
		}
	}
	return nil, fmt.Errorf("table %s is not declared in %s", table, dir)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a record",
		Long: `Delete the record (table, id). Deleting a record that does not exist
succeeds.

Example:
  docrow delete person 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runDelete(ctx, s, args[0], args[1])
			})
		},
	}
}

func runDelete(ctx context.Context, s *session, table, rawID string) error {
	ident := record.NewIdentity(table, value.ParseID(rawID))
	if err := s.table(table, nil).DeleteErr(ctx, ident.ID); err != nil {
		return s.out.Fail(ExitFailure, CodeStore, "delete failed", err)
	}
	return s.out.Success(map[string]string{"deleted": ident.String()}, "deleted "+ident.String())
}
