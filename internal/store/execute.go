package store

import (
	"context"
	"fmt"

	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/sqlgen"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// Execute compiles stmt and runs it. Lookups and inserts return the
// affected documents with "id" set to the record's Ref; deletes and
// definitions return no rows. An insert with OutputNone returns no rows.
func (s *Store) Execute(ctx context.Context, stmt statement.Statement) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queries, err := s.compiler.Compile(stmt)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, nil
	}

	switch st := statement.Deref(stmt).(type) {
	case statement.DefineTable:
		if err := s.runTx(ctx, queries); err != nil {
			return nil, fmt.Errorf("define %s: %w", st.Table, err)
		}
		s.ensured.Store(st.Table, true)
		return nil, nil

	case statement.Delete:
		if err := s.ensureTable(ctx, st.Table); err != nil {
			return nil, err
		}
		if _, err := s.db.ExecContext(ctx, queries[0].SQL, queries[0].Args...); err != nil {
			return nil, fmt.Errorf("delete %s: %w", st.Table, err)
		}
		return nil, nil

	case statement.Lookup:
		if err := s.ensureTable(ctx, st.Table); err != nil {
			return nil, err
		}
		rows, err := s.query(ctx, st.Table, queries[0])
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", st.Table, err)
		}
		return rows, nil

	case statement.Insert:
		if err := s.ensureTable(ctx, st.Table); err != nil {
			return nil, err
		}
		rows, err := s.query(ctx, st.Table, queries[0])
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", st.Table, err)
		}
		if st.Output == statement.OutputNone {
			return nil, nil
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unsupported statement type: %T", stmt)
}

// Fields returns the declared fields of table in declaration order.
func (s *Store) Fields(ctx context.Context, table string) ([]statement.FieldDef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT field_name, kind, optional FROM `+sqlgen.CatalogTable+`
		WHERE table_name = ?
		ORDER BY position ASC, field_name COLLATE BINARY ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	var fields []statement.FieldDef
	for rows.Next() {
		var (
			f    statement.FieldDef
			kind string
		)
		if err := rows.Scan(&f.Name, &kind, &f.Optional); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		k, ok := value.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("field %s.%s: unknown kind %q", table, f.Name, kind)
		}
		f.Kind = k
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// Tables returns the names of all user tables, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != ?
		ORDER BY name COLLATE BINARY ASC
	`, sqlgen.CatalogTable)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) ensureTable(ctx context.Context, table string) error {
	if _, ok := s.ensured.Load(table); ok {
		return nil
	}
	q, err := s.compiler.EnsureTable(table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q.SQL); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	s.ensured.Store(table, true)
	return nil
}

func (s *Store) query(ctx context.Context, table string, q sqlgen.Query) ([]value.Value, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []value.Value
	for rows.Next() {
		var (
			id  int64
			doc string
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		obj, err := sqlgen.DecodeRow(table, id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// runTx executes queries in a single transaction.
func (s *Store) runTx(ctx context.Context, queries []sqlgen.Query) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q.SQL, q.Args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ record.Executor = (*Store)(nil)
