// Package pgstore is the PostgreSQL-backed Executor.
//
// Documents are stored as JSONB next to a BIGSERIAL primary key, using the
// same layout and catalog as the SQLite store. Statements are compiled by
// sqlgen with the Postgres dialect and run on a pgxpool connection pool.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/sqlgen"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// Store executes statements against PostgreSQL. Safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	compiler *sqlgen.Compiler

	mu      sync.Mutex
	ensured map[string]bool
}

var _ record.Executor = (*Store)(nil)

// Connect opens a pool for dsn, verifies it and applies the catalog schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		pool:     pool,
		compiler: sqlgen.NewCompiler(sqlgen.Postgres),
		ensured:  make(map[string]bool),
	}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Execute compiles stmt and runs it; see store.Store.Execute for the row
// contract, which is identical.
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

	st := statement.Deref(stmt)
	table := st.Target()

	if def, ok := st.(statement.DefineTable); ok {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			for _, q := range queries {
				if _, err := tx.Exec(ctx, q.SQL, q.Args...); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", def.Table, err)
		}
		s.markEnsured(def.Table)
		return nil, nil
	}

	if err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}

	op := statement.Op(st)
	switch st := st.(type) {
	case statement.Delete:
		if _, err := s.pool.Exec(ctx, queries[0].SQL, queries[0].Args...); err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, table, err)
		}
		return nil, nil

	case statement.Insert:
		var rows []value.Value
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var err error
			if rows, err = query(ctx, tx, table, queries[0]); err != nil {
				return err
			}
			for _, q := range queries[1:] {
				if _, err := tx.Exec(ctx, q.SQL, q.Args...); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, table, err)
		}
		if st.Output == statement.OutputNone {
			return nil, nil
		}
		return rows, nil

	default:
		rows, err := query(ctx, s.pool, table, queries[0])
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, table, err)
		}
		return rows, nil
	}
}

// Fields returns the declared fields of table in declaration order.
func (s *Store) Fields(ctx context.Context, table string) ([]statement.FieldDef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT field_name, kind, optional FROM `+sqlgen.CatalogTable+`
		WHERE table_name = $1
		ORDER BY position ASC, field_name ASC
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

// Tables returns the names of all user tables in the current schema, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name <> $1
		ORDER BY table_name ASC
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
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[table] {
		return nil
	}
	q, err := s.compiler.EnsureTable(table)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, q.SQL); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	s.ensured[table] = true
	return nil
}

func (s *Store) markEnsured(table string) {
	s.mu.Lock()
	s.ensured[table] = true
	s.mu.Unlock()
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func query(ctx context.Context, q querier, table string, sq sqlgen.Query) ([]value.Value, error) {
	rows, err := q.Query(ctx, sq.SQL, sq.Args...)
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
