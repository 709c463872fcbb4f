// Package sqlgen compiles statements to parameterized SQL for the
// relational document stores.
//
// Every user table has the same layout: an integer primary key and one
// JSON document column. Declared fields go to the docrow_fields catalog.
//
// CRITICAL: all values are parameterized, never interpolated. Identifiers
// are validated by statement.Validate and then double-quoted.
package sqlgen

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// ErrUnsupportedID is returned for ids the SQL layout cannot address.
// Only NumberID values in 1..math.MaxInt64 fit the integer primary key.
var ErrUnsupportedID = errors.New("unsupported record id")

// CatalogTable holds field declarations for every defined table.
const CatalogTable = "docrow_fields"

// Dialect selects placeholder and type syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Query is one SQL statement with its arguments.
type Query struct {
	SQL  string
	Args []any
}

// Compiler turns statements into SQL for one dialect.
type Compiler struct {
	Dialect Dialect
}

// NewCompiler creates a Compiler for d.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d}
}

// Compile converts stmt into the queries a store runs, in order.
//
// Lookup and Insert produce exactly one query whose result columns are
// (id, doc). Lookup always orders by id so a contract-breaking duplicate is
// reported deterministically. DefineTable produces the table DDL followed by
// the catalog rewrite and must run in one transaction.
//
// A Lookup or Delete of a NumberID no row can hold (0, or above
// math.MaxInt64) compiles to no queries: the lookup finds nothing and the
// delete is a no-op. Stores return no rows for an empty query list.
func (c *Compiler) Compile(stmt statement.Statement) ([]Query, error) {
	if err := statement.Validate(stmt); err != nil {
		return nil, err
	}

	switch s := statement.Deref(stmt).(type) {
	case statement.Lookup:
		id, ok, err := rowID(s.Table, s.ID)
		if err != nil || !ok {
			return nil, err
		}
		return []Query{{
			SQL:  fmt.Sprintf("SELECT id, %s FROM %s WHERE id = %s ORDER BY id ASC", c.docColumn(), quote(s.Table), c.param(1)),
			Args: []any{id},
		}}, nil

	case statement.Insert:
		return c.compileInsert(s)

	case statement.Delete:
		id, ok, err := rowID(s.Table, s.ID)
		if err != nil || !ok {
			return nil, err
		}
		return []Query{{
			SQL:  fmt.Sprintf("DELETE FROM %s WHERE id = %s", quote(s.Table), c.param(1)),
			Args: []any{id},
		}}, nil

	case statement.DefineTable:
		return c.compileDefine(s), nil
	}
	return nil, fmt.Errorf("unsupported statement type: %T", stmt)
}

// EnsureTable returns the DDL that creates table if it does not exist.
// Stores run it before the first statement touching a table, which gives
// lookups on never-written tables an empty result instead of an error.
func (c *Compiler) EnsureTable(table string) (Query, error) {
	if !statement.IsIdentifier(table) {
		return Query{}, fmt.Errorf("invalid table name %q", table)
	}
	if c.Dialect == Postgres {
		return Query{SQL: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY, doc JSONB NOT NULL)", quote(table))}, nil
	}
	return Query{SQL: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, doc TEXT NOT NULL)", quote(table))}, nil
}

func (c *Compiler) compileInsert(s statement.Insert) ([]Query, error) {
	doc, err := EncodeDocument(s.Data)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", s.Table, err)
	}

	returning := fmt.Sprintf(" RETURNING id, %s", c.docColumn())

	if id, ok := statement.ExplicitID(s.Data); ok {
		n, err := numericID(s.Table, id)
		if err != nil {
			return nil, err
		}
		queries := []Query{{
			SQL:  fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (%s, %s)%s", quote(s.Table), c.param(1), c.docParam(2), returning),
			Args: []any{n, doc},
		}}
		if c.Dialect == Postgres {
			// Keep the sequence ahead of caller-chosen ids.
			queries = append(queries, Query{
				SQL: fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))", quote(s.Table), quote(s.Table)),
			})
		}
		return queries, nil
	}

	return []Query{{
		SQL:  fmt.Sprintf("INSERT INTO %s (doc) VALUES (%s)%s", quote(s.Table), c.docParam(1), returning),
		Args: []any{doc},
	}}, nil
}

func (c *Compiler) compileDefine(s statement.DefineTable) []Query {
	ensure, _ := c.EnsureTable(s.Table)
	queries := []Query{
		ensure,
		{
			SQL:  fmt.Sprintf("DELETE FROM %s WHERE table_name = %s", CatalogTable, c.param(1)),
			Args: []any{s.Table},
		},
	}
	for i, f := range s.Fields {
		queries = append(queries, Query{
			SQL: fmt.Sprintf("INSERT INTO %s (table_name, field_name, position, kind, optional) VALUES (%s, %s, %s, %s, %s)",
				CatalogTable, c.param(1), c.param(2), c.param(3), c.param(4), c.param(5)),
			Args: []any{s.Table, f.Name, i, f.Kind.String(), f.Optional},
		})
	}
	return queries
}

// param returns the n-th (1-based) placeholder.
func (c *Compiler) param(n int) string {
	if c.Dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (c *Compiler) docParam(n int) string {
	if c.Dialect == Postgres {
		return c.param(n) + "::jsonb"
	}
	return c.param(n)
}

// docColumn selects the document as text in both dialects.
func (c *Compiler) docColumn() string {
	if c.Dialect == Postgres {
		return "doc::text"
	}
	return "doc"
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func numericID(table string, id value.ID) (int64, error) {
	n, ok := id.(value.NumberID)
	if !ok {
		return 0, fmt.Errorf("%w: %s (SQL stores use numeric ids)", ErrUnsupportedID, value.NewRef(table, id))
	}
	if uint64(n) > math.MaxInt64 || n == 0 {
		return 0, fmt.Errorf("%w: %s out of range", ErrUnsupportedID, value.NewRef(table, id))
	}
	return int64(n), nil
}

// rowID is numericID for statements that address an existing row. ok is
// false for a NumberID outside the key range, which no row can hold.
func rowID(table string, id value.ID) (n int64, ok bool, err error) {
	num, isNum := id.(value.NumberID)
	if !isNum {
		_, err := numericID(table, id)
		return 0, false, err
	}
	if num == 0 || uint64(num) > math.MaxInt64 {
		return 0, false, nil
	}
	return int64(num), true, nil
}
