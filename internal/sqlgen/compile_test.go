package sqlgen

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

func goldenCases() []struct {
	name string
	stmt statement.Statement
} {
	return []struct {
		name string
		stmt statement.Statement
	}{
		{"lookup", statement.Lookup{Table: "person", ID: value.NumberID(1)}},
		{"insert", statement.Insert{
			Table:  "person",
			Data:   value.Object{"name": value.String("Ada"), "age": value.Int(36)},
			Output: statement.OutputAfter,
		}},
		{"insert explicit id", &statement.Insert{
			Table: "person",
			Data:  value.Object{"id": value.NewRef("person", value.NumberID(7)), "name": value.String("Bob")},
		}},
		{"delete", statement.Delete{Table: "person", ID: value.NumberID(1)}},
		{"define", statement.DefineTable{Table: "person", Fields: []statement.FieldDef{
			{Name: "name", Kind: value.KindString},
			{Name: "nickname", Kind: value.KindString, Optional: true},
		}}},
	}
}

func TestCompile_Golden(t *testing.T) {
	var b strings.Builder
	for _, d := range []Dialect{SQLite, Postgres} {
		c := NewCompiler(d)
		for _, tc := range goldenCases() {
			queries, err := c.Compile(tc.stmt)
			require.NoError(t, err, tc.name)

			fmt.Fprintf(&b, "-- %s (%s)\n", tc.name, d)
			for _, q := range queries {
				b.WriteString(q.SQL + "\n")
				if len(q.Args) > 0 {
					args := make([]string, len(q.Args))
					for i, a := range q.Args {
						args[i] = fmt.Sprintf("%#v", a)
					}
					b.WriteString("   args: " + strings.Join(args, ", ") + "\n")
				}
			}
		}
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "compile", []byte(b.String()))
}

func TestCompile_ValuesAreNeverInterpolated(t *testing.T) {
	c := NewCompiler(SQLite)
	queries, err := c.Compile(statement.Insert{
		Table: "person",
		Data:  value.Object{"name": value.String("'); DROP TABLE person; --")},
	})
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.NotContains(t, queries[0].SQL, "DROP")
	assert.Contains(t, queries[0].Args[0], "DROP TABLE")
}

func TestCompile_LookupAlwaysOrdered(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		queries, err := NewCompiler(d).Compile(statement.Lookup{Table: "t", ID: value.NumberID(3)})
		require.NoError(t, err)
		assert.Contains(t, queries[0].SQL, "ORDER BY id ASC", d.String())
	}
}

func TestCompile_Errors(t *testing.T) {
	c := NewCompiler(SQLite)

	tests := []struct {
		name string
		stmt statement.Statement
		want error
	}{
		{"string id", statement.Lookup{Table: "person", ID: value.StringID("ada")}, ErrUnsupportedID},
		{"uuid id", statement.Delete{Table: "person", ID: value.UUIDID(uuid.Must(uuid.NewV7()))}, ErrUnsupportedID},
		{"explicit huge id", statement.Insert{
			Table: "person",
			Data:  value.Object{"id": value.NewRef("person", value.NumberID(1 << 63))},
		}, ErrUnsupportedID},
		{"explicit zero id", statement.Insert{
			Table: "person",
			Data:  value.Object{"id": value.NewRef("person", value.NumberID(0))},
		}, ErrUnsupportedID},
		{"explicit string id", statement.Insert{
			Table: "person",
			Data:  value.Object{"id": value.NewRef("person", value.StringID("ada"))},
		}, ErrUnsupportedID},
		{"bad table", statement.Lookup{Table: "no such", ID: value.NumberID(1)}, statement.ErrInvalidStatement},
		{"nil", nil, statement.ErrInvalidStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(tt.stmt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompile_UnaddressableIDsCompileToNothing(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		c := NewCompiler(d)
		for _, id := range []value.NumberID{0, 1 << 63, math.MaxUint64} {
			for _, stmt := range []statement.Statement{
				statement.Lookup{Table: "person", ID: id},
				statement.Delete{Table: "person", ID: id},
			} {
				queries, err := c.Compile(stmt)
				require.NoError(t, err, "%s %T %d", d, stmt, id)
				assert.Empty(t, queries)
			}
		}

		queries, err := c.Compile(statement.Lookup{Table: "person", ID: value.NumberID(math.MaxInt64)})
		require.NoError(t, err)
		assert.Equal(t, []any{int64(math.MaxInt64)}, queries[0].Args)
	}
}

func TestCompile_NonFiniteFloat(t *testing.T) {
	_, err := NewCompiler(SQLite).Compile(statement.Insert{
		Table: "m",
		Data:  value.Object{"x": value.Float(math.Inf(1))},
	})
	assert.ErrorIs(t, err, value.ErrNonFiniteFloat)
}

func TestEnsureTable(t *testing.T) {
	q, err := NewCompiler(SQLite).EnsureTable("pet")
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "pet" (id INTEGER PRIMARY KEY AUTOINCREMENT, doc TEXT NOT NULL)`, q.SQL)

	_, err = NewCompiler(Postgres).EnsureTable("pet; --")
	assert.Error(t, err)
}

func TestEncodeDocument_DropsID(t *testing.T) {
	doc, err := EncodeDocument(value.Object{
		"id":   value.Int(4),
		"name": value.String("Ada"),
		"pet":  value.NewRef("pet", value.NumberID(2)),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ada","pet":{"$ref":{"tb":"pet","id":2}}}`, doc)
}

func TestDecodeRow(t *testing.T) {
	obj, err := DecodeRow("person", 9, `{"name":"Ada","score":2.0,"id":"stale"}`)
	require.NoError(t, err)
	assert.Equal(t, value.Object{
		"id":    value.NewRef("person", value.NumberID(9)),
		"name":  value.String("Ada"),
		"score": value.Float(2),
	}, obj)

	_, err = DecodeRow("person", 1, `[1]`)
	assert.ErrorContains(t, err, "not an object")

	_, err = DecodeRow("person", 1, `{`)
	assert.Error(t, err)
}
