package store

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/sqlgen"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

func openTest(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, DriverCgo, s.Driver())
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", sqlgen.CatalogTable).Scan(&name)
	require.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), WithDriver("postgres"))
	assert.ErrorContains(t, err, `unknown sqlite driver "postgres"`)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := openTest(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestExecute_LookupUnknownTableIsEmpty(t *testing.T) {
	s := openTest(t)

	rows, err := s.Execute(context.Background(), statement.Lookup{Table: "ghost", ID: value.NumberID(1)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecute_InsertLookupDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	doc := value.Object{
		"name":  value.String("Ada"),
		"score": value.Float(2),
		"pet":   value.NewRef("pet", value.NumberID(3)),
		"tags":  value.NewArray(value.String("math")),
		"extra": value.None{},
	}
	rows, err := s.Execute(ctx, statement.Insert{Table: "person", Data: doc, Output: statement.OutputAfter})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	want := doc.Clone()
	want["id"] = value.NewRef("person", value.NumberID(1))
	assert.Equal(t, want, rows[0])

	rows, err = s.Execute(ctx, statement.Lookup{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, want, rows[0])

	_, err = s.Execute(ctx, statement.Delete{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)
	_, err = s.Execute(ctx, statement.Delete{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)

	rows, err = s.Execute(ctx, statement.Lookup{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecute_InsertOutputNone(t *testing.T) {
	s := openTest(t)

	rows, err := s.Execute(context.Background(), statement.Insert{Table: "log", Data: value.Object{"n": value.Int(1)}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecute_ExplicitID(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	rows, err := s.Execute(ctx, statement.Insert{
		Table:  "person",
		Data:   value.Object{"id": value.Int(10), "name": value.String("Bob")},
		Output: statement.OutputAfter,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NewRef("person", value.NumberID(10)), rows[0].(value.Object)["id"])

	_, err = s.Execute(ctx, statement.Insert{
		Table: "person",
		Data:  value.Object{"id": value.Int(10)},
	})
	assert.Error(t, err, "duplicate primary key")

	rows, err = s.Execute(ctx, statement.Insert{Table: "person", Data: value.Object{}, Output: statement.OutputAfter})
	require.NoError(t, err)
	assert.Equal(t, value.NewRef("person", value.NumberID(11)), rows[0].(value.Object)["id"])
}

func TestExecute_RejectsNonNumericIDs(t *testing.T) {
	s := openTest(t)

	_, err := s.Execute(context.Background(), statement.Lookup{Table: "person", ID: value.StringID("ada")})
	assert.ErrorIs(t, err, sqlgen.ErrUnsupportedID)
}

func TestExecute_CancelledContext(t *testing.T) {
	s := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Execute(ctx, statement.Lookup{Table: "person", ID: value.NumberID(1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_DefineTableRecordsFields(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	fields := []statement.FieldDef{
		{Name: "name", Kind: value.KindString},
		{Name: "age", Kind: value.KindInt},
		{Name: "owner", Kind: value.KindRef, Optional: true},
	}
	_, err := s.Execute(ctx, statement.DefineTable{Table: "person", Fields: fields})
	require.NoError(t, err)

	got, err := s.Fields(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, fields, got)

	// Redefinition replaces the previous declaration.
	_, err = s.Execute(ctx, statement.DefineTable{Table: "person", Fields: fields[:1]})
	require.NoError(t, err)
	got, err = s.Fields(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, fields[:1], got)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"person"}, tables)
}

type person struct {
	ID   uint64
	Name string
	Age  uint8
}

func TestRecordTable_EndToEnd(t *testing.T) {
	for _, driver := range []string{DriverCgo, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openTest(t, WithDriver(driver))

			people := binding.MustReflect[person]("person")
			tbl := record.NewTable(s, people, record.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
			require.NoError(t, tbl.Define(ctx))

			saved, err := tbl.Save(ctx, person{Name: "Ada", Age: 36})
			require.NoError(t, err)
			assert.Equal(t, "person:1", saved.Identity().String())

			row, found, err := tbl.Fetch(ctx, saved.Identity().ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, person{ID: 1, Name: "Ada", Age: 36}, row.Value())

			assert.True(t, tbl.Delete(ctx, saved.Identity().ID))
			_, found, err = tbl.Fetch(ctx, saved.Identity().ID)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestRecordTable_IDsOutsideKeyRange(t *testing.T) {
	for _, driver := range []string{DriverCgo, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openTest(t, WithDriver(driver))
			tbl := record.NewTable[person](s, binding.MustReflect[person]("person"))
			_, err := tbl.Save(ctx, person{Name: "Ada"})
			require.NoError(t, err)

			for _, n := range []uint64{0, 1 << 63, math.MaxUint64} {
				_, found, err := tbl.Fetch(ctx, value.NewID(n))
				require.NoError(t, err, "fetch %d", n)
				assert.False(t, found, "fetch %d", n)
				assert.True(t, tbl.Delete(ctx, value.NewID(n)), "delete %d", n)
			}

			_, found, err := tbl.Fetch(ctx, value.NewID(1))
			require.NoError(t, err)
			assert.True(t, found)
		})
	}
}
