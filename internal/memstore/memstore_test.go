package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

func TestInsertLookupDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	rows, err := s.Execute(ctx, statement.Insert{
		Table:  "person",
		Data:   value.Object{"name": value.String("Ada")},
		Output: statement.OutputAfter,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ref := value.NewRef("person", value.NumberID(1))
	assert.Equal(t, value.Object{"name": value.String("Ada"), "id": ref}, rows[0])

	rows, err = s.Execute(ctx, statement.Lookup{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ref, rows[0].(value.Object)["id"])

	_, err = s.Execute(ctx, statement.Delete{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)
	_, err = s.Execute(ctx, statement.Delete{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)

	rows, err = s.Execute(ctx, statement.Lookup{Table: "person", ID: value.NumberID(1)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupUnknownTable(t *testing.T) {
	rows, err := New().Execute(context.Background(), statement.Lookup{Table: "ghost", ID: value.NumberID(1)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExplicitIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Execute(ctx, statement.Insert{Table: "t", Data: value.Object{"id": value.Int(10)}})
	require.NoError(t, err)

	rows, err := s.Execute(ctx, statement.Insert{Table: "t", Data: value.Object{}, Output: statement.OutputAfter})
	require.NoError(t, err)
	assert.Equal(t, value.NewRef("t", value.NumberID(11)), rows[0].(value.Object)["id"])

	_, err = s.Execute(ctx, statement.Insert{Table: "t", Data: value.Object{"id": value.Int(10)}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	rows, err = s.Execute(ctx, statement.Insert{
		Table:  "t",
		Data:   value.Object{"id": value.NewRef("t", value.StringID("ada"))},
		Output: statement.OutputAfter,
	})
	require.NoError(t, err)
	assert.Equal(t, value.NewRef("t", value.StringID("ada")), rows[0].(value.Object)["id"])
	assert.Equal(t, 3, s.Len("t"))
}

func TestStoredDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	data := value.Object{"tags": value.NewArray(value.String("a"))}
	_, err := s.Execute(ctx, statement.Insert{Table: "t", Data: data})
	require.NoError(t, err)
	data["tags"].(value.Array)[0] = value.String("mutated")

	rows, err := s.Execute(ctx, statement.Lookup{Table: "t", ID: value.NumberID(1)})
	require.NoError(t, err)
	rows[0].(value.Object)["extra"] = value.Int(1)

	rows, err = s.Execute(ctx, statement.Lookup{Table: "t", ID: value.NumberID(1)})
	require.NoError(t, err)
	assert.Equal(t, value.NewArray(value.String("a")), rows[0].(value.Object)["tags"])
	assert.NotContains(t, rows[0].(value.Object), "extra")
}

func TestDefineTable(t *testing.T) {
	s := New()
	def := statement.DefineTable{Table: "person", Fields: []statement.FieldDef{{Name: "name", Kind: value.KindString}}}

	_, err := s.Execute(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"person"}, s.Tables())
	assert.Equal(t, def.Fields, s.Fields("person"))
	assert.Nil(t, s.Fields("ghost"))
}

func TestRejectsInvalidAndCancelled(t *testing.T) {
	s := New()

	_, err := s.Execute(context.Background(), statement.Lookup{Table: "bad name", ID: value.NumberID(1)})
	assert.ErrorIs(t, err, statement.ErrInvalidStatement)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Execute(ctx, statement.Lookup{Table: "t", ID: value.NumberID(1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentInsertsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := s.Execute(ctx, statement.Insert{Table: "t", Data: value.Object{"n": value.Int(int64(i))}})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 50, s.Len("t"))
}

func TestReflectedRecordIDs(t *testing.T) {
	ctx := context.Background()

	type signed struct {
		ID   int64
		Name string
	}
	notes := record.NewTable[signed](New(), binding.MustReflect[signed]("note"))

	row, err := notes.Save(ctx, signed{Name: "auto"})
	require.NoError(t, err)
	assert.Equal(t, signed{ID: 1, Name: "auto"}, row.Value())

	row, err = notes.Save(ctx, signed{ID: 7, Name: "chosen"})
	require.NoError(t, err)
	assert.Equal(t, "note:7", row.Identity().String())

	got, found, err := notes.Fetch(ctx, value.NewID(7))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, signed{ID: 7, Name: "chosen"}, got.Value())

	type keyed struct {
		ID   value.ID
		Name string
	}
	users := record.NewTable[keyed](New(), binding.MustReflect[keyed]("user"))

	urow, err := users.Save(ctx, keyed{Name: "auto"})
	require.NoError(t, err)
	assert.Equal(t, value.NumberID(1), urow.Value().ID)

	urow, err = users.Save(ctx, keyed{ID: value.StringID("ada"), Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "user:ada", urow.Identity().String())

	ugot, found, err := users.Fetch(ctx, value.StringID("ada"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, keyed{ID: value.StringID("ada"), Name: "Ada"}, ugot.Value())
}
