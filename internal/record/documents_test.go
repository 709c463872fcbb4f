package record_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docrow/internal/memstore"
	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/schema"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

func TestDocuments_Schemaless(t *testing.T) {
	ctx := context.Background()
	notes := record.NewTable(memstore.New(), record.NewDocuments("note", nil))

	saved, err := notes.Save(ctx, value.Object{"text": value.String("hi"), "n": value.Int(1)})
	require.NoError(t, err)

	row, found, err := notes.Fetch(ctx, saved.Identity().ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value.Object{
		"id":   value.NewRef("note", value.NumberID(1)),
		"text": value.String("hi"),
		"n":    value.Int(1),
	}, row.Value())
}

func TestDocuments_WithSchema(t *testing.T) {
	ctx := context.Background()
	b, err := schema.Binding(statement.DefineTable{Table: "book", Fields: []statement.FieldDef{
		{Name: "title", Kind: value.KindString},
		{Name: "rating", Kind: value.KindFloat, Optional: true},
	}})
	require.NoError(t, err)

	store := memstore.New()
	books := record.NewTable(store, record.NewDocuments("ignored", b))
	assert.Equal(t, "book", books.Name())
	require.NoError(t, books.Define(ctx))
	assert.Len(t, store.Fields("book"), 2)

	saved, err := books.Save(ctx, value.Object{"title": value.String("Dune"), "rating": value.Int(5), "extra": value.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, value.Float(5), saved.Value()["rating"])
	assert.Equal(t, value.Bool(true), saved.Value()["extra"])

	_, err = books.Save(ctx, value.Object{"rating": value.Float(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title: expected string but received NONE")
	assert.Equal(t, 1, store.Len("book"))
}
