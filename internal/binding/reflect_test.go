package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docrow/internal/value"
)

type Pet struct {
	ID       uint64
	Name     string `db:"pet_name"`
	Legs     int8
	Vaccines []string
	OwnerID  value.ID
	Owner    *value.Ref
	Extra    value.Value
	Tags     value.Object
	Ratio    float32
	Chip     *Chip
	internal string
	Skipped  string `db:"-"`
}

type Chip struct {
	Serial  string
	Implant bool
}

func TestReflectFields(t *testing.T) {
	b, err := Reflect[Pet]("")
	require.NoError(t, err)

	assert.Equal(t, "Pet", b.Table())
	assert.Equal(t, []FieldInfo{
		{Name: "id", Kind: value.KindRef, Optional: true},
		{Name: "pet_name", Kind: value.KindString},
		{Name: "legs", Kind: value.KindInt},
		{Name: "vaccines", Kind: value.KindArray},
		{Name: "owner_id", Kind: value.KindAny},
		{Name: "owner", Kind: value.KindRef, Optional: true},
		{Name: "extra", Kind: value.KindAny},
		{Name: "tags", Kind: value.KindObject},
		{Name: "ratio", Kind: value.KindFloat},
		{Name: "chip", Kind: value.KindObject, Optional: true},
	}, b.Fields())
}

func TestReflectRoundTrip(t *testing.T) {
	b := MustReflect[Pet]("pet")
	owner := value.NewRef("person", value.NumberID(1))

	in := Pet{
		ID:       4,
		Name:     "Rex",
		Legs:     4,
		Vaccines: []string{"rabies"},
		OwnerID:  value.NumberID(1),
		Owner:    &owner,
		Extra:    value.NewArray(value.Int(1), value.Float(2.5)),
		Tags:     value.Object{"color": value.String("brown")},
		Ratio:    0.25,
		Chip:     &Chip{Serial: "x1", Implant: true},
	}

	encoded, err := b.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, value.Int(4), encoded["id"])
	assert.NotContains(t, encoded, "skipped")

	out, err := b.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReflectStoredIdentity(t *testing.T) {
	b := MustReflect[Pet]("pet")

	encoded, err := b.Encode(Pet{Name: "Rex", Tags: value.Object{}, Extra: value.None{}, OwnerID: value.StringID("ada")})
	require.NoError(t, err)
	assert.Equal(t, value.None{}, encoded["id"])

	encoded["id"] = value.NewRef("pet", value.NumberID(77))
	out, err := b.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), out.ID)
	assert.Equal(t, value.StringID("ada"), out.OwnerID)
}

func TestReflectSignedRecordID(t *testing.T) {
	type note struct {
		ID   int64
		Text string
	}
	b := MustReflect[note]("note")
	assert.Equal(t, FieldInfo{Name: "id", Kind: value.KindRef, Optional: true}, b.Fields()[0])

	encoded, err := b.Encode(note{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, value.None{}, encoded["id"])

	encoded, err = b.Encode(note{ID: 7, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), encoded["id"])

	encoded["id"] = value.NewRef("note", value.NumberID(7))
	out, err := b.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, note{ID: 7, Text: "hi"}, out)

	_, err = b.Encode(note{ID: -1})
	assert.True(t, value.IsRangeError(err))

	encoded["id"] = value.NewRef("note", value.NumberID(1<<63))
	_, err = b.Decode(encoded)
	assert.True(t, value.IsRangeError(err))

	type small struct{ ID int8 }
	_, err = MustReflect[small]("s").Decode(value.Object{"id": value.NewRef("s", value.NumberID(200))})
	assert.True(t, value.IsRangeError(err))
}

func TestReflectValueRecordID(t *testing.T) {
	type user struct {
		ID   value.ID
		Name string
	}
	b := MustReflect[user]("user")
	assert.Equal(t, FieldInfo{Name: "id", Kind: value.KindRef, Optional: true}, b.Fields()[0])

	encoded, err := b.Encode(user{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, value.None{}, encoded["id"])

	encoded, err = b.Encode(user{ID: value.NumberID(3)})
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), encoded["id"])

	encoded, err = b.Encode(user{ID: value.StringID("ada")})
	require.NoError(t, err)
	assert.Equal(t, value.NewRef("user", value.StringID("ada")), encoded["id"])

	out, err := b.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, value.StringID("ada"), out.ID)

	out, err = b.Decode(value.Object{"id": value.None{}, "name": value.String("Ada")})
	require.NoError(t, err)
	assert.Nil(t, out.ID)
}

func TestReflectRejectsOtherRecordIDTypes(t *testing.T) {
	type named struct{ ID string }
	type floating struct{ ID float64 }
	type referenced struct{ ID value.Ref }

	_, err := Reflect[named]("n")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Reflect[floating]("f")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Reflect[referenced]("r")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	// Nested objects may use "id" freely.
	type badge struct{ ID string }
	type member struct {
		ID    uint64
		Badge badge
	}
	b, err := Reflect[member]("m")
	require.NoError(t, err)
	encoded, err := b.Encode(member{Badge: badge{ID: "b-1"}})
	require.NoError(t, err)
	assert.Equal(t, value.Object{"id": value.String("b-1")}, encoded["badge"])
}

func TestReflectRangeLaw(t *testing.T) {
	type narrow struct{ N uint8 }
	type wide struct{ N uint16 }

	encoded, err := MustReflect[wide]("w").Encode(wide{N: 300})
	require.NoError(t, err)

	_, err = MustReflect[narrow]("n").Decode(encoded)
	require.Error(t, err)
	assert.True(t, value.IsRangeError(err))
	assert.Equal(t, "n: expected uint8 but received 300", err.Error())

	back, err := MustReflect[wide]("w").Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), back.N)
}

func TestReflectMismatchNamesGoType(t *testing.T) {
	type sized struct{ Count int16 }

	_, err := MustReflect[sized]("s").Decode(value.Object{"count": value.String("many")})
	assert.EqualError(t, err, `count: expected int16 but received "many"`)
}

func TestReflectUnsupported(t *testing.T) {
	type blob struct{ Data []byte }
	type lookup struct{ M map[string]int }
	type node struct{ Next *node }

	_, err := Reflect[blob]("b")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Reflect[lookup]("l")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Reflect[node]("n")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Reflect[int]("i")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"FirstName": "first_name",
		"OwnerID":   "owner_id",
		"ID":        "id",
		"HTTPPort":  "http_port",
		"V2Score":   "v2_score",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), in)
	}
}
