package value

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValueSealed(t *testing.T) {
	var _ Value = None{}
	var _ Value = Bool(true)
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = String("test")
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
	var _ Value = Ref{Table: "person", ID: NumberID(1)}
}

func TestKindRoundTrip(t *testing.T) {
	for k := KindNone; k <= KindAny; k++ {
		parsed, ok := ParseKind(k.String())
		assert.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}

	_, ok := ParseKind("decimal")
	assert.False(t, ok)
	assert.Equal(t, "record", Ref{}.Kind().String())
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{
		"zebra":  String("z"),
		"apple":  String("a"),
		"banana": String("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestObjectSortedKeysUTF16(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 but after it in UTF-8.
	obj := Object{
		"\uFF61":     Int(1),
		"\U0001F600": Int(2),
	}
	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestNewObjectLaterPairWins(t *testing.T) {
	obj := NewObject(P("a", Int(1)), P("b", Int(2)), P("a", Int(3)))
	assert.Equal(t, Object{"a": Int(3), "b": Int(2)}, obj)
}

func TestEqual(t *testing.T) {
	id := uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"none", None{}, None{}, true},
		{"int vs float", Int(1), Float(1), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"strings", String("a"), String("a"), true},
		{"array order", NewArray(Int(1), Int(2)), NewArray(Int(2), Int(1)), false},
		{"object", Object{"a": Int(1)}, Object{"a": Int(1)}, true},
		{"object extra key", Object{"a": Int(1)}, Object{"a": Int(1), "b": None{}}, false},
		{"ref", NewRef("person", NumberID(1)), NewRef("person", NewID(1)), true},
		{"ref other table", NewRef("person", NumberID(1)), NewRef("pet", NumberID(1)), false},
		{"ref uuid", NewRef("t", UUIDID(id)), NewRef("t", UUIDID(id)), true},
		{"ref id kinds", NewRef("t", NumberID(1)), NewRef("t", StringID("1")), false},
		{"nil", nil, nil, true},
		{"nil vs none", nil, None{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestParseID(t *testing.T) {
	assert.Equal(t, NumberID(42), ParseID("42"))
	assert.Equal(t, StringID("ada"), ParseID("ada"))
	assert.Equal(t, StringID("-1"), ParseID("-1"))

	u := uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")
	assert.Equal(t, UUIDID(u), ParseID(u.String()))
}

func TestNewUUIDID(t *testing.T) {
	a, err := NewUUIDID()
	assert.NoError(t, err)
	b, err := NewUUIDID()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ParseID(a.String()))
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"none", None{}, "NONE"},
		{"bool", Bool(true), "true"},
		{"int", Int(-42), "-42"},
		{"float", Float(1.5), "1.5"},
		{"integral float", Float(2), "2.0"},
		{"large float", Float(1e21), "1e+21"},
		{"nan", Float(math.NaN()), "NaN"},
		{"string", String(`say "hi"`), `"say \"hi\""`},
		{"array", NewArray(Int(1), String("a")), `[1, "a"]`},
		{"empty object", Object{}, "{}"},
		{"object", Object{"b": Int(2), "a": Bool(false), "x y": None{}}, `{ a: false, b: 2, "x y": NONE }`},
		{"ref", NewRef("person", NumberID(7)), "person:7"},
		{"string ref", NewRef("person", StringID("ada")), "person:ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}
