package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	u := uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")

	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"none", None{}, "null"},
		{"int", Int(-3), "-3"},
		{"float", Float(0.5), "0.5"},
		{"integral float", Float(3), "3.0"},
		{"string", String("ada"), `"ada"`},
		{"array", NewArray(Bool(true), None{}), "[true,null]"},
		{"object", Object{"b": Int(1), "a": Int(2)}, `{"a":2,"b":1}`},
		{"ref", NewRef("person", NumberID(9)), `{"$ref":{"tb":"person","id":9}}`},
		{"string ref", NewRef("person", StringID("ada")), `{"$ref":{"tb":"person","id":"ada"}}`},
		{"uuid ref", NewRef("person", UUIDID(u)), `{"$ref":{"tb":"person","id":{"$uuid":"01890a5d-ac96-774b-bcce-b302099a8057"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			back, err := Unmarshal(got)
			require.NoError(t, err)
			assert.True(t, Equal(tt.in, back), "round trip of %s gave %s", tt.in, back)
		})
	}
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := Marshal(Object{"x": Float(math.Inf(-1))})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonFiniteFloat)
	assert.Contains(t, err.Error(), `key "x"`)
}

func TestMarshalCanonical(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	got, err := MarshalCanonical(Object{"k": String("cafe\u0301 <&> \u2028")})
	require.NoError(t, err)
	assert.Equal(t, "{\"k\":\"caf\u00e9 <&> \u2028\"}", string(got))

	// An escaped backslash followed by u2028 text stays escaped.
	got, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestUnmarshalNumbers(t *testing.T) {
	v, err := Unmarshal([]byte(`{"i":1,"f":1.0,"e":1e3,"big":9223372036854775807}`))
	require.NoError(t, err)

	obj := v.(Object)
	assert.Equal(t, Int(1), obj["i"])
	assert.Equal(t, Float(1), obj["f"])
	assert.Equal(t, Float(1000), obj["e"])
	assert.Equal(t, Int(math.MaxInt64), obj["big"])

	_, err = Unmarshal([]byte(`9223372036854775808`))
	assert.True(t, IsRangeError(err))
}

func TestUnmarshalMalformed(t *testing.T) {
	for _, in := range []string{
		`{"$ref":{"tb":"person"}}`,
		`{"$ref":{"tb":"person","id":-1}}`,
		`{"$ref":{"tb":"person","id":{"$uuid":"nope"}}}`,
		`{} {}`,
		`{`,
	} {
		_, err := Unmarshal([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestObjectJSONInterop(t *testing.T) {
	type envelope struct {
		Doc Object `json:"doc"`
	}

	data, err := json.Marshal(envelope{Doc: Object{"n": Int(1), "r": NewRef("t", NumberID(2))}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"doc":{"n":1,"r":{"$ref":{"tb":"t","id":2}}}}`, string(data))

	var back envelope
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(Object{"n": Int(1), "r": NewRef("t", NumberID(2))}, back.Doc))
}

func TestFromAnyYAMLShapes(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    7,
		"f":    2.5,
		"list": []any{"a", true, nil},
	})
	require.NoError(t, err)
	assert.True(t, Equal(Object{
		"n":    Int(7),
		"f":    Float(2.5),
		"list": NewArray(String("a"), Bool(true), None{}),
	}, v))

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}
