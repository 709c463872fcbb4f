package value

import (
	"math"
	"slices"
	"unicode/utf16"
)

// Kind identifies a Value variant. It doubles as the declared kind of a
// table field, where KindAny accepts every variant.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindRef
	KindAny
)

var kindNames = map[Kind]string{
	KindNone:   "none",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
	KindRef:    "record",
	KindAny:    "any",
}

// String returns the declared-kind spelling used in schema statements.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindNone, false
}

// Value is a sealed interface representing a storable dynamic value.
type Value interface {
	Kind() Kind
	String() string
	value() // Sealed - only this package implements it
}

// None is the absent value. It is the only encoding of an absent optional.
type None struct{}

func (None) value()     {}
func (None) Kind() Kind { return KindNone }

// Bool is a boolean value.
type Bool bool

func (Bool) value()     {}
func (Bool) Kind() Kind { return KindBool }

// Int is a signed 64-bit integer value.
type Int int64

func (Int) value()     {}
func (Int) Kind() Kind { return KindInt }

// Float is a double precision value. It is never produced from an integer.
type Float float64

func (Float) value()     {}
func (Float) Kind() Kind { return KindFloat }

// String is a text value.
type String string

func (String) value()     {}
func (String) Kind() Kind { return KindString }

// Array is an ordered sequence of values.
type Array []Value

func (Array) value()     {}
func (Array) Kind() Kind { return KindArray }

// Object maps string keys to values.
type Object map[string]Value

func (Object) value()     {}
func (Object) Kind() Kind { return KindObject }

// Ref addresses a record: a table name and an identifier within it.
type Ref struct {
	Table string
	ID    ID
}

func (Ref) value()     {}
func (Ref) Kind() Kind { return KindRef }

// NewRef creates a Ref.
func NewRef(table string, id ID) Ref {
	return Ref{Table: table, ID: id}
}

// NewArray creates an Array from values.
func NewArray(vals ...Value) Array {
	return Array(vals)
}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("name", String("ada")), P("age", Int(36)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object from pairs. Later pairs win on duplicate keys.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's native string comparison uses UTF-8 bytes, which orders differently
// for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Equal reports whether a and b are the same variant with equal contents.
// Floats compare by value except that NaN equals NaN, so decoded documents
// compare equal to their source.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Float:
		y, ok := b.(Float)
		if !ok {
			return false
		}
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		return x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Ref:
		y, ok := b.(Ref)
		return ok && x.Table == y.Table && x.ID == y.ID
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v. Arrays and Objects are copied; all other
// variants are immutable and returned as-is.
func Clone(v Value) Value {
	switch x := v.(type) {
	case Array:
		out := make(Array, len(x))
		for i, elem := range x {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		return x.Clone()
	}
	return v
}

// Clone returns a deep copy of obj.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = Clone(v)
	}
	return out
}
