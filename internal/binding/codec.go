package binding

import (
	"fmt"
	"strconv"

	"github.com/roach88/docrow/internal/value"
)

// Codec converts one Go type to and from a Value.
//
// Kind is the declared kind of a field using the codec; Optional reports
// whether None is an accepted encoding.
type Codec[V any] interface {
	Kind() value.Kind
	Optional() bool
	Encode(V) (value.Value, error)
	Decode(value.Value) (V, error)
}

// funcCodec is the Codec every constructor in this package returns.
type funcCodec[V any] struct {
	kind     value.Kind
	optional bool
	encode   func(V) (value.Value, error)
	decode   func(value.Value) (V, error)
}

func (c funcCodec[V]) Kind() value.Kind               { return c.kind }
func (c funcCodec[V]) Optional() bool                 { return c.optional }
func (c funcCodec[V]) Encode(v V) (value.Value, error) { return c.encode(v) }
func (c funcCodec[V]) Decode(v value.Value) (V, error) { return c.decode(v) }

// NewCodec builds a required codec from a pair of functions.
func NewCodec[V any](kind value.Kind, encode func(V) (value.Value, error), decode func(value.Value) (V, error)) Codec[V] {
	return funcCodec[V]{kind: kind, encode: encode, decode: decode}
}

// Bool encodes bool as value.Bool.
func Bool() Codec[bool] {
	return NewCodec(value.KindBool,
		func(b bool) (value.Value, error) { return value.Bool(b), nil },
		value.AsBool)
}

// String encodes string as value.String.
func String() Codec[string] {
	return NewCodec(value.KindString,
		func(s string) (value.Value, error) { return value.String(s), nil },
		value.AsString)
}

// Int encodes any signed integer type as value.Int.
func Int[I value.Signed]() Codec[I] {
	return NewCodec(value.KindInt,
		func(i I) (value.Value, error) { return value.FromInt(i), nil },
		value.AsInt[I])
}

// Uint encodes any unsigned integer type as value.Int.
func Uint[U value.Unsigned]() Codec[U] {
	return NewCodec(value.KindInt,
		func(u U) (value.Value, error) { return value.FromUint(u) },
		value.AsUint[U])
}

// Float encodes float32 and float64 as value.Float.
func Float[F value.Floating]() Codec[F] {
	return NewCodec(value.KindFloat,
		func(f F) (value.Value, error) { return value.FromFloat(f), nil },
		value.AsFloat[F])
}

// RefCodec stores a record reference as-is.
func RefCodec() Codec[value.Ref] {
	return NewCodec(value.KindRef,
		func(r value.Ref) (value.Value, error) {
			if r.ID == nil {
				return nil, value.TypeMismatch("record", r.String())
			}
			return r, nil
		},
		value.AsRef)
}

// IDCodec stores a bare identifier: NumberID as Int, StringID and UUIDID as
// String. It decodes Int, String and the ID of a Ref.
func IDCodec() Codec[value.ID] {
	return NewCodec(value.KindAny,
		func(id value.ID) (value.Value, error) {
			switch x := id.(type) {
			case value.NumberID:
				return value.FromUint(uint64(x))
			case nil:
				return nil, value.TypeMismatch("id", "NONE")
			default:
				return value.String(x.String()), nil
			}
		},
		func(v value.Value) (value.ID, error) {
			switch x := v.(type) {
			case value.Int:
				if x < 0 {
					return nil, value.RangeError("id", x.String())
				}
				return value.NumberID(uint64(x)), nil
			case value.String:
				return value.ParseID(string(x)), nil
			case value.Ref:
				return x.ID, nil
			}
			return nil, value.TypeMismatch("id", describe(v))
		})
}

// Any stores an arbitrary Value unchanged. A nil Value encodes as None.
func Any() Codec[value.Value] {
	return NewCodec(value.KindAny,
		func(v value.Value) (value.Value, error) {
			if v == nil {
				return value.None{}, nil
			}
			return v, nil
		},
		func(v value.Value) (value.Value, error) { return v, nil })
}

// Document stores a free-form object.
func Document() Codec[value.Object] {
	return NewCodec(value.KindObject,
		func(o value.Object) (value.Value, error) {
			if o == nil {
				return value.Object{}, nil
			}
			return o, nil
		},
		value.AsObject)
}

// Optional makes c's field optional: nil encodes as None and None (or a
// missing key) decodes as nil.
func Optional[V any](c Codec[V]) Codec[*V] {
	return funcCodec[*V]{
		kind:     c.Kind(),
		optional: true,
		encode: func(p *V) (value.Value, error) {
			if p == nil {
				return value.None{}, nil
			}
			return c.Encode(*p)
		},
		decode: func(v value.Value) (*V, error) {
			return value.AsOptional(v, c.Decode)
		},
	}
}

// Slice stores a sequence as an Array, encoding each element with c.
// Element errors carry the index in their path.
func Slice[V any](c Codec[V]) Codec[[]V] {
	return NewCodec(value.KindArray,
		func(s []V) (value.Value, error) {
			arr := make(value.Array, len(s))
			for i, elem := range s {
				ev, err := c.Encode(elem)
				if err != nil {
					return nil, value.AtPath(index(i), err)
				}
				arr[i] = ev
			}
			return arr, nil
		},
		func(v value.Value) ([]V, error) {
			arr, err := value.AsArray(v)
			if err != nil {
				return nil, err
			}
			out := make([]V, len(arr))
			for i, elem := range arr {
				dv, err := c.Decode(elem)
				if err != nil {
					return nil, value.AtPath(index(i), err)
				}
				out[i] = dv
			}
			return out, nil
		})
}

// Nested stores a struct as an embedded Object using its own binding.
// The nested binding's table name is not used.
func Nested[V any](b *Binding[V]) Codec[V] {
	return NewCodec(value.KindObject,
		func(v V) (value.Value, error) { return b.Encode(v) },
		b.Decode)
}

// RecordID stores the numeric identifier of the record itself. Zero means
// "not yet assigned" and encodes as None so the store picks the id; other
// values encode as Int. It decodes None, Int or the Ref a store places
// under "id".
func RecordID[U value.Unsigned]() Codec[U] {
	return funcCodec[U]{
		kind:     value.KindRef,
		optional: true,
		encode: func(u U) (value.Value, error) {
			if u == 0 {
				return value.None{}, nil
			}
			return value.FromUint(u)
		},
		decode: func(v value.Value) (U, error) {
			switch x := v.(type) {
			case value.None:
				return 0, nil
			case value.Ref:
				n, ok := x.ID.(value.NumberID)
				if !ok {
					return 0, value.TypeMismatch("numeric record id", x.String())
				}
				out := U(n)
				if uint64(out) != uint64(n) {
					return 0, value.RangeError(fmt.Sprintf("%T", out), n.String())
				}
				return out, nil
			}
			return value.AsUint[U](v)
		},
	}
}

func index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func describe(v value.Value) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}

// String implements fmt.Stringer for debugging output.
func (c funcCodec[V]) String() string {
	if c.optional {
		return fmt.Sprintf("option<%s>", c.kind)
	}
	return c.kind.String()
}
