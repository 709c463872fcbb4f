package binding

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/docrow/internal/value"
)

// TagName is the struct tag Reflect reads field names from.
// `db:"-"` excludes a field.
const TagName = "db"

// ErrUnsupportedType is returned by Reflect for Go types with no Value form.
var ErrUnsupportedType = errors.New("unsupported field type")

var (
	refType    = reflect.TypeFor[value.Ref]()
	idType     = reflect.TypeFor[value.ID]()
	valueType  = reflect.TypeFor[value.Value]()
	objectType = reflect.TypeFor[value.Object]()
)

// Reflect builds a binding for struct type T from its exported fields.
//
// The table defaults to T's type name. Field names come from the db tag or,
// without one, from the Go name in snake_case. Pointers are optional fields,
// slices are arrays and structs are nested objects.
//
// A top-level field named "id" carries the record identity and must be an
// integer or a value.ID. Its zero value encodes as None so the store assigns
// the identity; integers follow RecordID. Any other "id" type is rejected
// with ErrUnsupportedType.
func Reflect[T any](table string) (*Binding[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupportedType, t)
	}
	if table == "" {
		table = t.Name()
	}

	sc, err := newStructCodec(t, map[reflect.Type]bool{}, table)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", t, err)
	}

	fields := make([]Field[T], 0, len(sc.fields))
	for _, sf := range sc.fields {
		fields = append(fields, Field[T]{
			info: FieldInfo{Name: sf.name, Kind: sf.codec.kind, Optional: sf.codec.optional},
			encode: func(p *T) (value.Value, error) {
				return sf.codec.encode(reflect.ValueOf(p).Elem().Field(sf.index))
			},
			decode: func(p *T, v value.Value) error {
				return sf.codec.decode(v, reflect.ValueOf(p).Elem().Field(sf.index))
			},
		})
	}
	return New(table, fields...)
}

// MustReflect is like Reflect but panics on error.
func MustReflect[T any](table string) *Binding[T] {
	b, err := Reflect[T](table)
	if err != nil {
		panic(err)
	}
	return b
}

// dynCodec is the reflection counterpart of Codec.
type dynCodec struct {
	kind     value.Kind
	optional bool
	encode   func(reflect.Value) (value.Value, error)
	decode   func(value.Value, reflect.Value) error
}

type structField struct {
	name  string
	index int
	codec dynCodec
}

type structCodec struct {
	fields []structField
}

// newStructCodec builds the codec for struct t. table is set for the record
// struct itself and empty for nested objects.
func newStructCodec(t reflect.Type, visiting map[reflect.Type]bool, table string) (*structCodec, error) {
	if visiting[t] {
		return nil, fmt.Errorf("%w: recursive type %s", ErrUnsupportedType, t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	sc := &structCodec{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, ok := fieldName(f)
		if !ok {
			continue
		}

		var (
			dc  dynCodec
			err error
		)
		if name == "id" && table != "" {
			dc, err = recordIDFor(f.Type, table)
		} else {
			dc, err = codecFor(f.Type, visiting)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		sc.fields = append(sc.fields, structField{name: name, index: i, codec: dc})
	}
	return sc, nil
}

func (sc *structCodec) encode(rv reflect.Value) (value.Value, error) {
	obj := make(value.Object, len(sc.fields))
	for _, f := range sc.fields {
		ev, err := f.codec.encode(rv.Field(f.index))
		if err != nil {
			return nil, value.AtPath(f.name, err)
		}
		obj[f.name] = ev
	}
	return obj, nil
}

func (sc *structCodec) decode(v value.Value, dst reflect.Value) error {
	obj, ok := v.(value.Object)
	if !ok {
		return value.TypeMismatch(dst.Type().String(), describe(v))
	}
	out := reflect.New(dst.Type()).Elem()
	for _, f := range sc.fields {
		raw, ok := obj[f.name]
		if !ok {
			if f.codec.optional {
				continue
			}
			return value.AtPath(f.name, value.TypeMismatch(f.codec.kind.String(), "missing field"))
		}
		if err := f.codec.decode(raw, out.Field(f.index)); err != nil {
			return value.AtPath(f.name, err)
		}
	}
	dst.Set(out)
	return nil
}

func codecFor(t reflect.Type, visiting map[reflect.Type]bool) (dynCodec, error) {
	switch t {
	case refType:
		return fromCodec(RefCodec()), nil
	case idType:
		return fromCodec(IDCodec()), nil
	case valueType:
		return fromCodec(Any()), nil
	case objectType:
		return fromCodec(Document()), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return dynCodec{
			kind:   value.KindBool,
			encode: func(rv reflect.Value) (value.Value, error) { return value.Bool(rv.Bool()), nil },
			decode: func(v value.Value, dst reflect.Value) error {
				b, err := value.AsBool(v)
				if err != nil {
					return err
				}
				dst.SetBool(b)
				return nil
			},
		}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return dynCodec{
			kind:   value.KindInt,
			encode: func(rv reflect.Value) (value.Value, error) { return value.Int(rv.Int()), nil },
			decode: func(v value.Value, dst reflect.Value) error {
				n, err := value.AsInt[int64](v)
				if err != nil {
					return retarget(err, t)
				}
				if dst.OverflowInt(n) {
					return value.RangeError(t.String(), v.String())
				}
				dst.SetInt(n)
				return nil
			},
		}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return dynCodec{
			kind:   value.KindInt,
			encode: func(rv reflect.Value) (value.Value, error) { return value.FromUint(rv.Uint()) },
			decode: func(v value.Value, dst reflect.Value) error {
				n, err := value.AsUint[uint64](v)
				if err != nil {
					return retarget(err, t)
				}
				if dst.OverflowUint(n) {
					return value.RangeError(t.String(), v.String())
				}
				dst.SetUint(n)
				return nil
			},
		}, nil

	case reflect.Float32, reflect.Float64:
		return dynCodec{
			kind:   value.KindFloat,
			encode: func(rv reflect.Value) (value.Value, error) { return value.Float(rv.Float()), nil },
			decode: func(v value.Value, dst reflect.Value) error {
				f, err := value.AsFloat[float64](v)
				if err != nil {
					return retarget(err, t)
				}
				if dst.OverflowFloat(f) {
					return value.RangeError(t.String(), v.String())
				}
				dst.SetFloat(f)
				return nil
			},
		}, nil

	case reflect.String:
		return dynCodec{
			kind:   value.KindString,
			encode: func(rv reflect.Value) (value.Value, error) { return value.String(rv.String()), nil },
			decode: func(v value.Value, dst reflect.Value) error {
				s, err := value.AsString(v)
				if err != nil {
					return retarget(err, t)
				}
				dst.SetString(s)
				return nil
			},
		}, nil

	case reflect.Pointer:
		elem, err := codecFor(t.Elem(), visiting)
		if err != nil {
			return dynCodec{}, err
		}
		if elem.optional {
			return dynCodec{}, fmt.Errorf("%w: nested optional %s", ErrUnsupportedType, t)
		}
		return dynCodec{
			kind:     elem.kind,
			optional: true,
			encode: func(rv reflect.Value) (value.Value, error) {
				if rv.IsNil() {
					return value.None{}, nil
				}
				return elem.encode(rv.Elem())
			},
			decode: func(v value.Value, dst reflect.Value) error {
				if _, ok := v.(value.None); ok {
					dst.Set(reflect.Zero(t))
					return nil
				}
				p := reflect.New(t.Elem())
				if err := elem.decode(v, p.Elem()); err != nil {
					return err
				}
				dst.Set(p)
				return nil
			},
		}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return dynCodec{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
		elem, err := codecFor(t.Elem(), visiting)
		if err != nil {
			return dynCodec{}, err
		}
		return dynCodec{
			kind: value.KindArray,
			encode: func(rv reflect.Value) (value.Value, error) {
				arr := make(value.Array, rv.Len())
				for i := range arr {
					ev, err := elem.encode(rv.Index(i))
					if err != nil {
						return nil, value.AtPath(index(i), err)
					}
					arr[i] = ev
				}
				return arr, nil
			},
			decode: func(v value.Value, dst reflect.Value) error {
				arr, err := value.AsArray(v)
				if err != nil {
					return retarget(err, t)
				}
				out := reflect.MakeSlice(t, len(arr), len(arr))
				for i, ev := range arr {
					if err := elem.decode(ev, out.Index(i)); err != nil {
						return value.AtPath(index(i), err)
					}
				}
				dst.Set(out)
				return nil
			},
		}, nil

	case reflect.Struct:
		sc, err := newStructCodec(t, visiting, "")
		if err != nil {
			return dynCodec{}, err
		}
		return dynCodec{kind: value.KindObject, encode: sc.encode, decode: sc.decode}, nil
	}

	return dynCodec{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func recordIDFor(t reflect.Type, table string) (dynCodec, error) {
	switch {
	case isUnsigned(t.Kind()):
		return unsignedRecordID(t), nil
	case isSigned(t.Kind()):
		return signedRecordID(t), nil
	case t == idType:
		return valueRecordID(table), nil
	}
	return dynCodec{}, fmt.Errorf("%w: record id %s (want an integer or value.ID)", ErrUnsupportedType, t)
}

// unsignedRecordID is RecordID for a reflected unsigned field.
func unsignedRecordID(t reflect.Type) dynCodec {
	c := RecordID[uint64]()
	return dynCodec{
		kind:     c.Kind(),
		optional: c.Optional(),
		encode: func(rv reflect.Value) (value.Value, error) {
			return c.Encode(rv.Uint())
		},
		decode: func(v value.Value, dst reflect.Value) error {
			n, err := c.Decode(v)
			if err != nil {
				return retarget(err, t)
			}
			if dst.OverflowUint(n) {
				return value.RangeError(t.String(), v.String())
			}
			dst.SetUint(n)
			return nil
		},
	}
}

// signedRecordID is RecordID for a reflected signed field. Negative ids
// cannot be stored.
func signedRecordID(t reflect.Type) dynCodec {
	c := RecordID[uint64]()
	return dynCodec{
		kind:     c.Kind(),
		optional: c.Optional(),
		encode: func(rv reflect.Value) (value.Value, error) {
			n := rv.Int()
			if n < 0 {
				return nil, value.RangeError("record id", strconv.FormatInt(n, 10))
			}
			return c.Encode(uint64(n))
		},
		decode: func(v value.Value, dst reflect.Value) error {
			n, err := c.Decode(v)
			if err != nil {
				return retarget(err, t)
			}
			if n > math.MaxInt64 || dst.OverflowInt(int64(n)) {
				return value.RangeError(t.String(), v.String())
			}
			dst.SetInt(int64(n))
			return nil
		},
	}
}

// valueRecordID stores a value.ID field. nil encodes as None; a NumberID as
// Int; other identifiers as a Ref into table, since only a Ref can carry them.
func valueRecordID(table string) dynCodec {
	ids := IDCodec()
	return dynCodec{
		kind:     value.KindRef,
		optional: true,
		encode: func(rv reflect.Value) (value.Value, error) {
			id, _ := rv.Interface().(value.ID)
			switch id.(type) {
			case nil:
				return value.None{}, nil
			case value.NumberID:
				return ids.Encode(id)
			}
			return value.NewRef(table, id), nil
		},
		decode: func(v value.Value, dst reflect.Value) error {
			if _, ok := v.(value.None); ok {
				dst.Set(reflect.Zero(idType))
				return nil
			}
			id, err := ids.Decode(v)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(&id).Elem())
			return nil
		},
	}
}

// fromCodec adapts a typed Codec whose V is exactly the field's type.
func fromCodec[V any](c Codec[V]) dynCodec {
	return dynCodec{
		kind:     c.Kind(),
		optional: c.Optional(),
		encode: func(rv reflect.Value) (value.Value, error) {
			v, _ := rv.Interface().(V)
			return c.Encode(v)
		},
		decode: func(v value.Value, dst reflect.Value) error {
			out, err := c.Decode(v)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(&out).Elem())
			return nil
		},
	}
}

// retarget names the reflected Go type in a conversion error produced by a
// wider decoder (int64 for an int8 field, for example).
func retarget(err error, t reflect.Type) error {
	var ce *value.ConversionError
	if errors.As(err, &ce) {
		out := *ce
		out.Expected = t.String()
		return &out
	}
	return err
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get(TagName)
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return snakeCase(f.Name), true
}

// snakeCase converts a Go identifier: "FirstName" -> "first_name",
// "OwnerID" -> "owner_id".
func snakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
