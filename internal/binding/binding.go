package binding

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/docrow/internal/value"
)

// identifierPattern matches table and field names the stores accept.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidBinding is returned when a binding's table or fields are malformed.
var ErrInvalidBinding = errors.New("invalid binding")

// FieldInfo describes a bound field for schema declaration.
type FieldInfo struct {
	Name     string
	Kind     value.Kind
	Optional bool
}

// Field binds one named key of a document to a location inside T.
// Create fields with Bind.
type Field[T any] struct {
	info   FieldInfo
	encode func(*T) (value.Value, error)
	decode func(*T, value.Value) error
}

// Info returns the field's name, declared kind and optionality.
func (f Field[T]) Info() FieldInfo {
	return f.info
}

// Bind creates a field named name whose value lives at accessor(t) and is
// converted with c.
//
// Example:
//
//	binding.Bind("age", binding.Uint[uint8](), func(p *Person) *uint8 { return &p.Age })
func Bind[T, V any](name string, c Codec[V], accessor func(*T) *V) Field[T] {
	return Field[T]{
		info: FieldInfo{Name: name, Kind: c.Kind(), Optional: c.Optional()},
		encode: func(t *T) (value.Value, error) {
			return c.Encode(*accessor(t))
		},
		decode: func(t *T, v value.Value) error {
			out, err := c.Decode(v)
			if err != nil {
				return err
			}
			*accessor(t) = out
			return nil
		},
	}
}

// Key binds a field of a free-form document. The stored value is passed
// through c in both directions, so a Key field both checks and normalizes
// its key: encoding a document whose key is missing fails unless c is
// optional.
func Key(name string, c Codec[value.Value]) Field[value.Object] {
	return Field[value.Object]{
		info: FieldInfo{Name: name, Kind: c.Kind(), Optional: c.Optional()},
		encode: func(obj *value.Object) (value.Value, error) {
			raw, ok := (*obj)[name]
			if !ok {
				raw = value.None{}
			}
			v, err := c.Decode(raw)
			if err != nil {
				return nil, err
			}
			return c.Encode(v)
		},
		decode: func(obj *value.Object, raw value.Value) error {
			v, err := c.Decode(raw)
			if err != nil {
				return err
			}
			if *obj == nil {
				*obj = make(value.Object)
			}
			(*obj)[name] = v
			return nil
		},
	}
}

// Binding describes how T maps onto documents of one table.
// It is immutable after New returns and safe for concurrent use.
type Binding[T any] struct {
	table  string
	fields []Field[T]
}

// New validates and builds a binding.
func New[T any](table string, fields ...Field[T]) (*Binding[T], error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: table name %q", ErrInvalidBinding, table)
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		name := f.info.Name
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("%w: %s: field name %q", ErrInvalidBinding, table, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidBinding, table, name)
		}
		seen[name] = true
	}

	return &Binding[T]{table: table, fields: append([]Field[T](nil), fields...)}, nil
}

// MustNew is like New but panics on error. Intended for package-level vars.
func MustNew[T any](table string, fields ...Field[T]) *Binding[T] {
	b, err := New(table, fields...)
	if err != nil {
		panic(err)
	}
	return b
}

// Table returns the table documents of T are stored in.
func (b *Binding[T]) Table() string {
	return b.table
}

// Fields returns the declared fields in binding order.
func (b *Binding[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, len(b.fields))
	for i, f := range b.fields {
		out[i] = f.info
	}
	return out
}

// Encode converts v into an Object with one key per bound field.
func (b *Binding[T]) Encode(v T) (value.Object, error) {
	return Encode(b, &v)
}

// Decode converts a stored document into T.
func (b *Binding[T]) Decode(v value.Value) (T, error) {
	return Decode(b, v)
}

// Encode converts *v into an Object with one key per bound field.
// An absent optional field encodes as None.
func Encode[T any](b *Binding[T], v *T) (value.Object, error) {
	obj := make(value.Object, len(b.fields))
	for _, f := range b.fields {
		ev, err := f.encode(v)
		if err != nil {
			return nil, value.AtPath(f.info.Name, err)
		}
		obj[f.info.Name] = ev
	}
	return obj, nil
}

// Decode converts a stored document into T. The document must be an Object.
// The first failing field aborts the decode; keys without a field are
// ignored.
func Decode[T any](b *Binding[T], v value.Value) (T, error) {
	var out T

	obj, ok := v.(value.Object)
	if !ok {
		return out, value.TypeMismatch(b.table, describe(v))
	}

	for _, f := range b.fields {
		raw, ok := obj[f.info.Name]
		if !ok {
			if f.info.Optional {
				continue
			}
			return out, value.AtPath(f.info.Name, value.TypeMismatch(f.info.Kind.String(), "missing field"))
		}
		if err := f.decode(&out, raw); err != nil {
			var zero T
			return zero, value.AtPath(f.info.Name, err)
		}
	}
	return out, nil
}
