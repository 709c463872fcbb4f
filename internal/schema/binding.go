package schema

import (
	"fmt"

	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// Binding builds a document binding that checks each declared field
// against its kind. Numeric fields are normalized: an integral float in an
// int field is stored as Int, an int in a float field as Float.
func Binding(def statement.DefineTable) (*binding.Binding[value.Object], error) {
	fields := make([]binding.Field[value.Object], 0, len(def.Fields))
	for _, f := range def.Fields {
		c, err := KindCodec(f.Kind, f.Optional)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Table, f.Name, err)
		}
		fields = append(fields, binding.Key(f.Name, c))
	}
	return binding.New(def.Table, fields...)
}

// KindCodec returns a codec accepting values of kind k, and None when
// optional is set.
func KindCodec(k value.Kind, optional bool) (binding.Codec[value.Value], error) {
	check, ok := checks[k]
	if !ok {
		return nil, fmt.Errorf("unsupported kind %s", k)
	}
	return kindCodec{kind: k, optional: optional, check: check}, nil
}

var checks = map[value.Kind]func(value.Value) (value.Value, error){
	value.KindBool: func(v value.Value) (value.Value, error) {
		b, err := value.AsBool(v)
		return value.Bool(b), err
	},
	value.KindInt: func(v value.Value) (value.Value, error) {
		n, err := value.AsInt[int64](v)
		return value.Int(n), err
	},
	value.KindFloat: func(v value.Value) (value.Value, error) {
		f, err := value.AsFloat[float64](v)
		return value.Float(f), err
	},
	value.KindString: func(v value.Value) (value.Value, error) {
		s, err := value.AsString(v)
		return value.String(s), err
	},
	value.KindArray: func(v value.Value) (value.Value, error) {
		return value.AsArray(v)
	},
	value.KindObject: func(v value.Value) (value.Value, error) {
		return value.AsObject(v)
	},
	value.KindRef: func(v value.Value) (value.Value, error) {
		return value.AsRef(v)
	},
	value.KindAny: func(v value.Value) (value.Value, error) {
		if v == nil {
			return value.None{}, nil
		}
		return v, nil
	},
}

type kindCodec struct {
	kind     value.Kind
	optional bool
	check    func(value.Value) (value.Value, error)
}

func (c kindCodec) Kind() value.Kind { return c.kind }
func (c kindCodec) Optional() bool   { return c.optional }

func (c kindCodec) Encode(v value.Value) (value.Value, error) {
	if v == nil {
		return value.None{}, nil
	}
	return v, nil
}

func (c kindCodec) Decode(v value.Value) (value.Value, error) {
	if _, none := v.(value.None); none || v == nil {
		if c.optional || c.kind == value.KindAny {
			return value.None{}, nil
		}
	}
	out, err := c.check(v)
	if err != nil {
		return nil, err
	}
	return out, nil
}
