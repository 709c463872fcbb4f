package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Signed is the set of signed integer Go types that decode from Int.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is the set of unsigned integer Go types that decode from Int.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Floating is the set of floating point Go types that decode from Float.
type Floating interface {
	~float32 | ~float64
}

// maxExactFloat is the largest integer magnitude float64 represents exactly.
const maxExactFloat = 1 << 53

// typeName returns the Go spelling of T for error messages ("uint8", "bool").
func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// describe renders the actual value for error messages.
func describe(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}

// FromInt encodes any signed integer. It always fits.
func FromInt[I Signed](i I) Int {
	return Int(int64(i))
}

// FromUint encodes an unsigned integer. Values above math.MaxInt64 do not fit
// the Int variant and fail with a RangeError.
func FromUint[U Unsigned](u U) (Value, error) {
	n := uint64(u)
	if n > math.MaxInt64 {
		return nil, RangeError("int", strconv.FormatUint(n, 10))
	}
	return Int(int64(n)), nil
}

// FromFloat encodes a floating point number.
func FromFloat[F Floating](f F) Float {
	return Float(float64(f))
}

// AsBool decodes a Bool.
func AsBool(v Value) (bool, error) {
	if b, ok := v.(Bool); ok {
		return bool(b), nil
	}
	return false, TypeMismatch("bool", describe(v))
}

// AsString decodes a String.
func AsString(v Value) (string, error) {
	if s, ok := v.(String); ok {
		return string(s), nil
	}
	return "", TypeMismatch("string", describe(v))
}

// AsInt decodes a signed integer of any width.
// A Float is accepted only when it is integral.
func AsInt[I Signed](v Value) (I, error) {
	expected := typeName[I]()

	var n int64
	switch x := v.(type) {
	case Int:
		n = int64(x)
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, TypeMismatch(expected, describe(v))
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, RangeError(expected, describe(v))
		}
		n = int64(f)
	default:
		return 0, TypeMismatch(expected, describe(v))
	}

	out := I(n)
	if int64(out) != n {
		return 0, RangeError(expected, strconv.FormatInt(n, 10))
	}
	return out, nil
}

// AsUint decodes an unsigned integer of any width.
// Negative values fail with a RangeError.
func AsUint[U Unsigned](v Value) (U, error) {
	expected := typeName[U]()

	var n uint64
	switch x := v.(type) {
	case Int:
		if x < 0 {
			return 0, RangeError(expected, strconv.FormatInt(int64(x), 10))
		}
		n = uint64(x)
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, TypeMismatch(expected, describe(v))
		}
		if f < 0 || f >= math.MaxUint64 {
			return 0, RangeError(expected, describe(v))
		}
		n = uint64(f)
	default:
		return 0, TypeMismatch(expected, describe(v))
	}

	out := U(n)
	if uint64(out) != n {
		return 0, RangeError(expected, strconv.FormatUint(n, 10))
	}
	return out, nil
}

// AsFloat decodes a floating point number.
// An Int is accepted when float64 represents it exactly.
func AsFloat[F Floating](v Value) (F, error) {
	expected := typeName[F]()

	var f float64
	switch x := v.(type) {
	case Float:
		f = float64(x)
	case Int:
		if x > maxExactFloat || x < -maxExactFloat {
			return 0, RangeError(expected, describe(v))
		}
		f = float64(x)
	default:
		return 0, TypeMismatch(expected, describe(v))
	}

	if reflect.TypeFor[F]().Kind() == reflect.Float32 && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return 0, RangeError(expected, describe(v))
	}
	return F(f), nil
}

// AsRef decodes a record reference.
func AsRef(v Value) (Ref, error) {
	if r, ok := v.(Ref); ok {
		return r, nil
	}
	return Ref{}, TypeMismatch("record", describe(v))
}

// AsArray decodes an Array.
func AsArray(v Value) (Array, error) {
	if a, ok := v.(Array); ok {
		return a, nil
	}
	return nil, TypeMismatch("array", describe(v))
}

// AsObject decodes an Object.
func AsObject(v Value) (Object, error) {
	if o, ok := v.(Object); ok {
		return o, nil
	}
	return nil, TypeMismatch("object", describe(v))
}

// AsOptional decodes None as absent (nil) and anything else through decode.
func AsOptional[T any](v Value, decode func(Value) (T, error)) (*T, error) {
	if _, ok := v.(None); ok || v == nil {
		return nil, nil
	}
	out, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
