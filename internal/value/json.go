package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Reserved document keys for the variants JSON has no native form for.
const (
	refKey   = "$ref"
	uuidKey  = "$uuid"
	refTable = "tb"
	refID    = "id"
)

// ErrNonFiniteFloat is returned when encoding NaN or an infinity.
var ErrNonFiniteFloat = errors.New("non-finite float has no JSON form")

// Marshal encodes v as a lossless JSON document.
//
// Floats always carry a fraction or exponent so they decode back as Float.
// Refs encode as {"$ref":{"tb":table,"id":id}} and UUID ids as
// {"$uuid":"..."}. Object keys are written in RFC 8785 order.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonical encodes v like Marshal but with NFC-normalized strings,
// no HTML escaping and literal U+2028/U+2029. Equal values always produce
// identical bytes, which makes the output suitable for golden files.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Object.
func (obj Object) MarshalJSON() ([]byte, error) {
	return Marshal(obj)
}

// MarshalJSON implements json.Marshaler for Array.
func (a Array) MarshalJSON() ([]byte, error) {
	return Marshal(a)
}

func encode(buf *bytes.Buffer, v Value, canonical bool) error {
	switch val := v.(type) {
	case nil, None:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", ErrNonFiniteFloat, f)
		}
		buf.WriteString(formatFloat(f))
	case String:
		return encodeString(buf, string(val), canonical)
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem, canonical); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k, canonical); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := encode(buf, val[k], canonical); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case Ref:
		buf.WriteString(`{"` + refKey + `":{"` + refTable + `":`)
		if err := encodeString(buf, val.Table, canonical); err != nil {
			return err
		}
		buf.WriteString(`,"` + refID + `":`)
		if err := encodeID(buf, val.ID, canonical); err != nil {
			return err
		}
		buf.WriteString("}}")
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

func encodeID(buf *bytes.Buffer, id ID, canonical bool) error {
	switch x := id.(type) {
	case NumberID:
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
	case StringID:
		return encodeString(buf, string(x), canonical)
	case UUIDID:
		buf.WriteString(`{"` + uuidKey + `":"` + x.String() + `"}`)
	case nil:
		return errors.New("ref without id")
	default:
		return fmt.Errorf("unknown ID type: %T", id)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string, canonical bool) error {
	if !canonical {
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes encoding/json
// emits back into literal characters. An escape preceded by an odd run of
// backslashes is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+6 <= len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// Unmarshal decodes a JSON document produced by Marshal (or any plain JSON).
// Integral numbers decode as Int, other numbers as Float and null as None.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return FromAny(raw)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return TypeMismatch("object", describe(v))
	}
	*obj = o
	return nil
}

// FromAny converts a generically decoded document (encoding/json with
// UseNumber, or yaml.v3) into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return None{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint64:
		return FromUint(val)
	case float64:
		return Float(val), nil
	case json.Number:
		return numberValue(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		if ref, ok, err := refFromMap(val); ok || err != nil {
			return ref, err
		}
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func numberValue(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of float64 range: %s", s)
		}
		return Float(f), nil
	}
	i, err := n.Int64()
	if err != nil {
		return nil, RangeError("int", s)
	}
	return Int(i), nil
}

// refFromMap recognizes {"$ref":{"tb":..,"id":..}}. ok is false for any
// other object.
func refFromMap(m map[string]any) (Value, bool, error) {
	if len(m) != 1 {
		return nil, false, nil
	}
	inner, ok := m[refKey].(map[string]any)
	if !ok {
		return nil, false, nil
	}
	table, ok := inner[refTable].(string)
	if !ok || len(inner) != 2 {
		return nil, true, fmt.Errorf("malformed %s: want {%q, %q}", refKey, refTable, refID)
	}
	id, err := idFromAny(inner[refID])
	if err != nil {
		return nil, true, fmt.Errorf("%s %s: %w", refKey, table, err)
	}
	return Ref{Table: table, ID: id}, true, nil
}

func idFromAny(v any) (ID, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := strconv.ParseUint(string(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric id %s", x)
		}
		return NumberID(n), nil
	case int:
		if x < 0 {
			return nil, fmt.Errorf("invalid numeric id %d", x)
		}
		return NumberID(uint64(x)), nil
	case uint64:
		return NumberID(x), nil
	case string:
		return StringID(x), nil
	case map[string]any:
		s, ok := x[uuidKey].(string)
		if !ok || len(x) != 1 {
			return nil, fmt.Errorf("malformed id object")
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid id: %w", err)
		}
		return UUIDID(u), nil
	default:
		return nil, fmt.Errorf("unsupported id type %T", v)
	}
}
