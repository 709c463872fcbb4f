package value

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// bareKey matches object keys that display without quotes.
var bareKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (None) String() string { return "NONE" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// String renders the float so that it never reads as an integer: 2 displays
// as "2.0".
func (f Float) String() string {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	}
	return formatFloat(x)
}

func (s String) String() string { return strconv.Quote(string(s)) }

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(describe(v))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (obj Object) String() string {
	if len(obj) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		if bareKey.MatchString(k) {
			sb.WriteString(k)
		} else {
			sb.WriteString(strconv.Quote(k))
		}
		sb.WriteString(": ")
		sb.WriteString(describe(obj[k]))
	}
	sb.WriteString(" }")
	return sb.String()
}

// String renders the reference as "table:id".
func (r Ref) String() string {
	if r.ID == nil {
		return r.Table + ":NONE"
	}
	return r.Table + ":" + r.ID.String()
}

// formatFloat is the shortest round-trip form, with ".0" added to integral
// values so the text still parses back as a float.
func formatFloat(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
