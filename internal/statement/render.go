package statement

import (
	"fmt"
	"strings"

	"github.com/roach88/docrow/internal/value"
)

// Render returns a human-readable form of stmt for logs and traces:
//
//	SELECT * FROM person:1
//	INSERT INTO person { age: 36, name: "Ada" } RETURN AFTER
//	DELETE person:1
//	DEFINE TABLE person SCHEMALESS; DEFINE FIELD age ON person TYPE int;
//
// The output is deterministic: object keys are sorted.
func Render(stmt Statement) string {
	switch s := Deref(stmt).(type) {
	case Lookup:
		return fmt.Sprintf("SELECT * FROM %s", value.NewRef(s.Table, s.ID))
	case Insert:
		data := value.Object{}
		if s.Data != nil {
			data = s.Data
		}
		return fmt.Sprintf("INSERT INTO %s %s RETURN %s", s.Table, data, s.Output)
	case Delete:
		return fmt.Sprintf("DELETE %s", value.NewRef(s.Table, s.ID))
	case DefineTable:
		var sb strings.Builder
		fmt.Fprintf(&sb, "DEFINE TABLE %s SCHEMALESS;", s.Table)
		for _, f := range s.Fields {
			fmt.Fprintf(&sb, " DEFINE FIELD %s ON %s TYPE %s;", f.Name, s.Table, f.TypeName())
		}
		return sb.String()
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("<%T>", stmt)
	}
}
