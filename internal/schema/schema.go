// Package schema loads table declarations from CUE files.
//
// A schema directory holds one CUE package whose "table" struct declares
// the fields of each table:
//
//	table: person: fields: {
//		name:     "string"
//		age:      "int"
//		nickname: "option<string>"
//	}
//
// Field kinds are bool, int, float, string, array, object, record and any,
// optionally wrapped as option<kind>. Fields keep their declaration order;
// tables are returned sorted by name.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// Error codes.
const (
	ErrCodeNotFound    = "S001" // Path not found or not a directory
	ErrCodeNoFiles     = "S002" // No CUE files found
	ErrCodeLoadFailed  = "S003" // CUE load or build failed
	ErrCodeInvalidName = "S101" // Table or field name is not an identifier
	ErrCodeInvalidKind = "S102" // Unknown field kind
	ErrCodeShape       = "S103" // Declaration has the wrong shape
)

// Error is a schema error with source position when one is known.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads every CUE file in dir and returns the declared tables.
func Load(dir string) ([]statement.DefineTable, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &Error{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &Error{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError(err)
	}

	v := cuecontext.New().BuildInstance(instances[0])
	return Compile(v)
}

// Parse compiles a single CUE source. filename is used in error positions.
func Parse(filename, src string) ([]statement.DefineTable, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile extracts table declarations from a built CUE value.
func Compile(v cue.Value) ([]statement.DefineTable, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []statement.DefineTable
	for iter.Next() {
		def, err := compileTable(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Table < defs[j].Table })
	return defs, nil
}

func compileTable(name string, v cue.Value) (statement.DefineTable, error) {
	def := statement.DefineTable{Table: name}
	if !statement.IsIdentifier(name) {
		return def, &Error{Code: ErrCodeInvalidName, Message: fmt.Sprintf("invalid table name %q", name), Pos: v.Pos()}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return def, nil
	}
	if fieldsVal.IncompleteKind() != cue.StructKind {
		return def, &Error{Code: ErrCodeShape, Message: fmt.Sprintf("table %s: fields must be a struct", name), Pos: fieldsVal.Pos()}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return def, formatCUEError(err)
	}
	for iter.Next() {
		field := iter.Selector().Unquoted()
		if !statement.IsIdentifier(field) {
			return def, &Error{Code: ErrCodeInvalidName, Message: fmt.Sprintf("table %s: invalid field name %q", name, field), Pos: iter.Value().Pos()}
		}

		typ, err := iter.Value().String()
		if err != nil {
			return def, &Error{Code: ErrCodeShape, Message: fmt.Sprintf("field %s.%s: kind must be a string", name, field), Pos: iter.Value().Pos()}
		}
		kind, optional, err := ParseFieldType(typ)
		if err != nil {
			return def, &Error{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("field %s.%s: %v", name, field, err), Pos: iter.Value().Pos()}
		}
		def.Fields = append(def.Fields, statement.FieldDef{Name: field, Kind: kind, Optional: optional})
	}
	return def, nil
}

// ParseFieldType parses "kind" or "option<kind>". It is the inverse of
// statement.FieldDef.TypeName.
func ParseFieldType(s string) (kind value.Kind, optional bool, err error) {
	s = strings.TrimSpace(s)
	if inner, ok := strings.CutPrefix(s, "option<"); ok {
		inner, ok = strings.CutSuffix(inner, ">")
		if !ok {
			return 0, false, fmt.Errorf("unterminated option<> in %q", s)
		}
		s, optional = inner, true
	}
	kind, ok := value.ParseKind(s)
	if !ok || kind == value.KindNone {
		return 0, false, fmt.Errorf("unknown kind %q", s)
	}
	return kind, optional, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: ErrCodeLoadFailed, Message: err.Error()}
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Code: ErrCodeLoadFailed, Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Code: ErrCodeLoadFailed, Message: first.Error()}
}
