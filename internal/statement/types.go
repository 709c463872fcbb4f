package statement

import "github.com/roach88/docrow/internal/value"

// Statement is one request to a store.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	// Target returns the table the statement addresses.
	Target() string
	statementNode() // Marker method - seals interface to this package
}

// Output selects what an Insert returns.
type Output int

const (
	// OutputNone returns no rows.
	OutputNone Output = iota

	// OutputAfter returns the inserted document, including its "id" Ref.
	OutputAfter
)

func (o Output) String() string {
	if o == OutputAfter {
		return "AFTER"
	}
	return "NONE"
}

// Lookup selects the record (Table, ID).
//
// Semantics:
//
//	SELECT * FROM <table>:<id>
//
// Zero rows means the record does not exist.
type Lookup struct {
	Table string
	ID    value.ID
}

func (Lookup) statementNode()   {}
func (s Lookup) Target() string { return s.Table }

// Insert adds a document to Table.
//
// Semantics:
//
//	INSERT INTO <table> <data> RETURN AFTER
//
// Data must not carry store-assigned identity unless the caller picks the id:
// an "id" key holding a positive Int, or a Ref into the same table, is used
// as the record id. None under "id" lets the store choose.
type Insert struct {
	Table  string
	Data   value.Object
	Output Output
}

func (Insert) statementNode()   {}
func (s Insert) Target() string { return s.Table }

// Delete removes the record (Table, ID). Deleting a missing record succeeds.
type Delete struct {
	Table string
	ID    value.ID
}

func (Delete) statementNode()   {}
func (s Delete) Target() string { return s.Table }

// FieldDef declares one field of a table.
type FieldDef struct {
	Name     string
	Kind     value.Kind
	Optional bool
}

// TypeName renders the declared type, "int" or "option<int>".
func (f FieldDef) TypeName() string {
	if f.Optional {
		return "option<" + f.Kind.String() + ">"
	}
	return f.Kind.String()
}

// DefineTable declares Table and its fields. Tables stay schemaless: the
// declaration records intent and is not enforced on documents by stores.
//
// Definitions are not guaranteed idempotent or safe to race with inserts
// into the same table; run them before data traffic.
type DefineTable struct {
	Table  string
	Fields []FieldDef
}

func (DefineTable) statementNode()   {}
func (s DefineTable) Target() string { return s.Table }

// Op returns a short lowercase name for the statement kind, used in logs
// and trace attributes.
func Op(stmt Statement) string {
	switch Deref(stmt).(type) {
	case Lookup:
		return "lookup"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case DefineTable:
		return "define"
	}
	return "unknown"
}

// Deref returns stmt with pointer forms replaced by values. A nil pointer
// yields nil.
func Deref(stmt Statement) Statement {
	switch s := stmt.(type) {
	case *Lookup:
		if s != nil {
			return *s
		}
	case *Insert:
		if s != nil {
			return *s
		}
	case *Delete:
		if s != nil {
			return *s
		}
	case *DefineTable:
		if s != nil {
			return *s
		}
	default:
		return stmt
	}
	return nil
}
