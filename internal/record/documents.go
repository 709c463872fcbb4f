package record

import (
	"github.com/roach88/docrow/internal/binding"
	"github.com/roach88/docrow/internal/value"
)

// Documents maps free-form documents of one table. With a schema binding,
// declared fields are checked and normalized in both directions; other keys,
// including "id", pass through untouched.
type Documents struct {
	table  string
	schema *binding.Binding[value.Object]
}

var _ Mapping[value.Object] = (*Documents)(nil)

// NewDocuments creates a mapping for table. schema may be nil; when set, its
// table wins over the table argument.
func NewDocuments(table string, schema *binding.Binding[value.Object]) *Documents {
	if schema != nil {
		table = schema.Table()
	}
	return &Documents{table: table, schema: schema}
}

// Table returns the table name.
func (d *Documents) Table() string { return d.table }

// Fields returns the schema's declared fields, or nil without a schema.
func (d *Documents) Fields() []binding.FieldInfo {
	if d.schema == nil {
		return nil
	}
	return d.schema.Fields()
}

// Encode copies doc, normalizing its declared fields.
func (d *Documents) Encode(doc value.Object) (value.Object, error) {
	out := doc.Clone()
	if out == nil {
		out = value.Object{}
	}
	if d.schema == nil {
		return out, nil
	}
	checked, err := d.schema.Encode(doc)
	if err != nil {
		return nil, err
	}
	for k, v := range checked {
		out[k] = v
	}
	return out, nil
}

// Decode copies a stored object, checking its declared fields.
func (d *Documents) Decode(v value.Value) (value.Object, error) {
	obj, err := value.AsObject(v)
	if err != nil {
		return nil, err
	}
	out := obj.Clone()
	if d.schema == nil {
		return out, nil
	}
	checked, err := d.schema.Decode(obj)
	if err != nil {
		return nil, err
	}
	for k, v := range checked {
		out[k] = v
	}
	return out, nil
}
