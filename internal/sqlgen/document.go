package sqlgen

import (
	"fmt"

	"github.com/roach88/docrow/internal/value"
)

// EncodeDocument serializes an insert document for the doc column.
// The "id" key lives in the primary key column and is not stored twice.
func EncodeDocument(data value.Object) (string, error) {
	doc := make(value.Object, len(data))
	for k, v := range data {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	b, err := value.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

// DecodeRow rebuilds the document a store returns for one (id, doc) row.
// The identity is set under "id" as a Ref into table, overriding any "id"
// key found in the stored document.
func DecodeRow(table string, id int64, doc string) (value.Object, error) {
	v, err := value.Unmarshal([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("decode %s:%d: %w", table, id, err)
	}
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("decode %s:%d: stored document is %s, not an object", table, id, v.Kind())
	}
	obj["id"] = value.NewRef(table, value.NumberID(uint64(id)))
	return obj, nil
}
