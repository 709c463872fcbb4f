package record

import (
	"errors"
	"fmt"

	"github.com/roach88/docrow/internal/value"
)

// Identity is the persistent address of a record. Two identities are equal
// iff their tables and ids are equal, so == can be used directly.
type Identity struct {
	Table string
	ID    value.ID
}

// NewIdentity creates an Identity.
func NewIdentity(table string, id value.ID) Identity {
	return Identity{Table: table, ID: id}
}

// IdentityFromRef converts a stored reference into an Identity.
func IdentityFromRef(r value.Ref) Identity {
	return Identity{Table: r.Table, ID: r.ID}
}

// Ref converts the identity into a storable reference.
func (i Identity) Ref() value.Ref {
	return value.NewRef(i.Table, i.ID)
}

// Valid reports whether both components are set.
func (i Identity) Valid() bool {
	return i.Table != "" && i.ID != nil
}

// String renders "table:id".
func (i Identity) String() string {
	return i.Ref().String()
}

// HasIdentity is implemented by anything addressable in the store.
type HasIdentity interface {
	Identity() Identity
}

// Row is a typed payload paired with the identity it was read from or
// written to. Rows are only created by Table after a successful store
// response, so their identity always came from the store.
//
// Rows are not comparable; compare Identity values instead.
type Row[T any] struct {
	identity Identity
	payload  T
	_        [0]func() // not comparable
}

func newRow[T any](identity Identity, payload T) Row[T] {
	return Row[T]{identity: identity, payload: payload}
}

// Identity returns the record's address.
func (r Row[T]) Identity() Identity {
	return r.identity
}

// Value returns a copy of the payload.
func (r Row[T]) Value() T {
	return r.payload
}

// String renders "table:id payload".
func (r Row[T]) String() string {
	return fmt.Sprintf("%s %+v", r.identity, r.payload)
}

// identityOf extracts the identity a store placed under "id" in a returned
// document. The Ref must address table.
func identityOf(table string, row value.Value) (Identity, error) {
	obj, ok := row.(value.Object)
	if !ok {
		return Identity{}, fmt.Errorf("returned row is not an object: %v", row)
	}
	raw, ok := obj["id"]
	if !ok {
		return Identity{}, errors.New(`returned row has no "id"`)
	}
	ref, ok := raw.(value.Ref)
	if !ok {
		return Identity{}, fmt.Errorf(`returned "id" is %s, not a record`, raw)
	}
	if ref.Table != table || ref.ID == nil {
		return Identity{}, fmt.Errorf(`returned "id" %s does not address table %s`, ref, table)
	}
	return IdentityFromRef(ref), nil
}
