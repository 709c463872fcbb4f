// Package memstore is an in-memory document store implementing the
// record.Executor capability. It backs tests and the scenario harness.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/docrow/internal/statement"
	"github.com/roach88/docrow/internal/value"
)

// ErrDuplicateID is returned when an insert names an id that already exists.
var ErrDuplicateID = errors.New("record id already exists")

type table struct {
	next   uint64
	docs   map[value.ID]value.Object
	fields []statement.FieldDef
}

// Store keeps documents in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// New creates an empty store.
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Execute runs one statement.
//
// Lookups on unknown tables return no rows, inserts create tables on first
// use and deleting a missing record succeeds. Returned documents are copies
// whose "id" key holds the record's Ref.
func (s *Store) Execute(ctx context.Context, stmt statement.Statement) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := statement.Validate(stmt); err != nil {
		return nil, err
	}

	switch st := statement.Deref(stmt).(type) {
	case statement.Lookup:
		return s.lookup(st), nil
	case statement.Insert:
		return s.insert(st)
	case statement.Delete:
		s.mu.Lock()
		defer s.mu.Unlock()
		if t, ok := s.tables[st.Table]; ok {
			delete(t.docs, st.ID)
		}
		return nil, nil
	case statement.DefineTable:
		s.mu.Lock()
		defer s.mu.Unlock()
		t := s.tableLocked(st.Table)
		t.fields = slices.Clone(st.Fields)
		return nil, nil
	}
	return nil, fmt.Errorf("memstore: unsupported statement %T", stmt)
}

func (s *Store) lookup(st statement.Lookup) []value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[st.Table]
	if !ok {
		return nil
	}
	doc, ok := t.docs[st.ID]
	if !ok {
		return nil
	}
	return []value.Value{withIdentity(st.Table, st.ID, doc)}
}

func (s *Store) insert(st statement.Insert) ([]value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tableLocked(st.Table)

	id, explicit := statement.ExplicitID(st.Data)
	if explicit {
		if _, exists := t.docs[id]; exists {
			return nil, fmt.Errorf("memstore: insert %s: %w", value.NewRef(st.Table, id), ErrDuplicateID)
		}
		if n, ok := id.(value.NumberID); ok && uint64(n) > t.next {
			t.next = uint64(n)
		}
	} else {
		t.next++
		id = value.NumberID(t.next)
	}

	doc := st.Data.Clone()
	delete(doc, "id")
	t.docs[id] = doc

	if st.Output != statement.OutputAfter {
		return nil, nil
	}
	return []value.Value{withIdentity(st.Table, id, doc)}, nil
}

func (s *Store) tableLocked(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{docs: make(map[value.ID]value.Object)}
		s.tables[name] = t
	}
	return t
}

// Tables returns the names of all tables, sorted.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Fields returns the declared fields of a table, or nil if it was never
// defined.
func (s *Store) Fields(table string) []statement.FieldDef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tables[table]; ok {
		return slices.Clone(t.fields)
	}
	return nil
}

// Len returns the number of records in table.
func (s *Store) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tables[table]; ok {
		return len(t.docs)
	}
	return 0
}

func withIdentity(table string, id value.ID, doc value.Object) value.Object {
	out := doc.Clone()
	out["id"] = value.NewRef(table, id)
	return out
}
