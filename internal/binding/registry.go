package binding

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

var (
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("binding registry is frozen")

	// ErrDuplicateBinding is returned when a type is registered twice.
	ErrDuplicateBinding = errors.New("binding already registered")
)

// Default is the process-wide registry populated from init functions.
var Default = NewRegistry()

// Registry maps Go types to their bindings.
//
// Bindings are registered during start-up and the registry is then frozen.
// Lookups after Freeze read an immutable map and take no lock.
type Registry struct {
	mu      sync.Mutex
	pending map[reflect.Type]any
	frozen  atomic.Pointer[map[reflect.Type]any]
}

// NewRegistry creates an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[reflect.Type]any)}
}

// Register adds b as the binding for T.
func Register[T any](r *Registry, b *Binding[T]) error {
	if b == nil {
		return fmt.Errorf("register %s: nil binding", reflect.TypeFor[T]())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := reflect.TypeFor[T]()
	if r.frozen.Load() != nil {
		return fmt.Errorf("register %s: %w", t, ErrRegistryFrozen)
	}
	if _, ok := r.pending[t]; ok {
		return fmt.Errorf("register %s: %w", t, ErrDuplicateBinding)
	}
	r.pending[t] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](r *Registry, b *Binding[T]) {
	if err := Register(r, b); err != nil {
		panic(err)
	}
}

// Freeze ends registration. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() != nil {
		return
	}
	snapshot := make(map[reflect.Type]any, len(r.pending))
	for t, b := range r.pending {
		snapshot[t] = b
	}
	r.frozen.Store(&snapshot)
	r.pending = nil
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load() != nil
}

// Lookup returns the binding registered for T.
func Lookup[T any](r *Registry) (*Binding[T], bool) {
	t := reflect.TypeFor[T]()

	var b any
	if m := r.frozen.Load(); m != nil {
		b = (*m)[t]
	} else {
		r.mu.Lock()
		b = r.pending[t]
		r.mu.Unlock()
	}

	typed, ok := b.(*Binding[T])
	return typed, ok
}

// Tables returns the table name of every registered binding, keyed by type.
func (r *Registry) Tables() map[reflect.Type]string {
	out := make(map[reflect.Type]string)
	collect := func(m map[reflect.Type]any) {
		for t, b := range m {
			if tb, ok := b.(interface{ Table() string }); ok {
				out[t] = tb.Table()
			}
		}
	}

	if m := r.frozen.Load(); m != nil {
		collect(*m)
		return out
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	collect(r.pending)
	return out
}
