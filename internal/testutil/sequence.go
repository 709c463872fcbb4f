package testutil

import (
	"fmt"
	"sync"
)

// Sequence is a thread-safe monotonic counter for deterministic ids in
// tests. The same scenario with a fresh Sequence produces identical
// operation ids, which keeps logs and golden traces byte-identical.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequence creates a sequence starting at 0. OpID values are
// "<prefix>-<n>"; an empty prefix defaults to "op".
func NewSequence(prefix string) *Sequence {
	if prefix == "" {
		prefix = "op"
	}
	return &Sequence{prefix: prefix}
}

// Next increments and returns the next number. The first call returns 1.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

// Current returns the last number handed out without incrementing.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset restarts the sequence. After Reset, Next returns 1.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

// OpID returns the next operation id. Its signature matches
// record.WithOpIDs.
func (s *Sequence) OpID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.Next())
}
