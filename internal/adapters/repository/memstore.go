package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store safe for concurrent workers. Workers
// finish out of order; reads sort by Seq so output matches source order.
type MemoryStore struct {
	mu         sync.RWMutex
	hint       int
	entries    map[int]Entry
	rejections map[int]Rejection
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = make(map[int]Entry, s.hint)
	s.rejections = make(map[int]Rejection)
	return s
}

// Put stores a normalized record.
func (s *MemoryStore) Put(_ context.Context, e Entry) error { //nolint:gocritic // hugeParam: Entry is stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := e.Record.Seq
	if s.taken(seq) {
		return fmt.Errorf("put %d: %w", seq, ErrDuplicateSeq)
	}
	s.entries[seq] = e
	return nil
}

// Reject stores a row failure.
func (s *MemoryStore) Reject(_ context.Context, r Rejection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taken(r.Seq) {
		return fmt.Errorf("reject %d: %w", r.Seq, ErrDuplicateSeq)
	}
	s.rejections[r.Seq] = r
	return nil
}

func (s *MemoryStore) taken(seq int) bool {
	if _, ok := s.entries[seq]; ok {
		return true
	}
	_, ok := s.rejections[seq]
	return ok
}

// Entries returns stored records ordered by Seq.
func (s *MemoryStore) Entries(_ context.Context) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.Record.Seq - b.Record.Seq })
	return out
}

// Rejections returns stored failures ordered by Seq.
func (s *MemoryStore) Rejections(_ context.Context) []Rejection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rejection, 0, len(s.rejections))
	for _, r := range s.rejections {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Rejection) int { return a.Seq - b.Seq })
	return out
}
