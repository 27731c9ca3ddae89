// Package memstore implements an in-memory mavl.Store backed by a sorted slice. It exists for
// tests and small working sets; see store/mmapstore for a persistent implementation.
package memstore

import "context"
import "sort"
import "sync"

import "github.com/sirgallo/mavl"


type entry struct {
	key   mavl.NonEmptyBytes
	value mavl.NonEmptyBytes
}

// Store is a sorted-slice ordered key-value store. No third-party ordered-store engine appears
//	anywhere in the retrieved reference pack, so this component is a direct stdlib implementation;
//	see DESIGN.md.
type Store struct {
	mu      sync.RWMutex
	entries []entry
}

func New() *Store { return &Store{} }

func (s *Store) search(key []byte) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return bytesCompare(s.entries[i].key.Bytes(), key) >= 0
	})
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n { n = len(b) }

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] { return -1 }
			return 1
		}
	}

	switch {
		case len(a) < len(b): return -1
		case len(a) > len(b): return 1
		default: return 0
	}
}

func (s *Store) Get(ctx context.Context, key mavl.NonEmptyBytes) (mavl.NonEmptyBytes, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.search(key.Bytes())
	if i < len(s.entries) && bytesCompare(s.entries[i].key.Bytes(), key.Bytes()) == 0 {
		return s.entries[i].value, true, nil
	}

	return mavl.NonEmptyBytes{}, false, nil
}

func (s *Store) Has(ctx context.Context, key mavl.NonEmptyBytes) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Store) Insert(ctx context.Context, key, value mavl.NonEmptyBytes) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.search(key.Bytes())
	if i < len(s.entries) && bytesCompare(s.entries[i].key.Bytes(), key.Bytes()) == 0 {
		s.entries[i].value = value
		return true, nil
	}

	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry{ key: key, value: value }

	return false, nil
}

func (s *Store) Remove(ctx context.Context, key mavl.NonEmptyBytes) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.search(key.Bytes())
	if i >= len(s.entries) || bytesCompare(s.entries[i].key.Bytes(), key.Bytes()) != 0 {
		return false, nil
	}

	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true, nil
}

type cursor struct {
	items []entry
	pos   int
}

func (c *cursor) Next() (mavl.KeyValue, bool, error) {
	if c.pos >= len(c.items) { return mavl.KeyValue{}, false, nil }

	e := c.items[c.pos]
	c.pos++

	return mavl.KeyValue{ Key: e.key, Value: e.value }, true, nil
}

func (c *cursor) Close() error { return nil }

func (s *Store) Iter(ctx context.Context, start, end mavl.NonEmptyBytes) (mavl.KeyValueCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.rangeSnapshot(start, end)
	return &cursor{ items: items }, nil
}

func (s *Store) ReverseIter(ctx context.Context, start, end mavl.NonEmptyBytes) (mavl.KeyValueCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.rangeSnapshot(start, end)
	reversed := make([]entry, len(items))
	for i, e := range items { reversed[len(items)-1-i] = e }

	return &cursor{ items: reversed }, nil
}

func (s *Store) rangeSnapshot(start, end mavl.NonEmptyBytes) []entry {
	lo := 0
	if start.Len() > 0 { lo = s.search(start.Bytes()) }

	hi := len(s.entries)
	if end.Len() > 0 { hi = s.search(end.Bytes()) }
	if hi < lo { hi = lo }

	out := make([]entry, hi-lo)
	copy(out, s.entries[lo:hi])

	return out
}


var _ mavl.Store = (*Store)(nil)
