package mmapstore

import "context"
import "encoding/binary"

import "github.com/sirgallo/mavl"


//============================================= Store Contract


func (s *Store) Get(ctx context.Context, key mavl.NonEmptyBytes) (mavl.NonEmptyBytes, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.searchIndex(key.Bytes())
	if i >= len(s.index) || compareBytes(s.index[i].key, key.Bytes()) != 0 {
		return mavl.NonEmptyBytes{}, false, nil
	}

	mMap := s.data.Load().(MMap)
	e := s.index[i]

	value, ok := mavl.NewNonEmptyBytes(mMap[e.valueOff : e.valueOff+e.valueLen])
	if ! ok { return mavl.NonEmptyBytes{}, false, nil }

	return value, true, nil
}

func (s *Store) Has(ctx context.Context, key mavl.NonEmptyBytes) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Store) Insert(ctx context.Context, key, value mavl.NonEmptyBytes) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.searchIndex(key.Bytes())
	existed := i < len(s.index) && compareBytes(s.index[i].key, key.Bytes()) == 0

	record := encodeRecord(recordLive, key.Bytes(), value.Bytes())
	offset, err := s.append(record)
	if err != nil { return false, err }

	valueOff := offset + 1 + uvarintLen(uint64(key.Len())) + key.Len() + uvarintLen(uint64(value.Len()))
	s.putIndex(append([]byte(nil), key.Bytes()...), valueOff, value.Len())

	return existed, nil
}

func (s *Store) Remove(ctx context.Context, key mavl.NonEmptyBytes) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.searchIndex(key.Bytes())
	if i >= len(s.index) || compareBytes(s.index[i].key, key.Bytes()) != 0 { return false, nil }

	record := encodeRecord(recordTombstone, key.Bytes(), nil)
	if _, err := s.append(record); err != nil { return false, err }

	s.removeFromIndex(key.Bytes())
	return true, nil
}

func encodeRecord(flag byte, key, value []byte) []byte {
	buf := make([]byte, 0, 1+binary.MaxVarintLen64+len(key)+binary.MaxVarintLen64+len(value))

	buf = append(buf, flag)
	buf = appendUvarint(buf, uint64(len(key)))
	buf = append(buf, key...)

	if flag == recordLive {
		buf = appendUvarint(buf, uint64(len(value)))
		buf = append(buf, value...)
	}

	return buf
}

func appendUvarint(buf []byte, v uint64) []byte {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	return append(buf, scratch[:n]...)
}

func uvarintLen(v uint64) int {
	var scratch [binary.MaxVarintLen64]byte
	return binary.PutUvarint(scratch[:], v)
}


//============================================= Iteration


type cursor struct {
	mMap  MMap
	items []indexEntry
	pos   int
}

func (c *cursor) Next() (mavl.KeyValue, bool, error) {
	if c.pos >= len(c.items) { return mavl.KeyValue{}, false, nil }

	e := c.items[c.pos]
	c.pos++

	key, _ := mavl.NewNonEmptyBytes(e.key)
	value, ok := mavl.NewNonEmptyBytes(c.mMap[e.valueOff : e.valueOff+e.valueLen])
	if ! ok { return mavl.KeyValue{}, false, nil }

	return mavl.KeyValue{ Key: key, Value: value }, true, nil
}

func (c *cursor) Close() error { return nil }

func (s *Store) Iter(ctx context.Context, start, end mavl.NonEmptyBytes) (mavl.KeyValueCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.rangeSnapshot(start, end)
	return &cursor{ mMap: s.data.Load().(MMap), items: items }, nil
}

func (s *Store) ReverseIter(ctx context.Context, start, end mavl.NonEmptyBytes) (mavl.KeyValueCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.rangeSnapshot(start, end)
	reversed := make([]indexEntry, len(items))
	for i, e := range items { reversed[len(items)-1-i] = e }

	return &cursor{ mMap: s.data.Load().(MMap), items: reversed }, nil
}

func (s *Store) rangeSnapshot(start, end mavl.NonEmptyBytes) []indexEntry {
	lo := 0
	if start.Len() > 0 { lo = s.searchIndex(start.Bytes()) }

	hi := len(s.index)
	if end.Len() > 0 { hi = s.searchIndex(end.Bytes()) }
	if hi < lo { hi = lo }

	out := make([]indexEntry, hi-lo)
	copy(out, s.index[lo:hi])

	return out
}
