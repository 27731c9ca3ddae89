package mmapstore

import "encoding/binary"
import "os"


//============================================= Compaction


// Compact rewrites the log into a fresh file containing only the current live index, discarding
//	tombstones and superseded values, then swaps it in. Adapted from the teacher's own full-file
//	rewrite compaction strategy (temp-file-then-rename), applied here to a flat log instead of a
//	trie snapshot.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldName := s.file.Name()
	tmpPath := oldName + ".compact.tmp"

	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil { return err }

	mMap := s.data.Load().(MMap)

	size := int64(headerSize)
	for _, e := range s.index {
		value := mMap[e.valueOff : e.valueOff+e.valueLen]
		size += int64(len(encodeRecord(recordLive, e.key, value)))
	}
	if size < int64(DefaultPageSize)*defaultInitialPages { size = int64(DefaultPageSize) * defaultInitialPages }

	if err := tmp.Truncate(size); err != nil { tmp.Close(); return err }

	tmpMap, err := Map(tmp, RDWR, 0)
	if err != nil { tmp.Close(); return err }

	newIndex := make([]indexEntry, len(s.index))
	writeOffset := headerSize

	for i, e := range s.index {
		value := mMap[e.valueOff : e.valueOff+e.valueLen]
		record := encodeRecord(recordLive, e.key, value)
		copy(tmpMap[writeOffset:writeOffset+len(record)], record)

		newIndex[i] = indexEntry{ key: e.key, valueOff: writeOffset + len(record) - e.valueLen, valueLen: e.valueLen }
		writeOffset += len(record)
	}

	binary.BigEndian.PutUint64(tmpMap[0:headerSize], uint64(writeOffset))

	if err := tmpMap.Flush(); err != nil { tmpMap.Unmap(); tmp.Close(); return err }

	oldMap := s.data.Load().(MMap)
	if err := oldMap.Unmap(); err != nil { tmpMap.Unmap(); tmp.Close(); return err }

	s.file.Close()
	tmp.Close()

	if err := os.Rename(tmpPath, oldName); err != nil { return err }

	reopened, err := os.OpenFile(oldName, os.O_RDWR, 0600)
	if err != nil { return err }

	s.file = reopened
	if err := s.mMap(); err != nil { return err }

	s.index = newIndex
	s.nextOffset = uint64(writeOffset)

	return nil
}
